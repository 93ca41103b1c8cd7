// Command sample serves a small notes API built with github.com/bjaus/modelapi.
//
// Run:
//
//	go run ./cmd/sample serve
//	go run ./cmd/sample serve --config sample.yaml
//
// Inspect:
//
//	go run ./cmd/sample spec                  print the OpenAPI document
//	go run ./cmd/sample spec --yaml -o api.yaml
//	go run ./cmd/sample spec --validate       check it with kin-openapi
//	go run ./cmd/sample routes                list the registered routes
//
// With the server running, the docs live at http://localhost:8080/apidocs/.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bjaus/modelapi"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "sample",
		Short: "Notes API built with modelapi",
		Long: `sample serves an in-memory notes API whose request and response models
drive binding, validation and the generated OpenAPI document.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (MODELAPI_* env vars override it)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(specCmd)
	rootCmd.AddCommand(routesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadRouter reads the config and builds the notes router.
func loadRouter() (*modelapi.Router, *modelapi.Config, error) {
	cfg, err := modelapi.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	return newRouter(cfg, newStore()), cfg, nil
}
