package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	specOut      string
	specYAML     bool
	specValidate bool
)

func init() {
	specCmd.Flags().StringVarP(&specOut, "output", "o", "", "Write the document to a file instead of stdout")
	specCmd.Flags().BoolVar(&specYAML, "yaml", false, "Emit YAML instead of JSON")
	specCmd.Flags().BoolVar(&specValidate, "validate", false, "Validate the document with kin-openapi")
}

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Print the generated OpenAPI document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r, _, err := loadRouter()
		if err != nil {
			return err
		}

		if specValidate {
			doc, err := r.Document(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %d paths, %d schemas\n",
				color.GreenString("valid"), doc.Paths.Len(), len(doc.Components.Schemas))
		}

		var w io.Writer = cmd.OutOrStdout()
		if specOut != "" {
			f, err := os.Create(specOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", specOut, err)
			}
			defer f.Close() //nolint:errcheck // closed after a successful write below
			w = f
		}

		if specYAML {
			return r.WriteSpecYAML(w)
		}
		return r.WriteSpec(w)
	},
}
