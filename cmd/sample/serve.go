package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to the config addr)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the notes API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

		r, cfg, err := loadRouter()
		if err != nil {
			return err
		}

		addr := cfg.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		slog.Info("starting server", "addr", addr, "docs", "/apidocs/")
		if err := r.ListenAndServe(ctx, addr); err != nil {
			return err
		}
		slog.Info("server stopped")
		return nil
	},
}
