package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	backend "github.com/chatflow-dev/chatflow/http"
	"github.com/chatflow-dev/chatflow/telemetry"
	"github.com/chatflow-dev/chatflow/utils"
	"github.com/spf13/cobra"
)

// newServeCmd creates the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the four backend operations locally",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				utils.Error("Failed to load config: %v", err)
				exit(2)
			}
			if addr == "" {
				addr = cfg.HTTP.Addr()
			}
			if err := telemetry.Init(cfg); err != nil {
				utils.Warn("Tracing disabled: %v", err)
			}
			defer telemetry.Shutdown(context.Background())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, err := backend.NewDepsFromConfig(ctx, cfg)
			if err != nil {
				utils.Error("Failed to initialize backend: %v", err)
				exit(2)
			}
			defer deps.Close()

			if err := backend.StartServer(ctx, addr, backend.NewServer(deps).Handler()); err != nil {
				utils.Error("Server error: %v", err)
				_ = deps.Close()
				_ = telemetry.Shutdown(context.Background())
				exit(1)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config http.host:http.port)")
	return cmd
}
