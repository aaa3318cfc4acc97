package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/querysync/internal/config"
	"github.com/vango-dev/querysync/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		host       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync server",
		Long: `Run the websocket sync server.

Every connection gets its own in-memory router and one synchronizer
per param listed in querysync.json. Without a config file the
defaults are used.

Examples:
  querysync serve
  querysync serve --config ./querysync.json --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigFileName, "Path to the config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")

	return cmd
}

// loadConfig reads path, falling back to the defaults when it is missing.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.New(), nil
	}
	return config.LoadFile(path)
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := cfg.NewLogger(os.Stderr)
	srv := server.New(cfg, server.WithLogger(logger))

	logger.Info("querysync serving",
		"address", cfg.Address(),
		"params", len(cfg.Params),
		"metrics", cfg.Metrics.Enabled,
	)
	return srv.Run(ctx)
}
