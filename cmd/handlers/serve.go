package handlers

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rivalscope/internal/config"
	"rivalscope/internal/logger"
	"rivalscope/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP API.
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the rivalscope API server.

Examples:
  # Start on the default port 8080
  rivalscope serve

  # Start on a custom port
  rivalscope serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: localhost)")
	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	cfg := config.Get()
	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	orch, store, client, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	defer client.Close()

	srv := server.New(serverCfg, orch, store)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting server", map[string]interface{}{
		"host": serverCfg.Host, "port": serverCfg.Port, "ai_mode": cfg.AI.Mode,
	})
	return srv.Start(ctx)
}
