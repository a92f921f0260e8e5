package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adforge/internal/llm"
	"adforge/internal/logger"
	"adforge/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP server that exposes each pipeline stage as an endpoint,
so a front end can drive ingestion, persona selection, idea generation,
scoring, and asset rendering step by step.

Examples:
  adforge serve
  adforge serve --port 3000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		host, _ := cmd.Flags().GetString("host")
		return runServe(cmd.Context(), host, port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "HTTP server port (default from config: 8080)")
	serveCmd.Flags().String("host", "", "HTTP server host (default from config: localhost)")
}

func runServe(ctx context.Context, host string, port int) error {
	log := logger.Get()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	gemini, st, sampler, scorer, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(cfg, llm.NewClient(gemini), gemini, st, sampler, scorer)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", cfg.Server.Host, cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info("Server stopped")
	}

	return nil
}
