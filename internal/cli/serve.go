package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yegors/maintlog/internal/api"
	"github.com/yegors/maintlog/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web UI and HTTP API",
	Long:  `Serve the upload page, the streaming analysis API and, when enabled, the record and metrics endpoints.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	var records api.RecordQuerier
	if a.records != nil {
		records = a.records
	}
	router := api.NewRouter(a.runner, records, a.config, a.logger)

	server := &http.Server{
		Addr:              a.config.ListenAddr(),
		Handler:           router.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
			logger.String("model", a.config.LLM.Model),
			logger.Bool("storage", a.records != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down HTTP server")

	timeout := time.Duration(a.config.Server.ShutdownTimeoutSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", logger.Error(err))
		return err
	}

	a.logger.Info("HTTP server stopped")
	return nil
}
