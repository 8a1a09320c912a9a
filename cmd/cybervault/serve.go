package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cybervault/config"
	vaulthttp "github.com/sagarc03/cybervault/http"
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Start the HTTP API server",
	Long:        `Start the CyberVault HTTP API server.`,
	Annotations: map[string]string{annotationServer: ""},
	RunE:        runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port (env: CYBERVAULT_SERVER_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer a.Close()

	auth, err := a.authority(ctx)
	if err != nil {
		return err
	}

	handlerConfig := vaulthttp.HandlerConfig{
		CORS:           cfg.CORS,
		MaxUploadSize:  cfg.Vault.MaxUploadSize,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		Health:         a.db,
	}
	if cfg.Server.Metrics {
		handlerConfig.Metrics = vaulthttp.NewMetrics()
	}

	handler := vaulthttp.NewHandler(&handlerConfig, auth, a.gateway)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"storage", cfg.Storage.Backend,
			"database", cfg.Database.Type,
			"consistency", cfg.Vault.Consistency,
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "err", err)
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

