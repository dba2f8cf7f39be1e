package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/server"
	"github.com/veilscan/veilscan/internal/sweeper"
	"github.com/veilscan/veilscan/internal/takedown"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server with the background retention sweeper",
	Long: `Start the VeilScan API.

Endpoints:
  POST   /search                start a scan, returns a task id
  GET    /results/{task_id}     poll scan progress, findings and the report
  DELETE /results/{task_id}     wipe all data of a scan
  POST   /takedown              draft a GDPR/CCPA deletion request email
  GET    /ws/scans/{task_id}    stream scan events over WebSocket
  GET    /health                integration and retention status

The retention sweeper runs alongside the server and wipes scans older than
the configured TTL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger("veilscan")

		comps, err := buildComponents(logger)
		if err != nil {
			return err
		}
		defer comps.close()

		gen, err := takedown.NewGenerator(cfg.TakedownConfig(), logger)
		if err != nil {
			return fmt.Errorf("failed to create takedown generator: %w", err)
		}

		sw, err := sweeper.New(cfg.SweeperConfig(), comps.store, logger)
		if err != nil {
			return fmt.Errorf("failed to create sweeper: %w", err)
		}

		srv, err := server.NewServer(server.Config{
			Addr:             cfg.Server.Addr,
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			RetentionTTL:     cfg.Retention.TTL,
			ModelConfigured:  cfg.Takedown.APIKey != "" || cfg.Takedown.BaseURL != "",
			HIBPConfigured:   cfg.Probes.HIBPAPIKey != "",
			ShodanConfigured: cfg.Probes.ShodanAPIKey != "",
		}, comps.orchestrator, comps.store, gen, logger)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go sw.Run(ctx)

		httpSrv := srv.HTTPServer()
		errCh := make(chan error, 1)
		go func() {
			logger.Info("api server listening", interfaces.Field{Key: "addr", Value: cfg.Server.Addr})
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown error", interfaces.Field{Key: "error", Value: err.Error()})
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
