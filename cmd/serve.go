/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/medassist/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question form over HTTP",
	Long: `Start the web server.

Routes:
  GET  /          question form
  POST /ask       form submission
  POST /api/ask   JSON API: {"question": "...", "focus_area": "..."}
  GET  /healthz   liveness probe
  GET  /metrics   Prometheus metrics (X-API-Key when server.metrics_token is set)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		if cfg.CSRF.Key == "" {
			logger.Warn("csrf_disabled", "reason", "csrf.key is empty")
		}

		router, err := web.NewRouter(p.assistant, web.Options{
			CSRFKey:        cfg.CSRF.Key,
			CSRFSecure:     cfg.CSRF.Secure,
			TrustedOrigins: cfg.CSRF.TrustedOrigins,
			RequestTimeout: cfg.Assistant.RequestTimeout,
			Metrics:        p.metrics,
			MetricsToken:   cfg.Server.MetricsToken,
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("failed to build router: %w", err)
		}

		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server_started", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("server_stopping", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server_stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
