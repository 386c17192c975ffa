package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drdave-teaching/craigslist-scraper/internal/api"
)

// newServeCmd creates the 'serve' subcommand, which exposes both pipelines
// over HTTP.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Starts the HTTP server exposing crawl runs (POST /v1/runs), on-demand
extraction (POST /v1/extract), health probes, and Prometheus metrics.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			server := api.NewServer(
				appInstance.NewOrchestrator(),
				appInstance.NewExtractPipeline(),
				appInstance.Database,
				appInstance.Config,
				appInstance.Logger,
			)

			addr := fmt.Sprintf(":%d", appInstance.Config.Server.Port)
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					appInstance.Logger.Warn("server shutdown", zap.Error(err))
				}
			}()

			appInstance.Logger.Info("http server listening", zap.String("addr", addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		},
	}
	return cmd
}
