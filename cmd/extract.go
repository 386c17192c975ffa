package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drdave-teaching/craigslist-scraper/internal/extract"
	"github.com/drdave-teaching/craigslist-scraper/internal/queue"
)

// newExtractCmd creates the 'extract' subcommand group for the structured
// extraction pipeline.
func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the structured-extraction pipeline",
	}
	cmd.AddCommand(newExtractObjectCmd())
	cmd.AddCommand(newExtractServeCmd())
	cmd.AddCommand(newExtractBackfillCmd())
	return cmd
}

// newExtractObjectCmd processes one object key and prints the listing.
func newExtractObjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "object <object-key>",
		Short: "Extract one detail record by its storage key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			pipeline := appInstance.NewExtractPipeline()
			listing, err := pipeline.ProcessObject(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, extract.ErrNotEligible) {
					cmd.Printf("ignored: %s\n", args[0])
					return nil
				}
				return fmt.Errorf("extract object: %w", err)
			}
			cmd.Printf("extracted %s (run %s)\n", listing.PostID, listing.RunID)
			return nil
		},
	}
}

// newExtractServeCmd subscribes to object-finalize notifications and
// processes each announced record until interrupted.
func newExtractServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume object notifications and extract continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			cfg := appInstance.Config.PubSub
			if cfg.ProjectID == "" || cfg.Subscription == "" {
				return fmt.Errorf("pubsub.project_id and pubsub.subscription are required")
			}

			client, err := queue.NewClient(cmd.Context(), cfg.ProjectID)
			if err != nil {
				return fmt.Errorf("create pubsub client: %w", err)
			}
			defer client.Close() //nolint:errcheck

			pipeline := appInstance.NewExtractPipeline()
			logger := appInstance.Logger

			logger.Info("consuming object notifications", zap.String("subscription", cfg.Subscription))
			err = queue.Receive(cmd.Context(), client, cfg.Subscription, func(ctx context.Context, objectKey string) error {
				_, err := pipeline.ProcessObject(ctx, objectKey)
				if errors.Is(err, extract.ErrNotEligible) {
					return nil
				}
				if err != nil {
					logger.Warn("extraction failed", zap.String("object", objectKey), zap.Error(err))
				}
				// Failed records are acked, not retried: a later backfill
				// recovers them without blocking the subscription.
				return nil
			})
			if err != nil {
				return fmt.Errorf("receive notifications: %w", err)
			}
			return nil
		},
	}
}

// newExtractBackfillCmd reprocesses persisted records that are missing
// structured output.
func newExtractBackfillCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Extract all records missing structured output",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			pipeline := appInstance.NewExtractPipeline()
			processed, skipped, err := pipeline.Backfill(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("backfill: %w", err)
			}
			cmd.Printf("backfill: %d processed, %d skipped\n", processed, skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "limit the backfill to one run (default all runs)")
	return cmd
}
