package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCrawlCmd creates the 'crawl' subcommand, which executes one crawl run
// and prints the run summary.
func newCrawlCmd() *cobra.Command {
	var (
		maxPages int
		prefix   string
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl of the search endpoint",
		Long: `Crawls the configured search endpoint page by page, persists the run
index and each listing's detail record, and announces every saved record
for extraction.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			if maxPages <= 0 {
				maxPages = appInstance.Config.Crawler.MaxPagesDefault
			}
			if prefix == "" {
				prefix = appInstance.Config.Storage.Prefix
			}

			orchestrator := appInstance.NewOrchestrator()
			summary, err := orchestrator.Run(cmd.Context(), maxPages, prefix)
			if err != nil {
				return fmt.Errorf("run crawl: %w", err)
			}

			finished := orchestrator.Clock.Now()
			if err := appInstance.Database.RecordRun(cmd.Context(), summary, finished); err != nil {
				appInstance.Logger.Warn("record run failed",
					zap.String("run_id", summary.RunID),
					zap.Error(err),
				)
			}

			cmd.Printf("run %s: %d rows, %d saved, %d skipped\nindex: %s\n",
				summary.RunID, summary.Rows, summary.Saved, summary.Skipped, summary.IndexLocation)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "number of search pages to crawl (default from config)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "storage key prefix for run artifacts (default from config)")
	return cmd
}
