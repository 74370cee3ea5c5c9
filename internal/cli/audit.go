package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jerometseng/requestlog/internal/cache"
	"github.com/jerometseng/requestlog/internal/docpath"
	"github.com/jerometseng/requestlog/internal/worker"
)

var (
	auditWorkers int
	auditTimeout time.Duration
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit <file>",
	Short: "Classify a file of request paths in parallel",
	Long: `Audit reads request paths from a file (one per line, '#' comments and
duplicates skipped) and reports which of them are API documentation resources.

Useful for checking which access-log entries the request logger would skip.

Example:
  requestlog audit paths.txt
  requestlog audit paths.txt --workers 8 -v`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().IntVar(&auditWorkers, "workers", 0, "number of concurrent workers (default: audit.workers)")
	auditCmd.Flags().DurationVar(&auditTimeout, "timeout", time.Minute, "total timeout for the audit")
}

func runAudit(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if auditWorkers > 0 {
		cfg.Audit.Workers = auditWorkers
	}

	c, err := docpath.New(cfg.Docs.Markers)
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}

	var verdictCache cache.Cache
	if cfg.Cache.Enabled {
		verdictCache = cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval).WithMaxEntries(cfg.Cache.MaxEntries)
	}
	cached := cache.NewCachedClassifier(c, verdictCache, cfg.Cache.TTL)

	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  requestlog path audit\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Audit.Workers)
	fmt.Fprintf(os.Stderr, "  Markers:      %v\n", c.Markers())
	fmt.Fprintf(os.Stderr, "\n")

	batch := worker.NewBatchClassifier(cached, cfg.Audit.Workers)
	verdicts, err := batch.ClassifyFile(ctx, file)
	if err != nil {
		return fmt.Errorf("audit file: %w", err)
	}

	out := cmd.OutOrStdout()
	docs, failed := 0, 0
	for _, v := range verdicts {
		switch {
		case v.Err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", v.Path, v.Err)
		case v.Documentation:
			docs++
			fmt.Fprintf(out, "docs\t%s\n", v.Path)
		case verbose:
			fmt.Fprintf(out, "app\t%s\n", v.Path)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:          %d paths\n", len(verdicts))
	fmt.Fprintf(os.Stderr, "  Documentation:  %d\n", docs)
	fmt.Fprintf(os.Stderr, "  Application:    %d\n", len(verdicts)-docs-failed)
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "  Failed:         %d\n", failed)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if failed > 0 {
		return fmt.Errorf("%d paths could not be classified", failed)
	}
	return nil
}
