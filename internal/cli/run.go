package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/internal/app"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/pipeline"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Mode      string
	MaxGroups int
	RunID     string
	Filter    map[string]string
	Output    string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass and print its report",
		Long: `Run one reconciliation pass over the configured collection.

live executes every planned mutation, sample executes the smallest set of
groups that covers every mutation kind, and dry_run plans without writing.
The report is printed as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(models.RunModeLive), "run mode (live|sample|dry_run)")
	cmd.Flags().IntVar(&opts.MaxGroups, "max-groups", -1, "groups to execute in sample mode (default SAMPLE_MAX_GROUPS)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run identifier (default a new UUID)")
	cmd.Flags().StringToStringVar(&opts.Filter, "filter", nil, "property equality filter, e.g. --filter status=lead")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the report to a file instead of stdout")

	return cmd
}

func runRun(cmd *cobra.Command, rootOpts *RootOptions, opts *RunOptions) error {
	mode := models.RunMode(opts.Mode)
	switch mode {
	case models.RunModeLive, models.RunModeSample, models.RunModeDryRun:
	default:
		return fmt.Errorf("invalid mode %q: must be one of live, sample, dry_run", opts.Mode)
	}

	cfg, logger, err := rootOpts.load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Stop(context.Background()); err != nil {
			logger.WithError(err).Error("Failed to stop dependencies")
		}
	}()
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dependencies: %w", err)
	}

	maxGroups := opts.MaxGroups
	if maxGroups < 0 {
		maxGroups = cfg.SampleMaxGroups
	}

	var filter *models.QueryFilter
	if len(opts.Filter) > 0 {
		filter = &models.QueryFilter{Properties: make(map[string]any, len(opts.Filter))}
		for k, v := range opts.Filter {
			filter.Properties[k] = v
		}
	}

	report, runErr := a.Pipeline().Run(ctx, pipeline.RunOptions{
		RunID:     opts.RunID,
		Mode:      mode,
		MaxGroups: maxGroups,
		Filter:    filter,
	})
	if report == nil {
		return runErr
	}

	if err := writeReport(cmd.OutOrStdout(), opts.Output, report); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if report.Status == models.RunStatusPartialFailure {
		return fmt.Errorf("run %s finished with %d errors", report.RunID, report.Counts.Errors)
	}
	return nil
}

func writeReport(stdout io.Writer, path string, report *models.Report) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
