package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/brokerhost/internal/config"
	"github.com/alexisbeaulieu97/brokerhost/internal/journal"
)

type historyOptions struct {
	ConfigPath  string
	Overrides   []string
	JournalPath string
	Limit       int
	RunID       string
	JSON        bool
}

func newHistoryCmd(root *rootFlags) *cobra.Command {
	opts := historyOptions{}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded convergence runs, or show the steps of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = root.configPath
			opts.Overrides = root.overrides
			if err := validateOverrides(opts.Overrides); err != nil {
				return err
			}
			if len(args) == 1 {
				opts.RunID = args[0]
			}
			return runHistory(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.JournalPath, "journal", "", "SQLite journal to read (defaults to journal.path of --config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum number of runs to list; 0 lists all")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")

	return cmd
}

func resolveJournalPath(opts historyOptions) (string, error) {
	if opts.JournalPath != "" {
		return opts.JournalPath, nil
	}
	if strings.TrimSpace(opts.ConfigPath) == "" {
		return "", fmt.Errorf("--journal or --config is required")
	}
	cfg, err := config.ParseConfig(opts.ConfigPath, opts.Overrides...)
	if err != nil {
		return "", err
	}
	if cfg.Journal.Path == "" {
		return "", fmt.Errorf("configuration %s has no journal.path", opts.ConfigPath)
	}
	return cfg.Journal.Path, nil
}

func runHistory(ctx context.Context, opts historyOptions, stdout io.Writer) error {
	if opts.Limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	path, err := resolveJournalPath(opts)
	if err != nil {
		return err
	}

	path = config.HostPath(path)
	// Opening creates the database; a read-only command must not.
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("journal %s does not exist", path)
		}
		return fmt.Errorf("journal %s: %w", path, err)
	}

	j, err := journal.Open(ctx, path)
	if err != nil {
		return err
	}
	defer j.Close()

	if opts.RunID != "" {
		run, err := j.Get(ctx, opts.RunID)
		if err != nil {
			return err
		}
		if opts.JSON {
			return encodeJSON(stdout, run)
		}
		printRun(stdout, run)
		return nil
	}

	runs, err := j.List(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if opts.JSON {
		return encodeJSON(stdout, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tSTATUS\tCHANGED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			r.ID,
			r.StartedAt.Local().Format(time.RFC3339),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.Status,
			r.Changed,
		)
	}
	return tw.Flush()
}

func printRun(w io.Writer, run *journal.Run) {
	fmt.Fprintf(w, "run %s (%s) %s, %d changed\n", run.ID, run.ConfigName, run.Status, run.Changed)
	if run.Error != "" {
		fmt.Fprintf(w, "error: %s\n", run.Error)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tSTATUS\tCHANGED\tMESSAGE")
	for _, s := range run.Steps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Status, yesNo(s.Changed), s.Message)
	}
	_ = tw.Flush()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
