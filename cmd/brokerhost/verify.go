package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/brokerhost/internal/config"
	"github.com/alexisbeaulieu97/brokerhost/internal/converge"
)

type verifyOptions struct {
	ConfigPath string
	Overrides  []string
	Verbose    bool
	JSON       bool
}

// notConvergedError makes verify exit non-zero without printing an error;
// the report already says what is missing.
type notConvergedError struct{}

func (*notConvergedError) Error() string { return "host is not converged" }

var verifyCmdRunner = runVerify

func newVerifyCmd(root *rootFlags) *cobra.Command {
	opts := verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report the host state without changing anything",
		Long: `Verify captures the same snapshot apply would start from, plus plugin
membership of the tracking file and service registration. It never mutates
the host. Exits 0 when the host is converged and 1 otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = root.configPath
			opts.Overrides = root.overrides
			opts.Verbose = root.verbose

			if err := validateVerifyOptions(opts); err != nil {
				return err
			}
			return verifyCmdRunner(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the report as JSON")

	return cmd
}

type verifyReport struct {
	Config                   string          `json:"config"`
	Healthy                  bool            `json:"healthy"`
	PreviousRuntimeInstalled bool            `json:"previousRuntimeInstalled"`
	RuntimeInstalled         bool            `json:"runtimeInstalled"`
	BrokerInstalled          bool            `json:"brokerInstalled"`
	BaseDirExists            bool            `json:"baseDirExists"`
	TrackingFileExists       bool            `json:"trackingFileExists"`
	ServiceRegistered        bool            `json:"serviceRegistered"`
	Plugins                  map[string]bool `json:"plugins"`
}

func runVerify(ctx context.Context, opts verifyOptions, stdout, stderr io.Writer) error {
	cfg, err := config.ParseConfig(opts.ConfigPath, opts.Overrides...)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, opts.Verbose, stderr)
	if err != nil {
		return err
	}

	report, err := converge.Inspect(ctx, cfg, newExecutors(cfg, log, io.Discard))
	if err != nil {
		return err
	}

	out := verifyReport{
		Config:                   cfg.Name,
		Healthy:                  report.Healthy(),
		PreviousRuntimeInstalled: report.Run.PreviousRuntimeInstalled,
		RuntimeInstalled:         report.Run.RuntimeInstalled,
		BrokerInstalled:          report.Run.BrokerInstalled,
		BaseDirExists:            report.BaseDirExists,
		TrackingFileExists:       report.TrackingFileExists,
		ServiceRegistered:        report.ServiceRegistered,
		Plugins:                  report.PluginsTracked,
	}

	if opts.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		printReport(stdout, cfg, out)
	}

	if !out.Healthy {
		return &notConvergedError{}
	}
	return nil
}

func printReport(w io.Writer, cfg *config.Config, r verifyReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CHECK\tSTATE\n")
	fmt.Fprintf(tw, "%s installed\t%s\n", converge.RuntimePackage(cfg), yesNo(r.RuntimeInstalled))
	if cfg.Runtime.PreviousPackage != "" {
		fmt.Fprintf(tw, "%s installed\t%s\n", cfg.Runtime.PreviousPackage, yesNo(r.PreviousRuntimeInstalled))
	}
	fmt.Fprintf(tw, "%s installed\t%s\n", converge.BrokerPackage(cfg), yesNo(r.BrokerInstalled))
	fmt.Fprintf(tw, "base directory\t%s\n", yesNo(r.BaseDirExists))
	fmt.Fprintf(tw, "tracking file\t%s\n", yesNo(r.TrackingFileExists))
	fmt.Fprintf(tw, "service %s registered\t%s\n", cfg.Broker.ServiceName, yesNo(r.ServiceRegistered))

	names := make([]string, 0, len(r.Plugins))
	for name := range r.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(tw, "plugin %s enabled\t%s\n", name, yesNo(r.Plugins[name]))
	}
	_ = tw.Flush()

	if r.Healthy {
		fmt.Fprintln(w, "\nhost is converged")
	} else {
		fmt.Fprintln(w, "\nhost is not converged; run apply")
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
