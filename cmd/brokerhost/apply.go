package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/brokerhost/internal/config"
	"github.com/alexisbeaulieu97/brokerhost/internal/converge"
	"github.com/alexisbeaulieu97/brokerhost/internal/journal"
	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
	"github.com/alexisbeaulieu97/brokerhost/internal/model"
	"github.com/alexisbeaulieu97/brokerhost/internal/telemetry"
	"github.com/alexisbeaulieu97/brokerhost/internal/tui"
)

type applyOptions struct {
	ConfigPath      string
	Overrides       []string
	Verbose         bool
	JournalPath     string
	MetricsTextfile string
	NonInteractive  bool
}

var applyCmdRunner = runApply

func newApplyCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Converge this host onto the configured runtime, broker and plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = root.configPath
			opts.Overrides = root.overrides
			opts.Verbose = root.verbose
			opts.NonInteractive = !isTerminal(cmd.OutOrStdout())

			if err := validateApplyOptions(opts); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return applyCmdRunner(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.JournalPath, "journal", "", "Record the run in this SQLite journal (overrides journal.path)")
	cmd.Flags().StringVar(&opts.MetricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file (overrides metrics.textfile)")

	return cmd
}

func runApply(ctx context.Context, opts applyOptions, stdout, stderr io.Writer) error {
	cfg, err := config.ParseConfig(opts.ConfigPath, opts.Overrides...)
	if err != nil {
		return err
	}
	if opts.JournalPath != "" {
		cfg.Journal.Path = opts.JournalPath
	}
	if opts.MetricsTextfile != "" {
		cfg.Metrics.Textfile = opts.MetricsTextfile
	}

	interactive := !opts.NonInteractive
	logOut, toolOut := stderr, stderr
	if interactive {
		// The progress view owns the terminal.
		logOut, toolOut = io.Discard, io.Discard
	}

	log, err := newLogger(cfg, opts.Verbose, logOut)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log = log.WithFields(map[string]any{"run_id": runID, "config": cfg.Name})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exec := newExecutors(cfg, log, toolOut)
	steps := converge.BuildSteps(cfg, exec, converge.WithSleep(sleep))
	state := tui.NewModel(cfg.Name, converge.Names(steps))

	var observers []converge.Observer
	var metrics *telemetry.Metrics
	if cfg.Metrics.Textfile != "" {
		metrics = telemetry.NewMetrics()
		observers = append(observers, metrics)
	}

	var program *tea.Program
	var programErr error
	done := make(chan struct{})
	if interactive {
		program = tea.NewProgram(state, tea.WithOutput(stdout), tea.WithContext(ctx))
		observers = append(observers, tui.Observer{Program: program})
		go func() {
			final, err := program.Run()
			programErr = err
			if m, ok := final.(tui.Model); ok && m.Cancelled() {
				cancel()
			}
			close(done)
		}()
	} else {
		observers = append(observers, &modelObserver{state: &state})
	}

	summary := model.RunSummary{RunID: runID, Started: time.Now()}
	log.Info("convergence started")

	run, err := converge.Capture(ctx, cfg, exec.Prober)
	if err != nil {
		summary.Err = fmt.Errorf("capture host state: %w", err)
	} else {
		log.WithFields(map[string]any{
			"previous_runtime_installed": run.PreviousRuntimeInstalled,
			"runtime_installed":          run.RuntimeInstalled,
			"broker_installed":           run.BrokerInstalled,
		}).Debug("host state captured")
		summary.Results, summary.Err = converge.NewSequencer(exec.Services, log, observers...).Run(ctx, run, steps)
	}
	summary.Finished = time.Now()

	if interactive {
		program.Send(tui.RunDoneMsg{Err: summary.Err})
		<-done
	} else {
		updated, _ := state.Update(tui.RunDoneMsg{Err: summary.Err})
		state = updated.(tui.Model)
		fmt.Fprint(stdout, state.View())
	}

	if summary.Err != nil {
		log.Error(summary.Err, "convergence failed")
	} else {
		log.With("changed", summary.Changed()).Info("convergence finished")
	}

	if err := persistRun(cfg, summary, metrics, log); err != nil {
		log.Error(err, "failed to persist run")
	}

	if summary.Err != nil {
		return summary.Err
	}
	if programErr != nil && !errors.Is(programErr, tea.ErrProgramKilled) {
		return programErr
	}
	return nil
}

// persistRun writes the journal entry and the metrics textfile. It also runs
// after an interrupted run, so it gets its own context.
func persistRun(cfg *config.Config, summary model.RunSummary, metrics *telemetry.Metrics, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Journal.Path != "" {
		j, err := journal.Open(ctx, config.HostPath(cfg.Journal.Path))
		if err != nil {
			return err
		}
		defer j.Close()
		if err := j.Record(ctx, cfg.Name, summary); err != nil {
			return err
		}
		log.With("journal", cfg.Journal.Path).Debug("run recorded")
	}

	if metrics != nil {
		metrics.RecordRun(summary)
		if err := metrics.WriteTextfile(config.HostPath(cfg.Metrics.Textfile)); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	return nil
}

// modelObserver feeds sequencer events straight into a model when no
// program is running.
type modelObserver struct {
	state *tui.Model
}

func (o *modelObserver) StepStarted(name string) {
	o.update(tui.StepStartMsg{Name: name, Time: time.Now()})
}

func (o *modelObserver) StepFinished(res model.StepResult) {
	o.update(tui.StepCompleteMsg{Result: res})
}

func (o *modelObserver) update(msg tea.Msg) {
	updated, _ := o.state.Update(msg)
	if m, ok := updated.(tui.Model); ok {
		*o.state = m
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
