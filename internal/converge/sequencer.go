package converge

import (
	"context"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
	"github.com/alexisbeaulieu97/brokerhost/internal/model"
	hosterrors "github.com/alexisbeaulieu97/brokerhost/pkg/errors"
)

// Observer is told about every step as the sequencer walks the table.
type Observer interface {
	StepStarted(name string)
	StepFinished(result model.StepResult)
}

// Sequencer interprets a step table: top to bottom, once, no retries. The
// first failing guard, action or notification aborts the run.
type Sequencer struct {
	services  host.ServiceManager
	log       *logger.Logger
	observers []Observer
	now       func() time.Time
}

// NewSequencer builds a sequencer that delivers restart notifications through
// services.
func NewSequencer(services host.ServiceManager, log *logger.Logger, observers ...Observer) *Sequencer {
	if log == nil {
		log = logger.Nop()
	}
	return &Sequencer{
		services:  services,
		log:       log,
		observers: observers,
		now:       time.Now,
	}
}

// Run executes steps against the frozen run context and returns one result per
// step reached, in table order. On failure the failing step's result is the
// last element and the error is an ExecutionError naming it. Once ctx is
// cancelled no further step starts.
func (s *Sequencer) Run(ctx context.Context, run RunContext, steps []Step) ([]model.StepResult, error) {
	results := make(Results, len(steps))
	out := make([]model.StepResult, 0, len(steps))

	for _, step := range steps {
		if _, dup := results[step.Name]; dup {
			return out, hosterrors.NewExecutionError(step.Name, fmt.Errorf("duplicate step name"))
		}
		// A cancelled run stops before the next step; the step in flight
		// always finishes.
		if err := ctx.Err(); err != nil {
			s.log.With("step", step.Name).Warn("convergence interrupted")
			return out, hosterrors.NewExecutionError(step.Name, err)
		}

		for _, o := range s.observers {
			o.StepStarted(step.Name)
		}

		res, err := s.runStep(ctx, run, results, step)
		results[step.Name] = res
		out = append(out, res)

		s.log.Step(res.Step, res.Status, res.Changed, res.Duration)
		for _, o := range s.observers {
			o.StepFinished(res)
		}

		if err != nil {
			s.log.With("step", step.Name).Error(err, "convergence aborted")
			return out, hosterrors.NewExecutionError(step.Name, err)
		}
	}

	return out, nil
}

func (s *Sequencer) runStep(ctx context.Context, run RunContext, results Results, step Step) (model.StepResult, error) {
	start := s.now()
	res := model.StepResult{Step: step.Name, Timestamp: start}
	finish := func(status, message string, err error) (model.StepResult, error) {
		res.Status = status
		res.Message = message
		res.Error = err
		res.Duration = s.now().Sub(start)
		return res, err
	}

	act, reason, err := shouldAct(ctx, run, results, step)
	if err != nil {
		return finish(model.StatusFailed, "guard failed", err)
	}
	if !act {
		return finish(model.StatusSkipped, reason, nil)
	}

	changed, err := step.Action(ctx, run, results)
	res.Changed = changed && err == nil
	if err != nil {
		return finish(model.StatusFailed, step.Description, err)
	}

	if res.Changed {
		for _, n := range step.Notify {
			if err := s.notify(ctx, n); err != nil {
				return finish(model.StatusFailed, "restart "+n.Service+" failed", err)
			}
		}
	}

	message := step.Description
	if !res.Changed {
		message += " (already in place)"
	}
	return finish(model.StatusSuccess, message, nil)
}

func shouldAct(ctx context.Context, run RunContext, results Results, step Step) (bool, string, error) {
	if step.NotIf != nil {
		satisfied, err := step.NotIf(ctx, run, results)
		if err != nil {
			return false, "", err
		}
		if satisfied {
			return false, "already satisfied", nil
		}
	}
	if step.OnlyIf != nil {
		ok, err := step.OnlyIf(ctx, run, results)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, "precondition not met", nil
		}
	}
	return true, "", nil
}

func (s *Sequencer) notify(ctx context.Context, n Notification) error {
	if n.Timing != Immediate {
		return fmt.Errorf("unsupported notification timing %q", n.Timing)
	}
	if s.services == nil {
		return fmt.Errorf("no service manager to restart %s", n.Service)
	}
	s.log.With("service", n.Service).Info("restarting service")
	return s.services.Restart(ctx, n.Service)
}
