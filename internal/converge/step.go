package converge

import (
	"context"

	"github.com/alexisbeaulieu97/brokerhost/internal/model"
)

// Guard decides whether a step acts. Guards only read: the frozen RunContext,
// the results of earlier steps, and the live host through a prober.
type Guard func(ctx context.Context, run RunContext, results Results) (bool, error)

// Action performs a step's mutation and reports whether the host changed.
type Action func(ctx context.Context, run RunContext, results Results) (bool, error)

// Timing says when a notification fires. Only immediate delivery exists.
type Timing string

// Immediate delivers the notification right after the notifying step changes
// the host, before the next step runs.
const Immediate Timing = "immediate"

// Notification asks the sequencer to restart a service.
type Notification struct {
	Service string
	Timing  Timing
}

// Step is one row of the convergence table. The step acts iff NotIf is nil or
// false, and OnlyIf is nil or true. NotIf is evaluated first and
// short-circuits OnlyIf.
type Step struct {
	Name        string
	Description string
	NotIf       Guard
	OnlyIf      Guard
	Action      Action
	Notify      []Notification
}

// Results holds the outcome of every step that has run so far, by step name.
type Results map[string]model.StepResult

// Changed reports whether the named step ran and changed the host. Unknown
// steps report false.
func (r Results) Changed(name string) bool {
	res, ok := r[name]
	return ok && res.Changed
}

// Names lists step names in table order.
func Names(steps []Step) []string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Name)
	}
	return names
}

func frozen(value func(RunContext) bool) Guard {
	return func(_ context.Context, run RunContext, _ Results) (bool, error) {
		return value(run), nil
	}
}

func changed(step string) Guard {
	return func(_ context.Context, _ RunContext, results Results) (bool, error) {
		return results.Changed(step), nil
	}
}

var brokerInstalled = frozen(func(run RunContext) bool { return run.BrokerInstalled })
