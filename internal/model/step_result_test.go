package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStepResultActed(t *testing.T) {
	t.Parallel()

	require.True(t, StepResult{Status: StatusSuccess}.Acted())
	require.True(t, StepResult{Status: StatusFailed}.Acted())
	require.False(t, StepResult{Status: StatusSkipped}.Acted())
	require.False(t, StepResult{Status: StatusPending}.Acted())
}

func TestStepResultIsTerminal(t *testing.T) {
	t.Parallel()

	require.False(t, StepResult{Status: StatusRunning}.IsTerminal())
	require.True(t, StepResult{Status: StatusSkipped}.IsTerminal())
}

func TestRunSummaryCountsChanges(t *testing.T) {
	t.Parallel()

	summary := RunSummary{
		RunID:   "run-1",
		Started: time.Now(),
		Results: []StepResult{
			{Step: "base-directory", Status: StatusSuccess, Changed: true},
			{Step: "install-runtime", Status: StatusSkipped},
			{Step: "tracking-file", Status: StatusSuccess, Changed: false},
		},
	}
	require.Equal(t, 1, summary.Changed())
	require.Equal(t, StatusSuccess, summary.Status())

	summary.Err = errors.New("boom")
	require.Equal(t, StatusFailed, summary.Status())
}
