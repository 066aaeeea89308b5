package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/brokerhost/internal/journal"
	"github.com/alexisbeaulieu97/brokerhost/internal/model"
)

func seedJournal(t *testing.T) (string, []string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	j, err := journal.Open(ctx, path)
	require.NoError(t, err)
	defer j.Close()

	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	ids := []string{"run-old", "run-new"}
	for i, id := range ids {
		summary := model.RunSummary{
			RunID:    id,
			Started:  start.Add(time.Duration(i) * time.Hour),
			Finished: start.Add(time.Duration(i)*time.Hour + time.Minute),
			Results: []model.StepResult{
				{Step: "install-runtime", Status: model.StatusSuccess, Changed: i == 0},
				{Step: "install-broker", Status: model.StatusSkipped, Message: "already satisfied"},
			},
		}
		if i == 1 {
			summary.Err = errors.New("restart failed")
		}
		require.NoError(t, j.Record(ctx, "mq-test", summary))
	}
	return path, ids
}

func TestHistoryListsRunsNewestFirst(t *testing.T) {
	path, _ := seedJournal(t)

	out, err := executeCommand(newRootCmd(), "history", "--journal", path)
	require.NoError(t, err)
	require.Contains(t, out, "RUN")
	require.Less(t, strings.Index(out, "run-new"), strings.Index(out, "run-old"))
}

func TestHistoryLimit(t *testing.T) {
	path, _ := seedJournal(t)

	out, err := executeCommand(newRootCmd(), "history", "--journal", path, "--limit", "1", "--json")
	require.NoError(t, err)

	var runs []journal.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	require.Equal(t, "run-new", runs[0].ID)
	require.Equal(t, model.StatusFailed, runs[0].Status)
}

func TestHistoryShowsOneRun(t *testing.T) {
	path, _ := seedJournal(t)

	out, err := executeCommand(newRootCmd(), "history", "--journal", path, "run-old")
	require.NoError(t, err)
	require.Contains(t, out, "run run-old (mq-test) success, 1 changed")
	require.Contains(t, out, "install-broker")
	require.Contains(t, out, "already satisfied")
}

func TestHistoryUnknownRun(t *testing.T) {
	path, _ := seedJournal(t)

	_, err := executeCommand(newRootCmd(), "history", "--journal", path, "nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestHistoryRequiresJournal(t *testing.T) {
	_, err := executeCommand(newRootCmd(), "history")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--journal or --config")

	_, err = executeCommand(newRootCmd(), "history", "-c", writeTestConfig(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no journal.path")
}

func TestHistoryEmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	j, err := journal.Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err := executeCommand(newRootCmd(), "history", "--journal", path)
	require.NoError(t, err)
	require.Contains(t, out, "no runs recorded")
}

func TestHistoryMissingJournalIsNotCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.db")

	_, err := executeCommand(newRootCmd(), "history", "--journal", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestHistoryAppliesOverrides(t *testing.T) {
	path, _ := seedJournal(t)

	// Plugin URLs and the journal path arrive only through --set.
	doc := `name: mq-test
runtime:
  installerUrl: https://repo.example.com/otp_win64_18.3.exe
broker:
  installerUrl: https://repo.example.com/rabbitmq-server-3.6.5.exe
`
	cfgPath := filepath.Join(t.TempDir(), "host.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0o644))

	out, err := executeCommand(newRootCmd(), "history", "-c", cfgPath,
		"--set", "broker.plugin.rabbit_presence_exchange.url=https://repo.example.com/rabbit_presence_exchange.ez",
		"--set", "broker.plugins.rabbitmq_stamp.url=https://repo.example.com/rabbitmq_stamp.ez",
		"--set", "journal.path="+path,
	)
	require.NoError(t, err)
	require.Contains(t, out, "run-new")
}

func TestHistoryRejectsMalformedOverride(t *testing.T) {
	path, _ := seedJournal(t)

	_, err := executeCommand(newRootCmd(), "history", "--journal", path, "--set", "journal.path")
	require.Error(t, err)
	require.Contains(t, err.Error(), "key=value")
}
