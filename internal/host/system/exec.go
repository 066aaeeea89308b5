package system

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
)

// Result captures stdout/stderr emitted by a streaming command run.
type Result struct {
	Stdout string
	Stderr string
}

// RunStreaming wires the command's stdout/stderr through to the supplied
// writers while collecting the output for error reporting.
func RunStreaming(cmd *exec.Cmd) (Result, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	if cmd.Stdout != nil {
		cmd.Stdout = io.MultiWriter(cmd.Stdout, &stdoutBuf)
	} else {
		cmd.Stdout = &stdoutBuf
	}
	if cmd.Stderr != nil {
		cmd.Stderr = io.MultiWriter(cmd.Stderr, &stderrBuf)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()

	return Result{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}, err
}

// PrimaryOutput returns stderr if present, otherwise stdout.
func PrimaryOutput(res Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	return res.Stdout
}

// Runner executes commands as child processes. Output is echoed to Stdout and
// Stderr when they are set, and is always attached to the returned error.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Log    *logger.Logger
}

var _ host.CommandRunner = (*Runner)(nil)

// Run executes cmd with the process environment extended by cmd.Env.
func (r *Runner) Run(ctx context.Context, cmd host.Command) error {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Env = mergeEnv(os.Environ(), cmd.Env)
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	r.Log.WithFields(map[string]any{"command": cmd.Path, "args": cmd.Args}).Debug("running command")

	res, err := RunStreaming(c)
	if err != nil {
		if out := PrimaryOutput(res); out != "" {
			return fmt.Errorf("%s %s: %w: %s", cmd.Path, strings.Join(cmd.Args, " "), err, out)
		}
		return fmt.Errorf("%s %s: %w", cmd.Path, strings.Join(cmd.Args, " "), err)
	}
	return nil
}

// mergeEnv overrides or appends extra on top of base. Keys compare
// case-insensitively because Windows environment names do.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, overridden := lookupFold(extra, name); overridden {
			continue
		}
		out = append(out, kv)
	}
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}

func lookupFold(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}
