package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/brokerhost/internal/config"
	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
)

const testConfigYAML = `name: mq-test
runtime:
  installerUrl: https://repo.example.com/otp_win64_18.3.exe
broker:
  installerUrl: https://repo.example.com/rabbitmq-server-3.6.5.exe
  plugins:
    - name: rabbit_presence_exchange
      url: https://repo.example.com/rabbit_presence_exchange-3.5.1-20150421.ez
      file: rabbit_presence_exchange-3.5.1-20150421.ez
    - name: rabbitmq_stamp
      url: https://repo.example.com/rabbitmq_stamp-1.0.2.ez
      file: rabbitmq_stamp-1.0.2.ez
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "host.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o644))
	return path
}

// stubHost is an in-memory host that starts either converged or bare.
// Only package state changes; every other capability reports the
// converged answer.
type stubHost struct {
	mu          sync.Mutex
	cfg         *config.Config
	installed   map[string]bool
	installErr  error
	mutations   []string
	unregistered bool
}

func newStubHost(converged bool) *stubHost {
	return &stubHost{installed: map[string]bool{
		"Erlang OTP 18 (7.3)":   converged,
		"RabbitMQ Server 3.6.5": converged,
	}}
}

// install swaps newExecutors and sleep for the duration of the test.
func (s *stubHost) install(t *testing.T) {
	t.Helper()
	origExec, origSleep := newExecutors, sleep
	t.Cleanup(func() {
		newExecutors, sleep = origExec, origSleep
	})
	newExecutors = func(cfg *config.Config, _ *logger.Logger, _ io.Writer) host.Executors {
		s.cfg = cfg
		return host.Executors{
			Prober: s, Packages: s, Env: s, Commands: s, Fetcher: s, Files: s, Services: s,
		}
	}
	sleep = func(time.Duration) {}
}

func (s *stubHost) record(m string) {
	s.mutations = append(s.mutations, m)
}

func (s *stubHost) IsPackageInstalled(_ context.Context, pkg host.PackageSpec) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installed[pkg.String()], nil
}

func (s *stubHost) PathExists(path string) (bool, error) {
	return path != s.cfg.Paths().PreviousBrokerHome, nil
}

func (s *stubHost) FileContains(string, string) (bool, error) { return true, nil }

func (s *stubHost) Install(_ context.Context, pkg host.PackageSpec, _ host.InstallOptions) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.installErr != nil {
		return false, s.installErr
	}
	if s.installed[pkg.String()] {
		return false, nil
	}
	s.installed[pkg.String()] = true
	s.record("install " + pkg.String())
	return true, nil
}

func (s *stubHost) Remove(_ context.Context, pkg host.PackageSpec) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.installed[pkg.String()] {
		return false, nil
	}
	delete(s.installed, pkg.String())
	s.record("remove " + pkg.String())
	return true, nil
}

func (s *stubHost) SetMachineVar(context.Context, string, string) (bool, error) { return false, nil }

func (s *stubHost) Run(_ context.Context, cmd host.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("run " + filepath.Base(cmd.Path))
	return nil
}

func (s *stubHost) Fetch(context.Context, string, string, host.FetchOptions) (bool, error) {
	return false, nil
}

func (s *stubHost) EnsureDir(string) (bool, error) { return false, nil }
func (s *stubHost) Touch(string) (bool, error)     { return false, nil }

func (s *stubHost) Exists(context.Context, string) (bool, error) { return !s.unregistered, nil }
func (s *stubHost) Start(context.Context, string) (bool, error)  { return false, nil }
func (s *stubHost) Restart(context.Context, string) error        { return nil }
