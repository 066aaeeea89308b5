package converge

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/brokerhost/internal/config"
	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	hosterrors "github.com/alexisbeaulieu97/brokerhost/pkg/errors"
)

// fakeHost simulates the parts of a Windows host the table touches and records
// every mutation in calls, in order.
type fakeHost struct {
	cfg   *config.Config
	paths config.Paths

	installed  map[host.PackageSpec]bool
	dirs       map[string]bool
	files      map[string]string
	env        map[string]string
	fetched    map[string]bool
	remoteNew  map[string]bool
	registered map[string]bool
	running    map[string]bool

	failOn     map[string]error
	touchNoop  bool
	probeCalls int
	restarts   int
	sleeps     []time.Duration
	calls      []string
}

func newFakeHost(cfg *config.Config) *fakeHost {
	return &fakeHost{
		cfg:        cfg,
		paths:      cfg.Paths(),
		installed:  map[host.PackageSpec]bool{},
		dirs:       map[string]bool{},
		files:      map[string]string{},
		env:        map[string]string{},
		fetched:    map[string]bool{},
		remoteNew:  map[string]bool{},
		registered: map[string]bool{},
		running:    map[string]bool{},
		failOn:     map[string]error{},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Runtime.InstallerURL = "https://repo.example.com/otp_win64_18.3.exe"
	cfg.Broker.InstallerURL = "https://repo.example.com/rabbitmq-server-3.6.5.exe"
	cfg.Broker.Plugins[0].URL = "https://repo.example.com/rabbit_presence_exchange.ez"
	cfg.Broker.Plugins[1].URL = "https://repo.example.com/rabbitmq_stamp.ez"
	return &cfg
}

func (f *fakeHost) executors() host.Executors {
	return host.Executors{
		Prober:   f,
		Packages: f,
		Env:      f,
		Commands: f,
		Fetcher:  f,
		Files:    f,
		Services: f,
	}
}

func (f *fakeHost) steps() []Step {
	return BuildSteps(f.cfg, f.executors(), WithSleep(func(d time.Duration) { f.sleeps = append(f.sleeps, d) }))
}

func (f *fakeHost) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeHost) fail(label string) error {
	return f.failOn[label]
}

func (f *fakeHost) IsPackageInstalled(_ context.Context, pkg host.PackageSpec) (bool, error) {
	f.probeCalls++
	if err := f.fail("probe " + pkg.String()); err != nil {
		return false, err
	}
	return f.installed[pkg], nil
}

func (f *fakeHost) PathExists(path string) (bool, error) {
	_, isFile := f.files[path]
	return f.dirs[path] || isFile, nil
}

func (f *fakeHost) FileContains(path, substr string) (bool, error) {
	content, ok := f.files[path]
	if !ok {
		return false, hosterrors.NewReadError(path, fs.ErrNotExist)
	}
	return strings.Contains(content, substr), nil
}

func (f *fakeHost) Install(_ context.Context, pkg host.PackageSpec, _ host.InstallOptions) (bool, error) {
	if err := f.fail("install " + pkg.String()); err != nil {
		return false, err
	}
	if f.installed[pkg] {
		return false, nil
	}
	f.installed[pkg] = true
	f.record("install %s", pkg)
	return true, nil
}

func (f *fakeHost) Remove(_ context.Context, pkg host.PackageSpec) (bool, error) {
	if !f.installed[pkg] {
		return false, nil
	}
	delete(f.installed, pkg)
	if prev, ok := PreviousBrokerPackage(f.cfg); ok && prev == pkg {
		delete(f.dirs, f.paths.PreviousBrokerHome)
	}
	f.record("remove %s", pkg)
	return true, nil
}

func (f *fakeHost) SetMachineVar(_ context.Context, name, value string) (bool, error) {
	if f.env[name] == value {
		return false, nil
	}
	f.env[name] = value
	f.record("setenv %s", name)
	return true, nil
}

func (f *fakeHost) Run(_ context.Context, cmd host.Command) error {
	label := filepath.Base(cmd.Path) + " " + strings.Join(cmd.Args, " ")
	if err := f.fail("run " + label); err != nil {
		return err
	}
	f.record("run %s", label)

	service := f.cfg.Broker.ServiceName
	switch {
	case cmd.Path == f.paths.PluginControl && len(cmd.Args) == 2 && cmd.Args[0] == "enable":
		content := f.files[f.paths.TrackingFile]
		f.files[f.paths.TrackingFile] = content + cmd.Args[1] + "\n"
	case cmd.Path == f.paths.ServiceControl && len(cmd.Args) == 1 && cmd.Args[0] == "install":
		f.registered[service] = true
	case cmd.Path == f.paths.ServiceControl && len(cmd.Args) == 1 && cmd.Args[0] == "remove":
		delete(f.registered, service)
		delete(f.running, service)
	}
	return nil
}

func (f *fakeHost) Fetch(_ context.Context, url, dest string, opts host.FetchOptions) (bool, error) {
	if err := f.fail("fetch " + filepath.Base(dest)); err != nil {
		return false, err
	}
	if !opts.ConditionalGet || !opts.KeepLastModified || opts.Backups != 1 {
		return false, fmt.Errorf("unexpected fetch options %+v", opts)
	}
	if f.fetched[dest] && !f.remoteNew[url] {
		return false, nil
	}
	f.fetched[dest] = true
	delete(f.remoteNew, url)
	f.record("fetch %s", filepath.Base(dest))
	return true, nil
}

func (f *fakeHost) EnsureDir(path string) (bool, error) {
	if f.dirs[path] {
		return false, nil
	}
	f.dirs[path] = true
	f.record("mkdir %s", path)
	return true, nil
}

func (f *fakeHost) Touch(path string) (bool, error) {
	if f.touchNoop {
		return false, nil
	}
	if _, ok := f.files[path]; ok {
		return false, nil
	}
	f.files[path] = ""
	f.record("touch %s", filepath.Base(path))
	return true, nil
}

func (f *fakeHost) Exists(_ context.Context, name string) (bool, error) {
	return f.registered[name], nil
}

func (f *fakeHost) Start(_ context.Context, name string) (bool, error) {
	if f.running[name] {
		return false, nil
	}
	f.running[name] = true
	f.record("start %s", name)
	return true, nil
}

func (f *fakeHost) Restart(_ context.Context, name string) error {
	if err := f.fail("restart " + name); err != nil {
		return err
	}
	f.restarts++
	f.running[name] = true
	f.record("restart %s", name)
	return nil
}

// converged puts the host in the state a successful run leaves behind.
func (f *fakeHost) converged() {
	f.installed[RuntimePackage(f.cfg)] = true
	f.installed[BrokerPackage(f.cfg)] = true
	f.dirs[f.paths.BaseDir] = true
	f.files[f.paths.TrackingFile] = "[rabbit_presence_exchange,rabbitmq_stamp,rabbitmq_management]."
	f.registered[f.cfg.Broker.ServiceName] = true
	f.running[f.cfg.Broker.ServiceName] = true
	for _, p := range f.cfg.PluginArtifacts() {
		f.fetched[p.Path] = true
	}
}
