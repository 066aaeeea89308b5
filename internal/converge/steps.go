package converge

import (
	"context"
	"time"

	"github.com/alexisbeaulieu97/brokerhost/internal/config"
	"github.com/alexisbeaulieu97/brokerhost/internal/host"
)

// Step names. Later guards look earlier results up by these.
const (
	StepBaseDirectory          = "base-directory"
	StepRemovePreviousRuntime  = "remove-previous-runtime"
	StepInstallRuntime         = "install-runtime"
	StepRemovePreviousBroker   = "remove-previous-broker"
	StepSettleAfterRemoval     = "settle-after-broker-removal"
	StepSetRuntimeHome         = "set-runtime-home"
	StepSetBrokerBase          = "set-broker-base"
	StepInstallBroker          = "install-broker"
	StepInstallBrokerService   = "install-broker-service"
	StepTrackingFile           = "tracking-file"
	StepRemoveBrokerService    = "remove-broker-service"
	StepReinstallBrokerService = "reinstall-broker-service"
	StepStartBrokerService     = "start-broker-service"

	fetchPluginPrefix  = "fetch-plugin-"
	enablePluginPrefix = "enable-plugin-"
)

// FetchPluginStep names the download step of a plugin.
func FetchPluginStep(plugin string) string { return fetchPluginPrefix + plugin }

// EnablePluginStep names the enable step of a plugin.
func EnablePluginStep(plugin string) string { return enablePluginPrefix + plugin }

// pluginFetchOptions keeps the previous artifact and only re-downloads when
// the server reports a newer one.
var pluginFetchOptions = host.FetchOptions{ConditionalGet: true, KeepLastModified: true, Backups: 1}

// Option tweaks the table built by BuildSteps.
type Option func(*table)

// WithSleep replaces the pause used after removing the previous broker.
func WithSleep(sleep func(time.Duration)) Option {
	return func(t *table) { t.sleep = sleep }
}

type table struct {
	cfg   *config.Config
	paths config.Paths
	exec  host.Executors
	sleep func(time.Duration)
}

// BuildSteps returns the ordered convergence table for cfg. The order is the
// contract: nothing may be reordered, and each guard only reads results of
// steps above it.
func BuildSteps(cfg *config.Config, exec host.Executors, opts ...Option) []Step {
	t := &table{cfg: cfg, paths: cfg.Paths(), exec: exec, sleep: time.Sleep}
	for _, opt := range opts {
		opt(t)
	}

	steps := []Step{
		{
			Name:        StepBaseDirectory,
			Description: "create " + t.paths.BaseDir,
			NotIf:       t.pathExists(t.paths.BaseDir),
			Action: func(context.Context, RunContext, Results) (bool, error) {
				return t.exec.Files.EnsureDir(t.paths.BaseDir)
			},
		},
		{
			Name:        StepRemovePreviousRuntime,
			Description: "remove " + t.cfg.Runtime.PreviousPackage,
			OnlyIf:      frozen(func(run RunContext) bool { return run.PreviousRuntimeInstalled }),
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				prev, _ := PreviousRuntimePackage(t.cfg)
				return t.exec.Packages.Remove(ctx, prev)
			},
		},
		{
			Name:        StepInstallRuntime,
			Description: "install " + RuntimePackage(t.cfg).String(),
			NotIf:       frozen(func(run RunContext) bool { return run.RuntimeInstalled }),
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				return t.exec.Packages.Install(ctx, RuntimePackage(t.cfg), host.InstallOptions{Source: t.cfg.Runtime.InstallerURL})
			},
		},
		{
			Name:        StepRemovePreviousBroker,
			Description: "remove " + t.cfg.Broker.Package + " " + t.cfg.Broker.PreviousVersion,
			OnlyIf: func(context.Context, RunContext, Results) (bool, error) {
				if _, ok := PreviousBrokerPackage(t.cfg); !ok || t.paths.PreviousBrokerHome == "" {
					return false, nil
				}
				return t.exec.Prober.PathExists(t.paths.PreviousBrokerHome)
			},
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				prev, _ := PreviousBrokerPackage(t.cfg)
				return t.exec.Packages.Remove(ctx, prev)
			},
		},
		{
			Name:        StepSettleAfterRemoval,
			Description: "wait " + t.cfg.Broker.UninstallSettle.String() + " for the uninstaller",
			OnlyIf:      changed(StepRemovePreviousBroker),
			// Not cancellable: the uninstaller keeps running after Remove returns.
			Action: func(context.Context, RunContext, Results) (bool, error) {
				t.sleep(t.cfg.Broker.UninstallSettle)
				return false, nil
			},
		},
		{
			Name:        StepSetRuntimeHome,
			Description: "set " + t.cfg.Runtime.HomeVar,
			OnlyIf:      changed(StepInstallRuntime),
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				return t.exec.Env.SetMachineVar(ctx, t.cfg.Runtime.HomeVar, t.paths.RuntimeHome)
			},
		},
		{
			Name:        StepSetBrokerBase,
			Description: "set " + t.cfg.Broker.BaseVar,
			NotIf:       brokerInstalled,
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				return t.exec.Env.SetMachineVar(ctx, t.cfg.Broker.BaseVar, t.paths.BaseDir)
			},
		},
		{
			Name:        StepInstallBroker,
			Description: "install " + BrokerPackage(t.cfg).String(),
			NotIf:       brokerInstalled,
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				return t.exec.Packages.Install(ctx, BrokerPackage(t.cfg), host.InstallOptions{
					Source:        t.cfg.Broker.InstallerURL,
					InstallerType: t.cfg.Broker.InstallerType,
				})
			},
		},
		{
			Name:        StepInstallBrokerService,
			Description: "register service " + t.cfg.Broker.ServiceName,
			NotIf:       brokerInstalled,
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				exists, err := t.exec.Services.Exists(ctx, t.cfg.Broker.ServiceName)
				if err != nil || exists {
					return false, err
				}
				return t.serviceControl(ctx, "install")
			},
		},
	}

	for _, plugin := range t.cfg.PluginArtifacts() {
		plugin := plugin
		steps = append(steps, Step{
			Name:        FetchPluginStep(plugin.Name),
			Description: "fetch " + plugin.URL,
			NotIf:       brokerInstalled,
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				return t.exec.Fetcher.Fetch(ctx, plugin.URL, plugin.Path, pluginFetchOptions)
			},
		})
	}

	// Unguarded: every containment check below needs the file to exist.
	steps = append(steps, Step{
		Name:        StepTrackingFile,
		Description: "ensure " + t.paths.TrackingFile,
		Action: func(context.Context, RunContext, Results) (bool, error) {
			return t.exec.Files.Touch(t.paths.TrackingFile)
		},
	})

	for _, plugin := range t.cfg.Broker.Plugins {
		name := plugin.Name
		steps = append(steps, Step{
			Name:        EnablePluginStep(name),
			Description: "enable " + name,
			NotIf:       brokerInstalled,
			OnlyIf: func(_ context.Context, _ RunContext, results Results) (bool, error) {
				if results.Changed(FetchPluginStep(name)) {
					return true, nil
				}
				return t.notTracked(name)
			},
			Action: t.enablePlugin(name),
			Notify: []Notification{{Service: t.cfg.Broker.ServiceName, Timing: Immediate}},
		})
	}

	// Bundled plugins ship with the broker package. Unlike downloaded plugins
	// they are not skipped when the broker was already installed.
	for _, name := range t.cfg.Broker.BundledPlugins {
		name := name
		steps = append(steps, Step{
			Name:        EnablePluginStep(name),
			Description: "enable " + name,
			OnlyIf: func(context.Context, RunContext, Results) (bool, error) {
				return t.notTracked(name)
			},
			Action: t.enablePlugin(name),
			Notify: []Notification{{Service: t.cfg.Broker.ServiceName, Timing: Immediate}},
		})
	}

	steps = append(steps,
		Step{
			Name:        StepRemoveBrokerService,
			Description: "remove service " + t.cfg.Broker.ServiceName,
			NotIf:       brokerInstalled,
			OnlyIf:      changed(StepInstallRuntime),
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				return t.serviceControl(ctx, "remove")
			},
		},
		Step{
			Name:        StepReinstallBrokerService,
			Description: "reinstall service " + t.cfg.Broker.ServiceName,
			NotIf:       brokerInstalled,
			OnlyIf:      changed(StepInstallRuntime),
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				return t.serviceControl(ctx, "install")
			},
		},
		Step{
			Name:        StepStartBrokerService,
			Description: "start service " + t.cfg.Broker.ServiceName,
			NotIf:       brokerInstalled,
			Action: func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
				return t.exec.Services.Start(ctx, t.cfg.Broker.ServiceName)
			},
		},
	)

	return steps
}

func (t *table) pathExists(path string) Guard {
	return func(context.Context, RunContext, Results) (bool, error) {
		return t.exec.Prober.PathExists(path)
	}
}

func (t *table) notTracked(plugin string) (bool, error) {
	listed, err := t.exec.Prober.FileContains(t.paths.TrackingFile, plugin)
	if err != nil {
		return false, err
	}
	return !listed, nil
}

func (t *table) enablePlugin(name string) Action {
	return func(ctx context.Context, _ RunContext, _ Results) (bool, error) {
		err := t.exec.Commands.Run(ctx, host.Command{
			Path: t.paths.PluginControl,
			Args: []string{"enable", name},
			Env:  t.commandEnv(),
		})
		return err == nil, err
	}
}

func (t *table) serviceControl(ctx context.Context, verb string) (bool, error) {
	err := t.exec.Commands.Run(ctx, host.Command{
		Path: t.paths.ServiceControl,
		Args: []string{verb},
		Env:  t.commandEnv(),
	})
	return err == nil, err
}

// commandEnv is set on every broker tool invocation: the machine-scope
// variables written earlier are not visible to this process.
func (t *table) commandEnv() map[string]string {
	return map[string]string{
		t.cfg.Runtime.HomeVar: t.paths.RuntimeHome,
		t.cfg.Broker.BaseVar:  t.paths.BaseDir,
	}
}
