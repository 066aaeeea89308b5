package converge

import (
	"context"

	"github.com/alexisbeaulieu97/brokerhost/internal/config"
	"github.com/alexisbeaulieu97/brokerhost/internal/host"
)

// RunContext is the start-of-run snapshot every guard reads. It is captured
// once, before any step mutates the host, and never refreshed: a step that
// installs the broker does not flip BrokerInstalled for the steps after it.
type RunContext struct {
	PreviousRuntimeInstalled bool
	RuntimeInstalled         bool
	BrokerInstalled          bool
	Paths                    config.Paths
}

// Capture probes the host and freezes the answers into a RunContext.
func Capture(ctx context.Context, cfg *config.Config, prober host.Prober) (RunContext, error) {
	run := RunContext{Paths: cfg.Paths()}

	if prev, ok := PreviousRuntimePackage(cfg); ok {
		installed, err := prober.IsPackageInstalled(ctx, prev)
		if err != nil {
			return RunContext{}, err
		}
		run.PreviousRuntimeInstalled = installed
	}

	installed, err := prober.IsPackageInstalled(ctx, RuntimePackage(cfg))
	if err != nil {
		return RunContext{}, err
	}
	run.RuntimeInstalled = installed

	installed, err = prober.IsPackageInstalled(ctx, BrokerPackage(cfg))
	if err != nil {
		return RunContext{}, err
	}
	run.BrokerInstalled = installed

	return run, nil
}

// RuntimePackage is the runtime the host must end up with.
func RuntimePackage(cfg *config.Config) host.PackageSpec {
	return host.PackageSpec{Name: cfg.Runtime.Package, Version: cfg.Runtime.Version}
}

// PreviousRuntimePackage is the runtime generation to remove, if configured.
func PreviousRuntimePackage(cfg *config.Config) (host.PackageSpec, bool) {
	if cfg.Runtime.PreviousPackage == "" {
		return host.PackageSpec{}, false
	}
	return host.PackageSpec{Name: cfg.Runtime.PreviousPackage, Version: cfg.Runtime.PreviousVersion}, true
}

// BrokerPackage is the broker the host must end up with.
func BrokerPackage(cfg *config.Config) host.PackageSpec {
	return host.PackageSpec{Name: cfg.Broker.Package, Version: cfg.Broker.Version}
}

// PreviousBrokerPackage is the broker generation to remove, if configured.
func PreviousBrokerPackage(cfg *config.Config) (host.PackageSpec, bool) {
	if cfg.Broker.PreviousVersion == "" {
		return host.PackageSpec{}, false
	}
	return host.PackageSpec{Name: cfg.Broker.Package, Version: cfg.Broker.PreviousVersion}, true
}
