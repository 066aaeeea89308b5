package converge

import (
	"context"

	"github.com/alexisbeaulieu97/brokerhost/internal/config"
	"github.com/alexisbeaulieu97/brokerhost/internal/host"
)

// Report is a read-only view of the host, for operators checking a machine
// before or after a run.
type Report struct {
	Run                RunContext
	BaseDirExists      bool
	TrackingFileExists bool
	ServiceRegistered  bool
	PluginsTracked     map[string]bool
}

// Inspect gathers a Report without mutating anything. Plugin membership is
// only reported when the tracking file exists.
func Inspect(ctx context.Context, cfg *config.Config, exec host.Executors) (Report, error) {
	run, err := Capture(ctx, cfg, exec.Prober)
	if err != nil {
		return Report{}, err
	}
	report := Report{Run: run, PluginsTracked: map[string]bool{}}

	if report.BaseDirExists, err = exec.Prober.PathExists(run.Paths.BaseDir); err != nil {
		return Report{}, err
	}
	if report.TrackingFileExists, err = exec.Prober.PathExists(run.Paths.TrackingFile); err != nil {
		return Report{}, err
	}
	if exec.Services != nil {
		if report.ServiceRegistered, err = exec.Services.Exists(ctx, cfg.Broker.ServiceName); err != nil {
			return Report{}, err
		}
	}

	if report.TrackingFileExists {
		names := make([]string, 0, len(cfg.Broker.Plugins)+len(cfg.Broker.BundledPlugins))
		for _, p := range cfg.Broker.Plugins {
			names = append(names, p.Name)
		}
		names = append(names, cfg.Broker.BundledPlugins...)
		for _, name := range names {
			listed, err := exec.Prober.FileContains(run.Paths.TrackingFile, name)
			if err != nil {
				return Report{}, err
			}
			report.PluginsTracked[name] = listed
		}
	}

	return report, nil
}

// Healthy reports whether the host is in the desired end state: target
// packages present, the old runtime gone, the service registered and every
// configured plugin listed as enabled.
func (r Report) Healthy() bool {
	if !r.Run.BrokerInstalled || !r.Run.RuntimeInstalled || r.Run.PreviousRuntimeInstalled {
		return false
	}
	if !r.BaseDirExists || !r.TrackingFileExists || !r.ServiceRegistered {
		return false
	}
	for _, tracked := range r.PluginsTracked {
		if !tracked {
			return false
		}
	}
	return true
}
