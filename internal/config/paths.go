package config

import (
	"path/filepath"
)

// HostPath normalizes a configured path for the host platform.
func HostPath(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(p))
}

// Paths are the filesystem locations a run works with, derived once from the
// configuration.
type Paths struct {
	BaseDir            string
	RuntimeHome        string
	BrokerHome         string
	PreviousBrokerHome string
	ServiceControl     string
	PluginControl      string
	PluginDir          string
	TrackingFile       string
}

// PluginArtifact is a downloadable plugin with its resolved destination.
type PluginArtifact struct {
	Name string
	URL  string
	Path string
}

// Paths derives every HostPath used during a run.
func (c *Config) Paths() Paths {
	home := HostPath(c.Broker.InstallDir)
	tracking := c.TrackingFile
	if tracking == "" {
		tracking = filepath.Join(HostPath(c.BaseDir), "enabled_plugins")
	}
	return Paths{
		BaseDir:            HostPath(c.BaseDir),
		RuntimeHome:        HostPath(c.Runtime.Home),
		BrokerHome:         home,
		PreviousBrokerHome: HostPath(c.Broker.PreviousHome),
		ServiceControl:     filepath.Join(home, "sbin", "rabbitmq-service.bat"),
		PluginControl:      filepath.Join(home, "sbin", "rabbitmq-plugins.bat"),
		PluginDir:          filepath.Join(home, "plugins"),
		TrackingFile:       HostPath(tracking),
	}
}

// PluginArtifacts resolves every downloadable plugin to its destination in the
// broker's plugin directory, in configuration order.
func (c *Config) PluginArtifacts() []PluginArtifact {
	dir := c.Paths().PluginDir
	out := make([]PluginArtifact, 0, len(c.Broker.Plugins))
	for _, p := range c.Broker.Plugins {
		out = append(out, PluginArtifact{Name: p.Name, URL: p.URL, Path: filepath.Join(dir, p.File)})
	}
	return out
}
