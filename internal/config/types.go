package config

import (
	"time"
)

// Config represents the full host-role configuration document.
type Config struct {
	Name         string        `yaml:"name" validate:"required,min=1,max=100"`
	BaseDir      string        `yaml:"baseDir" validate:"required"`
	TrackingFile string        `yaml:"trackingFile,omitempty"`
	Runtime      RuntimeConfig `yaml:"runtime"`
	Broker       BrokerConfig  `yaml:"broker"`
	Logging      LoggingConfig `yaml:"logging,omitempty"`
	Metrics      MetricsConfig `yaml:"metrics,omitempty"`
	Journal      JournalConfig `yaml:"journal,omitempty"`
}

// RuntimeConfig pins the language runtime the broker runs on.
type RuntimeConfig struct {
	Package         string `yaml:"package" validate:"required"`
	Version         string `yaml:"version,omitempty"`
	PreviousPackage string `yaml:"previousPackage,omitempty"`
	PreviousVersion string `yaml:"previousVersion,omitempty"`
	Home            string `yaml:"home" validate:"required"`
	HomeVar         string `yaml:"homeVar" validate:"required,env_name"`
	InstallerURL    string `yaml:"installerUrl" validate:"required,url"`
}

// BrokerConfig pins the broker package, its service and its plugins.
type BrokerConfig struct {
	Package         string         `yaml:"package" validate:"required"`
	Version         string         `yaml:"version" validate:"required"`
	PreviousVersion string         `yaml:"previousVersion,omitempty"`
	PreviousHome    string         `yaml:"previousHome,omitempty" validate:"required_with=PreviousVersion"`
	InstallDir      string         `yaml:"installDir" validate:"required"`
	InstallerURL    string         `yaml:"installerUrl" validate:"required,url"`
	InstallerType   string         `yaml:"installerType" validate:"required,oneof=nsis msi exe"`
	ServiceName     string         `yaml:"serviceName" validate:"required"`
	BaseVar         string         `yaml:"baseVar" validate:"required,env_name"`
	UninstallSettle time.Duration  `yaml:"uninstallSettle" validate:"min=0"`
	Plugins         []PluginConfig `yaml:"plugins" validate:"dive"`
	BundledPlugins  []string       `yaml:"bundledPlugins" validate:"dive,plugin_name"`
}

// PluginConfig describes a plugin artifact downloaded next to the broker.
type PluginConfig struct {
	Name string `yaml:"name" validate:"required,plugin_name"`
	URL  string `yaml:"url" validate:"required,url"`
	File string `yaml:"file" validate:"required"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level         string `yaml:"level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	HumanReadable bool   `yaml:"humanReadable,omitempty"`
}

// MetricsConfig points at an optional Prometheus textfile-collector target.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// JournalConfig points at an optional SQLite run journal.
type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Default returns the configuration of the original host role: Erlang OTP 18
// replacing OTP 17 and RabbitMQ 3.6.5 replacing 3.3.4. Installer and plugin
// URLs have no sensible default and must be supplied.
func Default() Config {
	return Config{
		Name:    "rabbitmq-windows",
		BaseDir: "c:/RabbitMQ",
		Runtime: RuntimeConfig{
			Package:         "Erlang OTP 18 (7.3)",
			PreviousPackage: "Erlang OTP 17 (6.2)",
			Home:            "c:/Program Files/erl7.3",
			HomeVar:         "ERLANG_HOME",
		},
		Broker: BrokerConfig{
			Package:         "RabbitMQ Server",
			Version:         "3.6.5",
			PreviousVersion: "3.3.4",
			PreviousHome:    "c:/Program Files (x86)/RabbitMQ Server/rabbitmq_server-3.3.4",
			InstallDir:      "c:/Program Files/RabbitMQ Server/rabbitmq_server-3.6.5",
			InstallerType:   "nsis",
			ServiceName:     "RabbitMQ",
			BaseVar:         "RABBITMQ_BASE",
			UninstallSettle: 10 * time.Second,
			Plugins: []PluginConfig{
				{Name: "rabbit_presence_exchange", File: "rabbit_presence_exchange-3.5.1-20150421.ez"},
				{Name: "rabbitmq_stamp", File: "rabbitmq_stamp-1.0.2.ez"},
			},
			BundledPlugins: []string{"rabbitmq_management"},
		},
		Logging: LoggingConfig{Level: "info", HumanReadable: true},
	}
}

// Plugin looks up a downloadable plugin by name.
func (b BrokerConfig) Plugin(name string) (PluginConfig, bool) {
	for _, p := range b.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return PluginConfig{}, false
}
