package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	hosterrors "github.com/alexisbeaulieu97/brokerhost/pkg/errors"
)

const minimalYAML = `name: mq01
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

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "host.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParseConfigLayersOverDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	require.Equal(t, "mq01", cfg.Name)
	require.Equal(t, "c:/RabbitMQ", cfg.BaseDir)
	require.Equal(t, "Erlang OTP 18 (7.3)", cfg.Runtime.Package)
	require.Equal(t, "Erlang OTP 17 (6.2)", cfg.Runtime.PreviousPackage)
	require.Equal(t, "ERLANG_HOME", cfg.Runtime.HomeVar)
	require.Equal(t, "3.6.5", cfg.Broker.Version)
	require.Equal(t, "nsis", cfg.Broker.InstallerType)
	require.Equal(t, 10*time.Second, cfg.Broker.UninstallSettle)
	require.Equal(t, []string{"rabbitmq_management"}, cfg.Broker.BundledPlugins)
	require.Len(t, cfg.Broker.Plugins, 2)
	require.Equal(t, "rabbitmq_stamp", cfg.Broker.Plugins[1].Name)
}

func TestParseConfigAppliesDottedOverrides(t *testing.T) {
	t.Parallel()

	doc := `runtime:
  installerUrl: https://repo.example.com/otp.exe
broker:
  installerUrl: https://repo.example.com/rabbit.exe
`
	cfg, err := ParseConfig(writeConfig(t, doc),
		"broker.plugin.rabbit_presence_exchange.url=https://repo.example.com/presence.ez",
		"broker.plugins.rabbitmq_stamp.url=https://repo.example.com/stamp.ez",
		"broker.uninstallSettle=250ms",
		"logging.humanReadable=false",
		"broker.bundledPlugins=rabbitmq_management,rabbitmq_shovel",
	)
	require.NoError(t, err)

	presence, ok := cfg.Broker.Plugin("rabbit_presence_exchange")
	require.True(t, ok)
	require.Equal(t, "https://repo.example.com/presence.ez", presence.URL)
	require.Equal(t, "rabbit_presence_exchange-3.5.1-20150421.ez", presence.File)

	stamp, ok := cfg.Broker.Plugin("rabbitmq_stamp")
	require.True(t, ok)
	require.Equal(t, "https://repo.example.com/stamp.ez", stamp.URL)

	require.Equal(t, 250*time.Millisecond, cfg.Broker.UninstallSettle)
	require.False(t, cfg.Logging.HumanReadable)
	require.Equal(t, []string{"rabbitmq_management", "rabbitmq_shovel"}, cfg.Broker.BundledPlugins)
}

func TestParseConfigErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		contents  string
		overrides []string
		assert    func(t *testing.T, err error)
	}{
		{
			name:     "malformed yaml reports line",
			contents: "name: mq01\nbroker: [unterminated\n",
			assert: func(t *testing.T, err error) {
				var parseErr *hosterrors.ParseError
				require.ErrorAs(t, err, &parseErr)
			},
		},
		{
			name:     "missing plugin urls fail validation",
			contents: "runtime:\n  installerUrl: https://x.example.com/a.exe\nbroker:\n  installerUrl: https://x.example.com/b.exe\n",
			assert: func(t *testing.T, err error) {
				var validationErr *hosterrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Equal(t, "broker.plugins[0].url", validationErr.Field)
			},
		},
		{
			name:     "unknown keys are rejected",
			contents: minimalYAML + "unexpected: true\n",
			assert: func(t *testing.T, err error) {
				var parseErr *hosterrors.ParseError
				require.ErrorAs(t, err, &parseErr)
				require.Contains(t, err.Error(), "unexpected")
			},
		},
		{
			name:      "override without equals sign",
			contents:  minimalYAML,
			overrides: []string{"broker.version"},
			assert: func(t *testing.T, err error) {
				var validationErr *hosterrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Equal(t, "set", validationErr.Field)
			},
		},
		{
			name:      "override of unknown plugin",
			contents:  minimalYAML,
			overrides: []string{"broker.plugin.rabbitmq_shovel.url=https://x.example.com/s.ez"},
			assert: func(t *testing.T, err error) {
				var validationErr *hosterrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Contains(t, err.Error(), "rabbitmq_shovel")
			},
		},
		{
			name:     "bad env var name",
			contents: minimalYAML + "  baseVar: RABBIT-BASE\n",
			assert: func(t *testing.T, err error) {
				var validationErr *hosterrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Equal(t, "broker.baseVar", validationErr.Field)
			},
		},
		{
			name:     "duplicate plugin across bundled and downloaded",
			contents: minimalYAML + "  bundledPlugins: [rabbitmq_stamp]\n",
			assert: func(t *testing.T, err error) {
				var validationErr *hosterrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Equal(t, "broker.bundledPlugins[0]", validationErr.Field)
			},
		},
		{
			name:      "previous broker version equal to target",
			contents:  minimalYAML,
			overrides: []string{"broker.previousVersion=3.6.5"},
			assert: func(t *testing.T, err error) {
				var validationErr *hosterrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Equal(t, "broker.previousVersion", validationErr.Field)
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseConfig(writeConfig(t, tc.contents), tc.overrides...)
			require.Error(t, err)
			tc.assert(t, err)
		})
	}
}

func TestParseConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	var parseErr *hosterrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.True(t, os.IsNotExist(parseErr.Err))
}
