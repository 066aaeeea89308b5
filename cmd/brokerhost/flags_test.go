package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateConfigPath(t *testing.T) {
	t.Parallel()

	t.Run("returns error when config path is empty", func(t *testing.T) {
		t.Parallel()
		err := validateConfigPath("   ")
		require.Error(t, err)
		require.Contains(t, err.Error(), "required")
	})

	t.Run("returns error when config file is missing", func(t *testing.T) {
		t.Parallel()
		err := validateConfigPath("/path/does/not/exist.yaml")
		require.Error(t, err)
		require.Contains(t, err.Error(), "does not exist")
	})

	t.Run("returns error when config path is a directory", func(t *testing.T) {
		t.Parallel()
		err := validateConfigPath(t.TempDir())
		require.Error(t, err)
		require.Contains(t, err.Error(), "is a directory")
	})

	t.Run("accepts an existing file", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, validateConfigPath(writeTestConfig(t)))
	})
}

func TestValidateOverrides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		overrides []string
		wantErr   bool
	}{
		{"none", nil, false},
		{"well formed", []string{"broker.version=3.6.6", "name=mq02"}, false},
		{"empty value", []string{"runtime.previousPackage="}, false},
		{"missing equals", []string{"broker.version"}, true},
		{"missing key", []string{"=3.6.6"}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateOverrides(tt.overrides)
			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "key=value")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateApplyOptions(t *testing.T) {
	t.Parallel()

	cfg := writeTestConfig(t)
	require.NoError(t, validateApplyOptions(applyOptions{ConfigPath: cfg}))
	require.Error(t, validateApplyOptions(applyOptions{ConfigPath: cfg, Overrides: []string{"oops"}}))
	require.Error(t, validateVerifyOptions(verifyOptions{ConfigPath: ""}))
}
