package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func validateConfigPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config file is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("config file does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", abs)
	}

	return nil
}

func validateOverrides(overrides []string) error {
	for _, o := range overrides {
		key, _, ok := strings.Cut(o, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("invalid --set %q: expected key=value", o)
		}
	}
	return nil
}

func validateApplyOptions(opts applyOptions) error {
	if err := validateConfigPath(opts.ConfigPath); err != nil {
		return err
	}
	return validateOverrides(opts.Overrides)
}

func validateVerifyOptions(opts verifyOptions) error {
	if err := validateConfigPath(opts.ConfigPath); err != nil {
		return err
	}
	return validateOverrides(opts.Overrides)
}
