package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	hosterrors "github.com/alexisbeaulieu97/brokerhost/pkg/errors"
)

// ValidateConfig performs structural and cross-field validation on an entire configuration.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return hosterrors.NewValidationError("config", "configuration is nil", nil)
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]string, len(cfg.Broker.Plugins)+len(cfg.Broker.BundledPlugins))
	for i, p := range cfg.Broker.Plugins {
		field := fmt.Sprintf("broker.plugins[%d].name", i)
		if _, dup := seen[p.Name]; dup {
			return hosterrors.NewValidationError(field, fmt.Sprintf("duplicate plugin %q", p.Name), nil)
		}
		seen[p.Name] = field
	}
	for i, name := range cfg.Broker.BundledPlugins {
		field := fmt.Sprintf("broker.bundledPlugins[%d]", i)
		if other, dup := seen[name]; dup {
			return hosterrors.NewValidationError(field, fmt.Sprintf("plugin %q already declared at %s", name, other), nil)
		}
		seen[name] = field
	}

	if cfg.Runtime.PreviousPackage != "" && cfg.Runtime.PreviousPackage == cfg.Runtime.Package &&
		cfg.Runtime.PreviousVersion == cfg.Runtime.Version {
		return hosterrors.NewValidationError("runtime.previousPackage", "previous runtime must differ from the target runtime", nil)
	}
	if cfg.Broker.PreviousVersion != "" && cfg.Broker.PreviousVersion == cfg.Broker.Version {
		return hosterrors.NewValidationError("broker.previousVersion", "previous broker version must differ from the target version", nil)
	}

	return nil
}

// convertValidationError normalizes validator errors into validation errors
// keyed by the YAML path of the offending field.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return hosterrors.NewValidationError(field, msg, err)
	}

	return hosterrors.NewValidationError("config", err.Error(), err)
}

// yamlishFieldName turns Config.Broker.InstallerURL into broker.installerUrl.
func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		parts[i] = lowerFirst(strings.ReplaceAll(part, "URL", "Url"))
	}
	return strings.Join(parts, ".")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
