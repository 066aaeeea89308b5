package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	hosterrors "github.com/alexisbeaulieu97/brokerhost/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseConfig loads a configuration file from disk, layers it over Default(),
// applies dotted key=value overrides, validates it, and returns the result.
func ParseConfig(path string, overrides ...string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, hosterrors.NewParseError(path, 0, err)
	}
	return Decode(path, data, overrides)
}

// Decode is ParseConfig without the file read. name is only used in errors.
func Decode(name string, data []byte, overrides []string) (*Config, error) {
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, hosterrors.NewParseError(name, extractLine(err), err)
	}

	defaults, err := defaultsDocument()
	if err != nil {
		return nil, hosterrors.NewParseError(name, 0, err)
	}
	merged := mergeDocuments(defaults, doc)

	if err := applyOverrides(merged, overrides); err != nil {
		return nil, err
	}

	cfg, err := decodeDocument(merged)
	if err != nil {
		return nil, hosterrors.NewParseError(name, 0, err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeDocument(doc map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaultsDocument renders Default() as a generic document so user documents
// and overrides can be layered over it key by key.
func defaultsDocument() (map[string]any, error) {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("render defaults: %w", err)
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("render defaults: %w", err)
	}
	return doc, nil
}

// mergeDocuments overlays src onto dst. Mappings merge recursively; every
// other value, lists included, replaces the destination value.
func mergeDocuments(dst, src map[string]any) map[string]any {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = mergeDocuments(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
	return dst
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
