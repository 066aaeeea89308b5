package config

import (
	"fmt"
	"strconv"
	"strings"

	hosterrors "github.com/alexisbeaulieu97/brokerhost/pkg/errors"
)

// pluginAlias lets operators write broker.plugin.<name>.url, the key form the
// provisioning runner has always used.
const pluginAlias = "broker.plugin."

func applyOverrides(doc map[string]any, overrides []string) error {
	for _, raw := range overrides {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return hosterrors.NewValidationError("set", fmt.Sprintf("override %q must have the form key=value", raw), nil)
		}
		if strings.HasPrefix(key, pluginAlias) {
			key = "broker.plugins." + strings.TrimPrefix(key, pluginAlias)
		}
		if err := setPath(doc, strings.Split(key, "."), value); err != nil {
			return hosterrors.NewValidationError(key, err.Error(), err)
		}
	}
	return nil
}

// setPath walks a decoded YAML document along parts and assigns value at the
// end. List elements are addressed by their "name" key or by numeric index.
func setPath(doc map[string]any, parts []string, value any) error {
	var cur any = doc
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("empty key segment")
		}
		last := i == len(parts)-1

		switch node := cur.(type) {
		case map[string]any:
			if last {
				node[part] = value
				return nil
			}
			next, ok := node[part]
			if !ok || next == nil {
				next = map[string]any{}
				node[part] = next
			}
			cur = next
		case []any:
			idx := listIndex(node, part)
			if idx < 0 {
				return fmt.Errorf("no list element %q under %s", part, strings.Join(parts[:i], "."))
			}
			if last {
				node[idx] = value
				return nil
			}
			cur = node[idx]
		default:
			return fmt.Errorf("%s is not a mapping", strings.Join(parts[:i], "."))
		}
	}
	return nil
}

func listIndex(list []any, selector string) int {
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := entry["name"].(string); ok && name == selector {
			return i
		}
	}
	if n, err := strconv.Atoi(selector); err == nil && n >= 0 && n < len(list) {
		return n
	}
	return -1
}
