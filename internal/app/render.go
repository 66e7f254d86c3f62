package app

import (
	"fmt"
	"strings"

	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/engine/host"
	"gopkg.in/yaml.v3"
)

// EmptyOutput is rendered when the selected value is absent.
const EmptyOutput = "Empty"

// renderPath renders the value at a dotted path of the snapshot data. An empty path renders the whole
// snapshot as YAML.
func renderPath(path string) host.RenderFunc {
	var segments []string
	if path != "" {
		segments = strings.Split(path, ".")
	}

	return func(s domain.Snapshot) string {
		var value any = s.Data
		for _, segment := range segments {
			m, ok := value.(map[string]any)
			if !ok {
				return EmptyOutput
			}
			value = m[segment]
		}
		return format(value)
	}
}

func format(value any) string {
	switch v := value.(type) {
	case nil:
		return EmptyOutput
	case string:
		return v
	case map[string]any:
		if len(v) == 0 {
			return EmptyOutput
		}
		return marshal(v)
	case []any:
		return marshal(v)
	default:
		return fmt.Sprint(v)
	}
}

func marshal(v any) string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(string(out), "\n")
}
