package dialect

import (
	"fmt"
	"strings"

	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// ForEngine returns the dialect an engine kind speaks.
func ForEngine(kind hiveseed.EngineKind) (hiveseed.Dialect, error) {
	switch kind {
	case hiveseed.EngineLivy:
		return NewHive(), nil
	case hiveseed.EnginePostgres:
		return NewPostgres(), nil
	default:
		return nil, fmt.Errorf("no dialect for engine %q: %w", kind, hiveseed.ErrInvalidConfig)
	}
}

// ByName looks up a dialect by its name ("hive" or "postgres").
func ByName(name string) (hiveseed.Dialect, error) {
	switch strings.ToLower(name) {
	case "hive", "hiveql", "spark":
		return NewHive(), nil
	case "postgres", "postgresql", "pg":
		return NewPostgres(), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q (expected hive or postgres): %w", name, hiveseed.ErrInvalidConfig)
	}
}

// RenderPlan renders every statement of a provisioning plan in order.
func RenderPlan(d hiveseed.Dialect, plan []hiveseed.Statement) ([]string, error) {
	out := make([]string, 0, len(plan))
	for _, stmt := range plan {
		text, err := d.Render(stmt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stmt.Kind(), err)
		}
		out = append(out, text)
	}
	return out, nil
}
