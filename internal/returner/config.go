package returner

import (
	"github.com/reeveops/reeve/internal/logger"
	"github.com/reeveops/reeve/internal/resolve"
)

// builders lists the known returners in the order they are tried. A
// returner is enabled by populating its "returner.<name>" namespace in
// the secure store.
var builders = []struct {
	name  string
	build func(ns map[string]any) (Returner, error)
}{
	{"postgres", func(ns map[string]any) (Returner, error) { return PostgresFromConfig(ns) }},
	{"redis", func(ns map[string]any) (Returner, error) { return RedisFromConfig(ns) }},
	{"influxdb", func(ns map[string]any) (Returner, error) { return InfluxFromConfig(ns) }},
}

// Configured builds a registry holding every returner whose namespace
// exists in the secure store. A nil or empty store yields an empty
// registry.
func Configured(store *resolve.SecureStore, log *logger.Logger) (*Registry, error) {
	reg := NewRegistry(log)
	for _, b := range builders {
		ns := store.Namespace("returner." + b.name)
		if ns == nil {
			continue
		}
		ret, err := b.build(ns)
		if err != nil {
			_ = reg.CloseAll()
			return nil, err
		}
		if err := reg.Register(ret); err != nil {
			_ = reg.CloseAll()
			return nil, err
		}
	}
	return reg, nil
}

// stringSetting reads a string value from a namespace, falling back
// when the key is missing or not a string.
func stringSetting(ns map[string]any, key, fallback string) string {
	if v, ok := ns[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// intSetting reads an integer value from a namespace. YAML decodes
// integers as int, but values that crossed JSON arrive as float64.
func intSetting(ns map[string]any, key string, fallback int) int {
	switch v := ns[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
