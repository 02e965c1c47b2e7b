package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: DRYDB_GATEWAY__QUERY_TIMEOUT=5s.
const EnvPrefix = "DRYDB_"

// flagKeys maps command-line flags onto configuration keys. Flags not listed
// here are not configuration.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"history":      "history.path",
	"export-dir":   "export.dir",
	"addr":         "server.addr",
	"timeout":      "gateway.query_timeout",
	"history-keep": "history.limit",
}

// Load builds the configuration. path may be empty; flags may be nil. Only
// flags the user actually set override lower layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. config file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns DRYDB_EXPORT__UPLOAD__URL_TTL into export.upload.url_ttl.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
