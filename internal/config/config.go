// Package config loads apicurate settings from defaults, a TOML file, the
// environment and command-line overrides, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes the environment variables that override settings,
// e.g. APICURATE_UNDO_LIMIT.
const EnvPrefix = "APICURATE_"

// DefaultPaths are tried in order when no config file is named.
var DefaultPaths = []string{"./apicurate.toml", "$HOME/.apicurate.toml"}

// Config holds the resolved settings.
type Config struct {
	Username  string `koanf:"username" validate:"required"`
	API       string `koanf:"api"`
	Usages    string `koanf:"usages"`
	Session   string `koanf:"session" validate:"required"`
	UndoLimit int    `koanf:"undo_limit" validate:"min=1,max=1000"`
	LogLevel  string `koanf:"log_level" validate:"oneof=trace debug info warn error disabled"`
	Filter    string `koanf:"filter"`
	Sort      string `koanf:"sort" validate:"omitempty,oneof=name usages usefulness"`
}

var validate = validator.New()

func defaults() map[string]any {
	user := os.Getenv("USER")
	if user == "" {
		user = "anonymous"
	}
	return map[string]any{
		"username":   user,
		"session":    ".apicurate/session.json",
		"undo_limit": 10,
		"log_level":  "warn",
	}
}

// Load resolves the configuration. path names the config file; when empty
// the first of DefaultPaths that exists is used, if any. overrides, keyed
// like the TOML file, win over everything else.
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	} else {
		for _, p := range DefaultPaths {
			p = os.ExpandEnv(p)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config %s: %w", p, err)
			}
			break
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("loading overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings, naming the offending key on failure.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid config: %s fails %q (got %v)", keyOf(fe.StructField()), fe.Tag(), fe.Value())
	}
	return err
}

func keyOf(field string) string {
	switch field {
	case "UndoLimit":
		return "undo_limit"
	case "LogLevel":
		return "log_level"
	}
	return strings.ToLower(field)
}
