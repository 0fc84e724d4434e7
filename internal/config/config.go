package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config is everything a command needs beyond its positional arguments.
// Sources layer in increasing precedence: config file, REPEATER_*
// environment variables, command-line flags.
type Config struct {
	DBPath       string   `koanf:"db_path"`
	Paths        []string `koanf:"paths"`
	CardLimit    int      `koanf:"card_limit" validate:"gte=0"`
	NewCardLimit int      `koanf:"new_card_limit" validate:"gte=0"`
	Shuffle      bool     `koanf:"shuffle"`
	Seed         int64    `koanf:"seed"`
	Verbose      bool     `koanf:"verbose"`
}

// DefaultPath is the conventional config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "repeater", "config.yaml"), nil
}

// Load layers the config sources and validates the result. path may be
// empty or point at a file that doesn't exist yet; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("REPEATER_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "REPEATER_"))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
