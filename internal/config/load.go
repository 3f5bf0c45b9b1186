package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pbaille/expertkb/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the project-level config file searched for upward from the working directory
const FileName = "expertkb.toml"

// EnvPrefix prefixes every environment override, e.g. EXPERTKB_SERVER_ADDR
const EnvPrefix = "EXPERTKB"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("database.path", filepath.Join(home, ".expertkb", "expertkb.db"))

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.debounce_ms", 500)

	v.SetDefault("source.path", "")
	v.SetDefault("source.fetch_timeout_seconds", 30)
	v.SetDefault("source.max_bytes", 5*1024*1024)
}

// NewViper builds a Viper instance with defaults, environment binding and,
// when found, a TOML config file. An explicit configPath must exist.
func NewViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if configPath == "" {
		configPath = findConfig()
	} else if _, err := os.Stat(configPath); err != nil {
		return nil, errors.Wrapf(err, "config file %s", configPath)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
		}
	}

	return v, nil
}

// Unmarshal decodes the Viper state into a Config
func Unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg.Database.Path = expandHome(cfg.Database.Path)
	return &cfg, nil
}

// expandHome replaces a leading ~/ with the user's home directory
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// flagKeys maps command-line flags to the config keys they override
var flagKeys = map[string]string{
	"db":        "database.path",
	"json-logs": "log.json",
}

// Load reads configuration from configPath (or the default search locations).
// Flags present in flags override file and environment values; --verbose
// forces debug logging. flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v, err := NewViper(configPath)
	if err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "bind --%s", name)
			}
		}
		if verbose, err := flags.GetBool("verbose"); err == nil && verbose {
			v.Set("log.level", "debug")
		}
	}

	return Unmarshal(v)
}

// findConfig walks up from the working directory looking for expertkb.toml,
// then falls back to ~/.expertkb/config.toml. Returns "" if none exist.
func findConfig() string {
	if dir, err := os.Getwd(); err == nil {
		for {
			candidate := filepath.Join(dir, FileName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".expertkb", "config.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
