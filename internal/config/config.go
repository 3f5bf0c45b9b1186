package config

// Config represents the expertkb configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Source   SourceConfig   `mapstructure:"source"`
}

// DatabaseConfig configures the SQLite history database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig configures zap output
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// WatchConfig configures reloading of the knowledge-base file
type WatchConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	DebounceMS int  `mapstructure:"debounce_ms"` // delay before reloading after the last write
}

// SourceConfig configures how knowledge-base sources are read
type SourceConfig struct {
	Path                string `mapstructure:"path"`                  // default source when none is given on the command line
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds"` // for http(s) sources
	MaxBytes            int64  `mapstructure:"max_bytes"`
}
