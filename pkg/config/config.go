package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BuildID is the build identifier baked into every widget name.
// Override at link time with -ldflags "-X cityquest-mcp-service/pkg/config.BuildID=...".
var BuildID = "dev"

// EnvPrefix namespaces environment overrides (CITYQUEST_SERVER_ADDR, ...)
const EnvPrefix = "CITYQUEST"

// Transport values accepted by server.transport
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportBoth  = "both"
)

// Game store backends accepted by games.backend
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the full service configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Widgets WidgetsConfig `mapstructure:"widgets"`
	Games   GamesConfig   `mapstructure:"games"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig controls the MCP transports
type ServerConfig struct {
	Transport       string        `mapstructure:"transport"`
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WidgetsConfig controls catalog registration
type WidgetsConfig struct {
	BuildID     string `mapstructure:"build_id"`
	BaseURL     string `mapstructure:"base_url"`
	TemplateDir string `mapstructure:"template_dir"`
	PromptDir   string `mapstructure:"prompt_dir"`
}

// GamesConfig selects and configures the game store
type GamesConfig struct {
	Backend     string `mapstructure:"backend"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	RedisAddr   string `mapstructure:"redis_addr"`
}

// LogConfig controls log verbosity
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", TransportStdio)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("widgets.build_id", BuildID)
	v.SetDefault("widgets.base_url", "")
	v.SetDefault("widgets.template_dir", "")
	v.SetDefault("widgets.prompt_dir", "")
	v.SetDefault("games.backend", BackendMemory)
	v.SetDefault("games.postgres_dsn", "")
	v.SetDefault("games.redis_addr", "redis://localhost:6379/0")
	v.SetDefault("log.level", "info")
}

// NewViper returns a viper instance with defaults and environment binding applied
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from defaults, an optional file and the environment.
// An empty path skips the file; a missing explicit file is an error.
func Load(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP, TransportBoth:
	default:
		return fmt.Errorf("invalid configuration: server.transport must be one of stdio, http, both (got %q)", c.Server.Transport)
	}

	switch c.Games.Backend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.Games.PostgresDSN == "" {
			return fmt.Errorf("invalid configuration: games.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid configuration: games.backend must be one of memory, postgres, redis (got %q)", c.Games.Backend)
	}

	if strings.TrimSpace(c.Widgets.BuildID) == "" {
		c.Widgets.BuildID = BuildID
	}
	return nil
}
