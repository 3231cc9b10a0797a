// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full application configuration, loaded from file, env, and
// flag overrides via viper.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Engine      EngineConfig      `mapstructure:"engine" yaml:"engine"`
	Exploration ExplorationConfig `mapstructure:"exploration" yaml:"exploration"`
	Store       StoreConfig       `mapstructure:"store" yaml:"store"`
}

// LoggerConfig mirrors the observability package's needs.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the console color per log level.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig describes the endpoint the simulation engine connects back
// to, and how action traffic is shaped.
type EngineConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	// ActionsPerSecond throttles outgoing actions; zero disables the
	// limiter entirely.
	ActionsPerSecond float64 `mapstructure:"actions_per_second" yaml:"actions_per_second"`
}

// ExplorationConfig tunes the breadth-first grid search.
type ExplorationConfig struct {
	Scene string `mapstructure:"scene" yaml:"scene"`
	// GridSize is the uniform step between adjacent reachable points.
	GridSize float64 `mapstructure:"grid_size" yaml:"grid_size"`
	// HeightCeiling is the vertical bound above which an accepted point
	// indicates the agent was teleported into an invalid airborne state.
	HeightCeiling float64 `mapstructure:"height_ceiling" yaml:"height_ceiling"`
	RandomSeed    uint32  `mapstructure:"random_seed" yaml:"random_seed"`
	Randomize     bool    `mapstructure:"randomize" yaml:"randomize"`
}

// StoreConfig locates the SQLite database survey products are written to.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SetDefaults registers every default value with viper. Called before the
// config file and environment are merged in.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "ai2thor")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("engine.host", "127.0.0.1")
	v.SetDefault("engine.port", 0)
	v.SetDefault("engine.actions_per_second", 0.0)

	v.SetDefault("exploration.scene", "FloorPlan1")
	v.SetDefault("exploration.grid_size", 0.25)
	v.SetDefault("exploration.height_ceiling", 1.3)
	v.SetDefault("exploration.randomize", true)

	v.SetDefault("store.path", "ai2thor.db")
}

// Load reads configuration from the optional file path plus AI2THOR_*
// environment variables and unmarshals it into a validated Config.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("AI2THOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// A missing implicit config file is fine; defaults and env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the core cannot run with.
func (c *Config) Validate() error {
	if c.Exploration.GridSize <= 0 {
		return fmt.Errorf("exploration.grid_size must be positive, got %v", c.Exploration.GridSize)
	}
	if c.Exploration.HeightCeiling <= 0 {
		return fmt.Errorf("exploration.height_ceiling must be positive, got %v", c.Exploration.HeightCeiling)
	}
	if c.Engine.Port < 0 || c.Engine.Port > 65535 {
		return fmt.Errorf("engine.port out of range: %d", c.Engine.Port)
	}
	if c.Engine.ActionsPerSecond < 0 {
		return fmt.Errorf("engine.actions_per_second must not be negative, got %v", c.Engine.ActionsPerSecond)
	}
	return nil
}
