// Package config loads and validates regrade configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig governs pool size, monitor cadence, and run flags.
type EngineConfig struct {
	Concurrency             int  `mapstructure:"concurrency"`
	ProgressIntervalSeconds int  `mapstructure:"progress_interval_seconds"`
	HealthIntervalSeconds   int  `mapstructure:"health_interval_seconds"`
	DryRun                  bool `mapstructure:"dry_run"`
	Notify                  bool `mapstructure:"notify"`
	Verbose                 bool `mapstructure:"verbose"`
}

// DBConfig controls access to the puzzle database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	PuzzlesTable string `mapstructure:"puzzles_table"`
	StatsTable   string `mapstructure:"stats_table"`
	MaxConns     int32  `mapstructure:"max_conns"`
	MinConns     int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for rating-complete notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ServerConfig controls the optional status/metrics HTTP listener.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REGRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.concurrency", 4)
	v.SetDefault("engine.progress_interval_seconds", 1)
	v.SetDefault("engine.health_interval_seconds", 5)
	v.SetDefault("engine.dry_run", false)
	v.SetDefault("engine.notify", false)
	v.SetDefault("engine.verbose", false)
	v.SetDefault("db.puzzles_table", "puzzles")
	v.SetDefault("db.stats_table", "puzzle_stats")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be at least 1")
	}
	if c.Engine.ProgressIntervalSeconds <= 0 {
		return fmt.Errorf("engine.progress_interval_seconds must be > 0")
	}
	if c.Engine.HealthIntervalSeconds <= 0 {
		return fmt.Errorf("engine.health_interval_seconds must be > 0")
	}
	if c.Engine.Notify && (c.PubSub.ProjectID == "" || c.PubSub.TopicID == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_id must be set when engine.notify is enabled")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// ProgressInterval returns the progress sampling cadence as a duration.
func (c Config) ProgressInterval() time.Duration {
	return time.Duration(c.Engine.ProgressIntervalSeconds) * time.Second
}

// HealthInterval returns the health sampling cadence as a duration.
func (c Config) HealthInterval() time.Duration {
	return time.Duration(c.Engine.HealthIntervalSeconds) * time.Second
}
