package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Risk        RiskConfig     `mapstructure:"risk"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RiskConfig tunes the risk calculation engine.
type RiskConfig struct {
	// DefaultWindowSize is the lookback window in trading days.
	DefaultWindowSize int `mapstructure:"default_window_size"`
	// DefaultSimulations is the Monte Carlo path count when unspecified.
	DefaultSimulations int `mapstructure:"default_simulations"`
	// PriceBufferDays widens price fetches past the window to cover weekends
	// and holidays.
	PriceBufferDays int `mapstructure:"price_buffer_days"`
	// RunTimeoutSeconds bounds a single run's computation.
	RunTimeoutSeconds int `mapstructure:"run_timeout_seconds"`
	// StaleRunAfterSeconds is how long a run may sit in RUNNING before the
	// reaper fails it.
	StaleRunAfterSeconds int `mapstructure:"stale_run_after_seconds"`
	// ReaperSchedule is the cron expression for the stale run sweeper.
	ReaperSchedule string `mapstructure:"reaper_schedule"`
	// ResultCacheTTLSeconds is how long completed run responses stay cached.
	ResultCacheTTLSeconds int `mapstructure:"result_cache_ttl_seconds"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.rate_limit_per_min", 100)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "risk_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	// Risk engine defaults
	viper.SetDefault("risk.default_window_size", 252)
	viper.SetDefault("risk.default_simulations", 10000)
	viper.SetDefault("risk.price_buffer_days", 30)
	viper.SetDefault("risk.run_timeout_seconds", 120)
	viper.SetDefault("risk.stale_run_after_seconds", 600)
	viper.SetDefault("risk.reaper_schedule", "*/5 * * * *")
	viper.SetDefault("risk.result_cache_ttl_seconds", 300)
}

func overrideFromEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		viper.Set("database.url", v)
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			viper.Set("server.port", port)
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		viper.Set("redis.host", v)
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		viper.Set("environment", v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		viper.Set("log_level", v)
	}
}

func validate(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Risk.DefaultWindowSize < 1 {
		return fmt.Errorf("risk default window size must be positive, got %d", config.Risk.DefaultWindowSize)
	}
	if config.Risk.DefaultSimulations < 1 {
		return fmt.Errorf("risk default simulations must be positive, got %d", config.Risk.DefaultSimulations)
	}
	if config.Risk.RunTimeoutSeconds < 1 {
		return fmt.Errorf("risk run timeout must be positive, got %d", config.Risk.RunTimeoutSeconds)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
