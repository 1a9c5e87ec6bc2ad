package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/irfndi/strategy-chart-go/internal/chart"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Data        DataConfig      `mapstructure:"data"`
	Chart       ChartConfig     `mapstructure:"chart"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AdminAPIKey guards maintenance endpoints. Empty disables them.
	AdminAPIKey string `mapstructure:"admin_api_key"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port pair go-redis expects.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

type PaddingConfig struct {
	Top    float64 `mapstructure:"top"`
	Right  float64 `mapstructure:"right"`
	Bottom float64 `mapstructure:"bottom"`
	Left   float64 `mapstructure:"left"`
}

type ChartConfig struct {
	Width      float64       `mapstructure:"width"`
	Height     float64       `mapstructure:"height"`
	Padding    PaddingConfig `mapstructure:"padding"`
	MainSeries []string      `mapstructure:"main_series"`
	YTickCount int           `mapstructure:"y_tick_count"`
	// ViewTTL is how long an untouched view is kept before eviction.
	ViewTTL time.Duration `mapstructure:"view_ttl"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Exporter    string `mapstructure:"exporter"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)
	config.Telemetry.Exporter = strings.ToLower(config.Telemetry.Exporter)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the values the chart and services cannot run without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	ch := c.Chart
	if ch.Padding.Top < 0 || ch.Padding.Right < 0 || ch.Padding.Bottom < 0 || ch.Padding.Left < 0 {
		return errors.New("chart padding must not be negative")
	}
	if ch.Width-ch.Padding.Left-ch.Padding.Right <= 0 || ch.Height-ch.Padding.Top-ch.Padding.Bottom <= 0 {
		return fmt.Errorf("chart %gx%g leaves no plot area inside its padding", ch.Width, ch.Height)
	}
	if ch.YTickCount < 2 {
		return fmt.Errorf("chart y tick count must be at least 2, got %d", ch.YTickCount)
	}
	if ch.ViewTTL <= 0 {
		return errors.New("chart view TTL must be positive")
	}

	if c.Cache.TTL <= 0 {
		return errors.New("cache TTL must be positive")
	}
	if c.Data.Dir == "" {
		return errors.New("data directory is required")
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case "stdout":
		case "otlp":
			if c.Telemetry.Endpoint == "" {
				return errors.New("telemetry endpoint is required for the otlp exporter")
			}
		default:
			return fmt.Errorf("unknown telemetry exporter %q", c.Telemetry.Exporter)
		}
	}

	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.admin_api_key", "")

	// Redis
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Cache
	viper.SetDefault("cache.ttl", "10m")

	// Data
	viper.SetDefault("data.dir", "./data")

	// Chart
	canvas := chart.DefaultCanvas()
	viper.SetDefault("chart.width", canvas.Width)
	viper.SetDefault("chart.height", canvas.Height)
	viper.SetDefault("chart.padding.top", canvas.Padding.Top)
	viper.SetDefault("chart.padding.right", canvas.Padding.Right)
	viper.SetDefault("chart.padding.bottom", canvas.Padding.Bottom)
	viper.SetDefault("chart.padding.left", canvas.Padding.Left)
	viper.SetDefault("chart.main_series", []string{})
	viper.SetDefault("chart.y_tick_count", 5)
	viper.SetDefault("chart.view_ttl", "30m")

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.exporter", "stdout")
	viper.SetDefault("telemetry.endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", "strategy-chart")
}
