// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	SessionSecret  string `mapstructure:"SESSION_SECRET"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	GeminiAPIKey string  `mapstructure:"GEMINI_API_KEY"`
	TextModel    string  `mapstructure:"TEXT_MODEL"`
	ImageModel   string  `mapstructure:"IMAGE_MODEL"`
	VideoModel   string  `mapstructure:"VIDEO_MODEL"`
	PostCount    int     `mapstructure:"POST_COUNT"`
	Temperature  float64 `mapstructure:"TEMPERATURE"`

	VideoPollSeconds int    `mapstructure:"VIDEO_POLL_SECONDS"`
	VideoMaxPolls    int    `mapstructure:"VIDEO_MAX_POLLS"`
	VideoResolution  string `mapstructure:"VIDEO_RESOLUTION"`
	VideoAspect      string `mapstructure:"VIDEO_ASPECT"`

	RedisURL          string `mapstructure:"REDIS_URL"`
	SessionTTLMinutes int    `mapstructure:"SESSION_TTL_MINUTES"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBPath     string `mapstructure:"DB_PATH"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	SamplerRatio    float64 `mapstructure:"SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional; environment variables alone are fine.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "8456")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("SESSION_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")

	viper.SetDefault("TEXT_MODEL", "gemini-2.5-flash")
	viper.SetDefault("IMAGE_MODEL", "gemini-2.5-flash-image")
	viper.SetDefault("VIDEO_MODEL", "veo-2.0-generate-001")
	viper.SetDefault("POST_COUNT", 4)
	viper.SetDefault("TEMPERATURE", 1.2)

	viper.SetDefault("VIDEO_POLL_SECONDS", 5)
	viper.SetDefault("VIDEO_MAX_POLLS", 60)
	viper.SetDefault("VIDEO_RESOLUTION", "720p")
	viper.SetDefault("VIDEO_ASPECT", "16:9")

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("SESSION_TTL_MINUTES", 120)

	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_PATH", "threads.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "threads")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.PostCount != 4 && c.PostCount != 8 {
		return errors.New("POST_COUNT must be 4 or 8")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("TEMPERATURE must be between 0 and 2")
	}

	isProduction := c.Env == "production" || c.Env == "prod"

	if isProduction {
		if c.SessionSecret == "your-secret-key-change-in-production" {
			return errors.New("SESSION_SECRET must be changed from the default value in production")
		}
		if len(c.SessionSecret) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters in production")
		}
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else {
		if c.GeminiAPIKey == "" {
			log.Println("WARNING: GEMINI_API_KEY is not set. Generation requests will fail until a key is provided.")
		}
	}

	return nil
}
