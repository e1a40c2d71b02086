// Package config provides configuration for the server, logging, auth and
// rate limiting, loadable from YAML files and environment variables.
package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Logger    LoggerConfig    `yaml:"logger" env:"LOGGER"`
	JWT       JWTConfig       `yaml:"jwt" env:"JWT"`
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string        `yaml:"address" env:"ADDRESS" default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" default:"30s"`
	CORS            bool          `yaml:"cors" env:"CORS" default:"true"`
	Metrics         bool          `yaml:"metrics" env:"METRICS" default:"true"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level            string   `yaml:"level" env:"LEVEL" default:"info"`
	Encoding         string   `yaml:"encoding" env:"ENCODING" default:"json"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS" default:"stdout"`
	ErrorOutputPaths []string `yaml:"error_output_paths" env:"ERROR_OUTPUT_PATHS" default:"stderr"`
}

// JWTConfig holds token settings for the auth middleware.
type JWTConfig struct {
	SecretKey       string        `yaml:"secret_key" env:"SECRET_KEY"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" default:"1h"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" default:"vireo-server"`
}

// RateLimitConfig holds rate limiter settings.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" env:"ENABLED" default:"false"`
	Rate    float64 `yaml:"rate" env:"RATE" default:"10"`
	Burst   int     `yaml:"burst" env:"BURST" default:"20"`
}

// Loader loads configuration from a source into cfg.
type Loader interface {
	Load(cfg *Config) error
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS:            true,
			Metrics:         true,
		},
		Logger: LoggerConfig{
			Level:            "info",
			Encoding:         "json",
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		},
		JWT: JWTConfig{
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			Issuer:          "vireo-server",
		},
		RateLimit: RateLimitConfig{
			Rate:  10,
			Burst: 20,
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}
	if c.RateLimit.Enabled && c.RateLimit.Rate <= 0 {
		return fmt.Errorf("rate limit rate must be positive when enabled")
	}
	if _, err := zapcore.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid logger level %q: %w", c.Logger.Level, err)
	}
	return nil
}

// BuildLogger constructs a zap logger from the logger settings.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logger level %q: %w", c.Logger.Level, err)
	}

	zc := zap.NewProductionConfig()
	if c.Logger.Encoding == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = c.Logger.Encoding
	if len(c.Logger.OutputPaths) > 0 {
		zc.OutputPaths = c.Logger.OutputPaths
	}
	if len(c.Logger.ErrorOutputPaths) > 0 {
		zc.ErrorOutputPaths = c.Logger.ErrorOutputPaths
	}
	return zc.Build()
}
