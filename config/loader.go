package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SimpleLoader loads configuration from an optional YAML file, then applies
// environment variable overrides. Precedence: defaults < YAML < environment.
type SimpleLoader struct {
	yamlFile  string
	envPrefix string
}

// NewSimpleLoader creates a loader with the VIREO_ env prefix.
func NewSimpleLoader() *SimpleLoader {
	return &SimpleLoader{envPrefix: "VIREO_"}
}

// WithYAMLFile sets the YAML configuration file path. A missing file is
// skipped silently so the same binary runs with or without one.
func (l *SimpleLoader) WithYAMLFile(path string) *SimpleLoader {
	l.yamlFile = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *SimpleLoader) WithEnvPrefix(prefix string) *SimpleLoader {
	l.envPrefix = prefix
	return l
}

// Load implements Loader.
func (l *SimpleLoader) Load(cfg *Config) error {
	*cfg = *DefaultConfig()

	if l.yamlFile != "" {
		data, err := os.ReadFile(l.yamlFile)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("failed to parse %s: %w", l.yamlFile, err)
			}
		case !os.IsNotExist(err):
			return fmt.Errorf("failed to read %s: %w", l.yamlFile, err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	return cfg.Validate()
}

func (l *SimpleLoader) loadFromEnv(cfg *Config) error {
	var err error

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(l.envPrefix + key); ok {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(l.envPrefix + key); ok {
			d, parseErr := time.ParseDuration(v)
			if parseErr != nil {
				err = fmt.Errorf("%s%s: %w", l.envPrefix, key, parseErr)
				return
			}
			*dst = d
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(l.envPrefix + key); ok {
			b, parseErr := strconv.ParseBool(v)
			if parseErr != nil {
				err = fmt.Errorf("%s%s: %w", l.envPrefix, key, parseErr)
				return
			}
			*dst = b
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(l.envPrefix + key); ok {
			f, parseErr := strconv.ParseFloat(v, 64)
			if parseErr != nil {
				err = fmt.Errorf("%s%s: %w", l.envPrefix, key, parseErr)
				return
			}
			*dst = f
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(l.envPrefix + key); ok {
			n, parseErr := strconv.Atoi(v)
			if parseErr != nil {
				err = fmt.Errorf("%s%s: %w", l.envPrefix, key, parseErr)
				return
			}
			*dst = n
		}
	}
	setStrings := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(l.envPrefix + key); ok {
			*dst = strings.Split(v, ",")
		}
	}

	setString("SERVER_ADDRESS", &cfg.Server.Address)
	setDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	setDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	setBool("SERVER_CORS", &cfg.Server.CORS)
	setBool("SERVER_METRICS", &cfg.Server.Metrics)

	setString("LOGGER_LEVEL", &cfg.Logger.Level)
	setString("LOGGER_ENCODING", &cfg.Logger.Encoding)
	setStrings("LOGGER_OUTPUT_PATHS", &cfg.Logger.OutputPaths)
	setStrings("LOGGER_ERROR_OUTPUT_PATHS", &cfg.Logger.ErrorOutputPaths)

	setString("JWT_SECRET_KEY", &cfg.JWT.SecretKey)
	setDuration("JWT_ACCESS_TOKEN_TTL", &cfg.JWT.AccessTokenTTL)
	setDuration("JWT_REFRESH_TOKEN_TTL", &cfg.JWT.RefreshTokenTTL)
	setString("JWT_ISSUER", &cfg.JWT.Issuer)

	setBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setFloat("RATE_LIMIT_RATE", &cfg.RateLimit.Rate)
	setInt("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	return err
}
