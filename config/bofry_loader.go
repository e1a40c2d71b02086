package config

import (
	"fmt"
	"os"

	bofryconfig "github.com/Bofry/config"
)

// BofryLoader loads configuration through the Bofry/config service, which
// supports YAML files, .env files and environment variables in one pass.
type BofryLoader struct {
	yamlFile   string
	dotEnvFile string
	envPrefix  string
}

// NewBofryLoader creates a loader with the VIREO env prefix.
func NewBofryLoader() *BofryLoader {
	return &BofryLoader{envPrefix: "VIREO"}
}

// WithYAMLFile sets the YAML configuration file path.
func (l *BofryLoader) WithYAMLFile(path string) *BofryLoader {
	l.yamlFile = path
	return l
}

// WithDotEnvFile sets the .env file path.
func (l *BofryLoader) WithDotEnvFile(path string) *BofryLoader {
	l.dotEnvFile = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *BofryLoader) WithEnvPrefix(prefix string) *BofryLoader {
	l.envPrefix = prefix
	return l
}

// Load implements Loader. Bofry/config panics on malformed input, so the
// load runs behind a recover and surfaces the panic as an error.
func (l *BofryLoader) Load(cfg *Config) error {
	*cfg = *DefaultConfig()

	var loadErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					loadErr = err
				} else {
					loadErr = fmt.Errorf("configuration loading panic: %v", r)
				}
			}
		}()

		service := bofryconfig.NewConfigurationService(cfg)

		if l.yamlFile != "" {
			if _, err := os.Stat(l.yamlFile); err == nil {
				service.LoadYamlFile(l.yamlFile)
			} else if !os.IsNotExist(err) {
				loadErr = fmt.Errorf("failed to check YAML file: %w", err)
				return
			}
		}

		if l.dotEnvFile != "" {
			if _, err := os.Stat(l.dotEnvFile); err == nil {
				service.LoadDotEnvFile(l.dotEnvFile)
			} else if !os.IsNotExist(err) {
				loadErr = fmt.Errorf("failed to check .env file: %w", err)
				return
			}
		}

		service.LoadEnvironmentVariables(l.envPrefix)
	}()

	if loadErr != nil {
		return loadErr
	}

	// Bofry's env handling does not descend nested structs the way the
	// simple loader does; apply the same overrides for parity.
	simple := &SimpleLoader{envPrefix: l.envPrefix + "_"}
	if err := simple.loadFromEnv(cfg); err != nil {
		return err
	}

	return cfg.Validate()
}
