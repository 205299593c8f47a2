package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/portal-dev/portal/internal/router"
)

const ConfigFileName = "portal.yaml"

var (
	// ErrConfigNotFound is returned when no portal.yaml exists up to the filesystem root
	ErrConfigNotFound = errors.New("portal.yaml not found")
	// ErrNoEnvironments is returned when the project config lists no environment
	ErrNoEnvironments = errors.New("no environments configured in portal.yaml")
)

// Environment is one deployment of the application the CLI can talk to
type Environment struct {
	Alias       string `yaml:"alias" validate:"required,alphanumdash"`
	BackendURL  string `yaml:"backend_url" validate:"required,url"`
	AuthURL     string `yaml:"auth_url,omitempty" validate:"omitempty,url"`
	FrontendURL string `yaml:"frontend_url,omitempty" validate:"omitempty,url"`
}

// Config represents the project configuration file
type Config struct {
	Environments []Environment `yaml:"environments" validate:"dive"`
	Routes       []router.Route `yaml:"routes,omitempty"`

	// Path is the file the config was loaded from, empty for a config built in memory
	Path string `yaml:"-"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Allow alphanumeric, hyphens, and underscores only (aliases are used as storage namespaces)
	v.RegisterValidation("alphanumdash", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') ||
				(char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9') ||
				char == '-' ||
				char == '_') {
				return false
			}
		}
		return true
	})

	return v
}

// Validate checks every environment entry
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: %q failed %q validation", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}

	seen := make(map[string]bool, len(c.Environments))
	for _, env := range c.Environments {
		if seen[env.Alias] {
			return fmt.Errorf("duplicate environment alias %q", env.Alias)
		}
		seen[env.Alias] = true
	}
	return nil
}

// FindConfigFile searches for portal.yaml in the current directory and its parents
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search upwards until we find portal.yaml or reach root
	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w in %s or any parent directory", ErrConfigNotFound, currentDir)
}

// Load reads and validates the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	cfg.Path = path
	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetEnvironmentByAlias returns an environment by its alias
func (c *Config) GetEnvironmentByAlias(alias string) (*Environment, error) {
	for i := range c.Environments {
		if c.Environments[i].Alias == alias {
			return &c.Environments[i], nil
		}
	}
	return nil, fmt.Errorf("environment with alias '%s' not found", alias)
}

// GetDefaultEnvironment returns the first environment in the list
func (c *Config) GetDefaultEnvironment() (*Environment, error) {
	if len(c.Environments) == 0 {
		return nil, ErrNoEnvironments
	}
	return &c.Environments[0], nil
}
