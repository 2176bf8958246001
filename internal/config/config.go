package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultMongoURI = "mongodb://localhost:27017/construction_management"
	defaultPort     = "3000"
)

type Config struct {
	Port            string        `yaml:"port"`
	StoreDriver     string        `yaml:"store_driver"`
	MongoURI        string        `yaml:"mongodb_uri"`
	MongoDatabase   string        `yaml:"mongodb_database"`
	PostgresDSN     string        `yaml:"db_dsn"`
	ConnectTimeout  time.Duration `yaml:"db_connect_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	EnableMetrics      bool     `yaml:"enable_metrics"`
	EnableSwagger      bool     `yaml:"enable_swagger"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// The bulk loader stays dormant unless ImportOnStart is set.
	ImportOnStart bool   `yaml:"import_on_start"`
	ImportDir     string `yaml:"import_dir"`

	Environment string `yaml:"environment"`
}

func defaults() *Config {
	return &Config{
		Port:               defaultPort,
		StoreDriver:        "mongo",
		MongoURI:           defaultMongoURI,
		ConnectTimeout:     10 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		CORSAllowedOrigins: []string{"*"},
		ImportDir:          ".",
		Environment:        "development",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and finally the process environment.
func Load() (*Config, error) {
	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(err, "parsing config file %s", path)
		}
	}

	config.Port = getEnv("PORT", config.Port)
	config.StoreDriver = getEnv("STORE_DRIVER", config.StoreDriver)
	config.MongoURI = getEnv("MONGODB_URI", config.MongoURI)
	config.MongoDatabase = getEnv("MONGODB_DATABASE", config.MongoDatabase)
	config.PostgresDSN = getEnv("DB_DSN", config.PostgresDSN)
	config.ConnectTimeout = getDuration("DB_CONNECT_TIMEOUT", config.ConnectTimeout)
	config.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", config.ShutdownTimeout)
	config.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", config.LogLevel))
	config.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", config.LogFormat))
	config.EnableMetrics = getBool("ENABLE_METRICS", config.EnableMetrics)
	config.EnableSwagger = getBool("ENABLE_SWAGGER", config.EnableSwagger)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		config.CORSAllowedOrigins = splitList(origins)
	}
	config.ImportOnStart = getBool("IMPORT_ON_START", config.ImportOnStart)
	config.ImportDir = getEnv("IMPORT_DIR", config.ImportDir)
	config.Environment = getEnv("ENVIRONMENT", config.Environment)

	return config, nil
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return errors.Errorf("invalid PORT %q", c.Port)
	}

	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required for the mongo store driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("DB_DSN is required for the postgres store driver")
		}
	case "memory":
		if c.IsProduction() {
			return errors.New("the memory store driver cannot be used in production")
		}
	default:
		return errors.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.ConnectTimeout <= 0 {
		return errors.New("DB_CONNECT_TIMEOUT must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// LoadAndValidate loads the configuration and validates it.
func LoadAndValidate() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return config, nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
