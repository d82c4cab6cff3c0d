package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"

	"github.com/Clark-Hu/movies-catalog/internal/logging"
)

// Environment names accepted in APP_ENV.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// ConfigPathEnvVar overrides the optional YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Config captures all runtime configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Logging LoggingConfig `koanf:"logging"`
	API     APIConfig     `koanf:"api"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            string        `koanf:"port"`
	Environment     string        `koanf:"environment"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig locates the primary and secondary store files.
type StoreConfig struct {
	MovieDBPath   string `koanf:"movie_db_path"`
	RatingsDBPath string `koanf:"ratings_db_path"`
}

// LoggingConfig feeds logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// APIConfig covers response shaping and CORS.
type APIConfig struct {
	CORSOrigins  []string `koanf:"cors_origins"`
	BudgetLocale string   `koanf:"budget_locale"`
}

// Development reports whether error details may be exposed to clients.
func (c Config) Development() bool {
	return c.Server.Environment == EnvDevelopment
}

// Addr is the listen address for http.Server.
func (c Config) Addr() string {
	return ":" + c.Server.Port
}

// Default returns the built-in defaults, the lowest configuration layer.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "3000",
			Environment:     EnvProduction,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			MovieDBPath:   "db/movies.db",
			RatingsDBPath: "db/ratings.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		API: APIConfig{
			CORSOrigins:  []string{"*"},
			BudgetLocale: "en-US",
		},
	}
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	"port":                 "server.port",
	"app_env":              "server.environment",
	"server_read_timeout":  "server.read_timeout",
	"server_write_timeout": "server.write_timeout",
	"server_idle_timeout":  "server.idle_timeout",
	"shutdown_timeout":     "server.shutdown_timeout",
	"movie_db_path":        "store.movie_db_path",
	"ratings_db_path":      "store.ratings_db_path",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
	"log_caller":           "logging.caller",
	"cors_origins":         "api.cors_origins",
	"budget_locale":        "api.budget_locale",
}

// Load layers defaults, an optional YAML file and environment variables, then validates.
func Load() (Config, error) {
	k := koanf.New(".")

	defaults := Default()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := splitCommaList(k, "api.cors_origins"); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field and names the environment variable at fault.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be an integer between 1 and 65535, got %q", c.Server.Port)
	}
	switch c.Server.Environment {
	case EnvProduction, EnvDevelopment, EnvTest:
	default:
		return fmt.Errorf("APP_ENV must be one of production, development, test, got %q", c.Server.Environment)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("SERVER_READ_TIMEOUT must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("SERVER_WRITE_TIMEOUT must be positive")
	}
	if c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("SERVER_IDLE_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if strings.TrimSpace(c.Store.MovieDBPath) == "" {
		return fmt.Errorf("MOVIE_DB_PATH is required")
	}
	if strings.TrimSpace(c.Store.RatingsDBPath) == "" {
		return fmt.Errorf("RATINGS_DB_PATH is required")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	if f := strings.ToLower(c.Logging.Format); f != "json" && f != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	if _, err := language.Parse(c.API.BudgetLocale); err != nil {
		return fmt.Errorf("BUDGET_LOCALE %q: %w", c.API.BudgetLocale, err)
	}
	return nil
}

// envTransform returns the koanf path for known variables and "" (skip) otherwise.
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// splitCommaList turns a comma-separated env string into a slice for path.
func splitCommaList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}
