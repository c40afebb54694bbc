// Package config loads service configuration from a YAML or TOML file, an
// optional .env file and PAYROLL_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config is the complete service configuration.
type Config struct {
	App       AppConfig       `yaml:"app" toml:"app"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Ingestion IngestionConfig `yaml:"ingestion" toml:"ingestion"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// AppConfig names the service and its environment.
type AppConfig struct {
	Name string `yaml:"name" toml:"name"`
	Env  string `yaml:"env" toml:"env"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port" toml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" toml:"allowed_origins"`
}

// DatabaseConfig selects the store driver and its connection settings.
// Path is used by sqlite; the remaining fields by mysql.
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`

	// SQLite
	Path string `yaml:"path" toml:"path"`

	// MySQL
	Host               string        `yaml:"host" toml:"host"`
	Port               int           `yaml:"port" toml:"port"`
	User               string        `yaml:"user" toml:"user"`
	Password           string        `yaml:"password" toml:"password"`
	Name               string        `yaml:"name" toml:"name"`
	MaxConnections     int           `yaml:"max_connections" toml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections" toml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime" toml:"connection_lifetime"`
}

// IngestionConfig bounds a pipeline run.
type IngestionConfig struct {
	StoreTimeout   time.Duration `yaml:"store_timeout" toml:"store_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" toml:"max_upload_bytes"`
}

// LoggingConfig selects the log level and output format (console or json).
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "payroll-engine", Env: "development"},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:             DriverSQLite,
			Path:               "./data/payroll.db",
			Host:               "localhost",
			Port:               3306,
			Name:               "payroll",
			MaxConnections:     10,
			MaxIdleConnections: 5,
			ConnectionLifetime: time.Hour,
		},
		Ingestion: IngestionConfig{
			StoreTimeout:   10 * time.Second,
			MaxUploadBytes: 10 << 20,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration. An empty path falls back to PAYROLL_CONFIG;
// when neither is set only defaults and the environment apply. A missing
// .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("PAYROLL_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to decode toml config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
		return nil
	}

	str("PAYROLL_ENV", &c.App.Env)
	str("PAYROLL_DATABASE_DRIVER", &c.Database.Driver)
	str("PAYROLL_DATABASE_PATH", &c.Database.Path)
	str("PAYROLL_DATABASE_HOST", &c.Database.Host)
	str("PAYROLL_DATABASE_USER", &c.Database.User)
	str("PAYROLL_DATABASE_PASSWORD", &c.Database.Password)
	str("PAYROLL_DATABASE_NAME", &c.Database.Name)
	str("PAYROLL_LOG_LEVEL", &c.Logging.Level)
	str("PAYROLL_LOG_FORMAT", &c.Logging.Format)

	if v, ok := os.LookupEnv("PAYROLL_ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}

	if err := num("PAYROLL_SERVER_PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := num("PAYROLL_DATABASE_PORT", &c.Database.Port); err != nil {
		return err
	}
	if err := dur("PAYROLL_STORE_TIMEOUT", &c.Ingestion.StoreTimeout); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("PAYROLL_MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PAYROLL_MAX_UPLOAD_BYTES: %w", err)
		}
		c.Ingestion.MaxUploadBytes = n
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case DriverMySQL:
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("database.host and database.name are required for mysql")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Ingestion.MaxUploadBytes <= 0 {
		return errors.New("ingestion.max_upload_bytes must be positive")
	}
	return nil
}

// DSN returns the driver specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver != DriverMySQL {
		return d.Path
	}

	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
	cfg.DBName = d.Name
	// Migrations run several statements per file; dates are scanned as text.
	cfg.MultiStatements = true
	cfg.ParseTime = false
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}
