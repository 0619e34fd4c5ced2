// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// SourceDSNTemplate holds one %s, replaced by the tenant's source database name.
	SourceDSNTemplate string

	AMQPURL  string
	HTTPAddr string

	Interval      time.Duration
	TenantWorkers int

	LogLevel  string
	LogFormat string

	// EnvFileLoaded is false when no .env file was found.
	EnvFileLoaded bool
}

func Default() Config {
	return Config{
		DBHost:            "localhost",
		DBPort:            "5432",
		DBName:            "campaign_monitor",
		SourceDSNTemplate: "postgres://localhost:5432/%s?sslmode=disable",
		HTTPAddr:          ":8080",
		Interval:          time.Minute,
		TenantWorkers:     4,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// DSN is the connection string of the consolidated store.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// SourceDSN is the connection string of one tenant's source database.
func (c Config) SourceDSN(database string) string {
	return fmt.Sprintf(c.SourceDSNTemplate, database)
}

type fileConfig struct {
	SourceDSNTemplate string `toml:"source_dsn_template"`
	AMQPURL           string `toml:"amqp_url"`
	HTTPAddr          string `toml:"http_addr"`
	Interval          string `toml:"interval"`
	TenantWorkers     int    `toml:"tenant_workers"`
	LogLevel          string `toml:"log_level"`
	LogFormat         string `toml:"log_format"`
}

// Load reads .env (if any), then the environment, then the TOML file named by
// MONITOR_CONFIG_FILE. Keys defined in the file win.
func Load() (Config, error) {
	envLoaded := godotenv.Load() == nil

	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if path := strings.TrimSpace(os.Getenv("MONITOR_CONFIG_FILE")); path != "" {
		if cfg, err = ApplyFile(cfg, path); err != nil {
			return Config{}, err
		}
	}
	cfg.EnvFileLoaded = envLoaded
	return cfg, nil
}

func FromEnv() (Config, error) {
	cfg := Default()

	setString(&cfg.DBUser, "DB_USER")
	setString(&cfg.DBPassword, "DB_PASSWORD")
	setString(&cfg.DBHost, "DB_HOST")
	setString(&cfg.DBPort, "DB_PORT")
	setString(&cfg.DBName, "DB_NAME")
	setString(&cfg.SourceDSNTemplate, "SOURCE_DSN_TEMPLATE")
	setString(&cfg.AMQPURL, "AMQP_URL")
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")

	if v := strings.TrimSpace(os.Getenv("MONITOR_INTERVAL")); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse MONITOR_INTERVAL: %w", err)
		}
		cfg.Interval = d
	}
	if v := strings.TrimSpace(os.Getenv("MONITOR_TENANT_WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("parse MONITOR_TENANT_WORKERS: invalid value %q", v)
		}
		cfg.TenantWorkers = n
	}
	return cfg, cfg.validate()
}

func ApplyFile(cfg Config, path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load monitor config: %w", err)
	}

	if meta.IsDefined("source_dsn_template") {
		cfg.SourceDSNTemplate = strings.TrimSpace(raw.SourceDSNTemplate)
	}
	if meta.IsDefined("amqp_url") {
		cfg.AMQPURL = strings.TrimSpace(raw.AMQPURL)
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("interval") {
		d, err := parseInterval(raw.Interval)
		if err != nil {
			return Config{}, fmt.Errorf("parse interval: %w", err)
		}
		cfg.Interval = d
	}
	if meta.IsDefined("tenant_workers") {
		if raw.TenantWorkers < 1 {
			return Config{}, fmt.Errorf("tenant_workers must be positive, got %d", raw.TenantWorkers)
		}
		cfg.TenantWorkers = raw.TenantWorkers
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("log_format") {
		cfg.LogFormat = strings.TrimSpace(raw.LogFormat)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if strings.Count(c.SourceDSNTemplate, "%s") != 1 {
		return fmt.Errorf("source dsn template must contain exactly one %%s: %q", c.SourceDSNTemplate)
	}
	return nil
}

func parseInterval(v string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", d)
	}
	return d, nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
