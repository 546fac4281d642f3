package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultToken is only acceptable outside production.
const DefaultToken = "dev-token"

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		// X-Forwarded-For is only honoured from these CIDRs or addresses
		TrustedProxies []string `yaml:"trustedProxies"`
	} `yaml:"server"`

	Auth struct {
		Token string `yaml:"token"`
	} `yaml:"auth"`

	AI struct {
		APIKey    string        `yaml:"apiKey"`
		Model     string        `yaml:"model"`
		BaseURL   string        `yaml:"baseURL"`
		MaxTokens int           `yaml:"maxTokens"`
		Timeout   time.Duration `yaml:"timeout"`
		Retries   int           `yaml:"retries"`
	} `yaml:"ai"`

	Batch struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"batch"`

	Database struct {
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requestsPerSecond"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rateLimit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`
}

// Load baca file config.yaml. A missing file is not an error: defaults and
// environment variables are enough to run locally.
func Load(path string) (*Config, error) {
	var cfg Config
	// zero is a meaningful value here, so preset before decoding
	cfg.AI.Retries = 1

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// a full batch may wait on several model calls
		c.Server.WriteTimeout = 2 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Auth.Token == "" {
		c.Auth.Token = DefaultToken
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 400
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 30 * time.Second
	}
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = 4
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.DSN == "" {
		c.Database.DSN = "analyses.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.AI.APIKey, "OPENAI_API_KEY")
	setString(&c.AI.Model, "OPENAI_MODEL")
	setString(&c.AI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Auth.Token, "API_TOKEN")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch concurrency must not be negative")
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		return fmt.Errorf("minio enabled but endpoint or bucketName missing")
	}
	return nil
}

// UsesDefaultToken reports whether the bearer token was never configured.
func (c *Config) UsesDefaultToken() bool { return c.Auth.Token == DefaultToken }

// DatabaseDSN returns the DSN for the configured driver, building it from the
// host/port fields when no explicit DSN is set.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	switch c.Database.Driver {
	case DriverMySQL:
		return c.MySQLDSN()
	case DriverPostgres:
		return c.PostgresDSN()
	}
	return ""
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a postgres:// URL from the database fields.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
