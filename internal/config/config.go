package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"TRIPS_SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"TRIPS_DATABASE_"`
	Storage  StorageConfig  `yaml:"storage" envPrefix:"TRIPS_STORAGE_"`
	JWT      JWTConfig      `yaml:"jwt" envPrefix:"TRIPS_JWT_"`
	Log      LogConfig      `yaml:"log" envPrefix:"TRIPS_LOG_"`
	App      AppConfig      `yaml:"app" envPrefix:"TRIPS_APP_"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" env:"PORT"`
	Host         string        `yaml:"host" env:"HOST"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DRIVER"` // postgres or memory
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"DBNAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
	Migrate  bool   `yaml:"migrate" env:"MIGRATE"`
}

// StorageConfig selects and configures the photo store
type StorageConfig struct {
	Driver string      `yaml:"driver" env:"DRIVER"` // s3, minio or local
	S3     S3Config    `yaml:"s3" envPrefix:"S3_"`
	Minio  MinioConfig `yaml:"minio" envPrefix:"MINIO_"`
	Local  LocalConfig `yaml:"local" envPrefix:"LOCAL_"`
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region    string `yaml:"region" env:"REGION"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	Prefix    string `yaml:"prefix" env:"PREFIX"`
}

// MinioConfig holds MinIO configuration
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
}

// LocalConfig holds local disk storage configuration
type LocalConfig struct {
	Dir string `yaml:"dir" env:"DIR"`
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret     string        `yaml:"secret" env:"SECRET"`
	CookieName string        `yaml:"cookie_name" env:"COOKIE_NAME"`
	TTL        time.Duration `yaml:"ttl" env:"TTL"`
	Secure     bool          `yaml:"secure" env:"SECURE"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// AppConfig holds trip handling settings
type AppConfig struct {
	Timezone       string  `yaml:"timezone" env:"TIMEZONE"`
	MaxUploadBytes int64   `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	LoginRate      float64 `yaml:"login_rate" env:"LOGIN_RATE"`
	LoginBurst     int     `yaml:"login_burst" env:"LOGIN_BURST"`
}

// Load reads configuration from a YAML file and applies TRIPS_* environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.Local.Dir == "" {
		c.Storage.Local.Dir = "uploads"
	}
	if c.JWT.CookieName == "" {
		c.JWT.CookieName = "trips_session"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "UTC"
	}
	if c.App.MaxUploadBytes == 0 {
		c.App.MaxUploadBytes = 10 << 20
	}
	if c.App.LoginRate == 0 {
		c.App.LoginRate = 1
	}
	if c.App.LoginBurst == 0 {
		c.App.LoginBurst = 5
	}
}

// Validate checks that the configuration can start the application
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required")
		}
	case "minio":
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return fmt.Errorf("storage.minio.endpoint and storage.minio.bucket are required")
		}
	case "local":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}

	if _, err := c.App.Location(); err != nil {
		return err
	}

	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the PostgreSQL connection URL used by the migration runner
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Location resolves the configured time zone
func (c *AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid app.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
