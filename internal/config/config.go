package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server Server `yaml:"server"`

	Database Database `yaml:"database"`

	JWT JWT `yaml:"jwt"`

	Log Log `yaml:"log"`

	Redis Redis `yaml:"redis"`

	Kafka Kafka `yaml:"kafka"`

	WhatsApp WhatsApp `yaml:"whatsapp"`

	Lifecycle Lifecycle `yaml:"lifecycle"`

	Archive Archive `yaml:"archive"`
}

type Server struct {
	Address      string        `yaml:"address" env:"HTTP_ADDR"`
	Mode         string        `yaml:"mode"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// AllowedOrigins limits websocket upgrades; empty allows all
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
}

type JWT struct {
	Secret    string `yaml:"secret" env:"JWT_SECRET"`
	ExpiresIn int    `yaml:"expires_in"` // In Hours
}

type Database struct {
	Host     string `yaml:"host" env:"DATABASE_HOST"`
	Port     int    `yaml:"port" env:"DATABASE_PORT"`
	User     string `yaml:"user" env:"DATABASE_USER"`
	Password string `yaml:"password" env:"DATABASE_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DATABASE_NAME"`
	SSLMode  string `yaml:"sslmode" env:"DATABASE_SSLMODE"`
}

// DSN returns the lib/pq keyword connection string
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// URL returns the connection string in URL form, as golang-migrate expects
func (d Database) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Pretty bool   `yaml:"pretty"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	StageTTL time.Duration `yaml:"stage_ttl"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

type Kafka struct {
	// Empty disables the order event stream
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic"`
}

type WhatsApp struct {
	WebhookURL    string        `yaml:"webhook_url" env:"WHATSAPP_WEBHOOK_URL"`
	InboundSecret string        `yaml:"inbound_secret" env:"WHATSAPP_INBOUND_SECRET"`
	Timeout       time.Duration `yaml:"timeout"`
}

type Lifecycle struct {
	AdminOverride bool `yaml:"admin_override"`
	// NotifyTimeout bounds each notifier call
	NotifyTimeout time.Duration `yaml:"notify_timeout"`
}

type Archive struct {
	Schedule string  `yaml:"schedule"`
	TipRate  float64 `yaml:"tip_rate"`
}

func Load() (*Config, error) {
	configPath := "configs/development.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}

	f, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes YAML from r, overlays environment variables and applies
// defaults
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.JWT.ExpiresIn == 0 {
		c.JWT.ExpiresIn = 24
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Redis.StageTTL == 0 {
		c.Redis.StageTTL = 5 * time.Minute
	}
	if c.Redis.DedupTTL == 0 {
		c.Redis.DedupTTL = 48 * time.Hour
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "kitchen.order.stage"
	}
	if c.WhatsApp.Timeout == 0 {
		c.WhatsApp.Timeout = 10 * time.Second
	}
	if c.Lifecycle.NotifyTimeout == 0 {
		c.Lifecycle.NotifyTimeout = 5 * time.Second
	}
	if c.Archive.Schedule == "" {
		c.Archive.Schedule = "@every 1m"
	}
	if c.Archive.TipRate == 0 {
		c.Archive.TipRate = 0.10
	}
}

// Validate reports settings the service cannot start without
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if c.Archive.TipRate < 0 || c.Archive.TipRate > 1 {
		return fmt.Errorf("archive tip_rate must be within [0,1], got %v", c.Archive.TipRate)
	}
	return nil
}
