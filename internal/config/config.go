// Package config loads the service configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/fancyinnovations/mailout/internal/email"
	"github.com/fancyinnovations/mailout/internal/mailer"
	"github.com/fancyinnovations/mailout/internal/smtp"
	"gopkg.in/yaml.v3"
)

type Config struct {
	SMTP    SMTPConfig    `yaml:"smtp"`
	HTTP    HTTPConfig    `yaml:"http"`
	Queue   QueueConfig   `yaml:"queue"`
	DKIM    DKIMConfig    `yaml:"dkim"`
	Logging LoggingConfig `yaml:"logging"`
}

type SMTPConfig struct {
	Host              string            `yaml:"host"`
	Port              int               `yaml:"port"`
	Secure            bool              `yaml:"secure"`
	StartTLS          bool              `yaml:"start_tls"`
	Username          string            `yaml:"username"`
	Password          string            `yaml:"password"`
	AuthMechanisms    []string          `yaml:"auth_mechanisms"`
	SocketTimeoutMs   int64             `yaml:"socket_timeout_ms"`
	ResponseTimeoutMs int64             `yaml:"response_timeout_ms"`
	LocalName         string            `yaml:"local_name"`
	DSN               *email.DSNOptions `yaml:"dsn"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

type QueueConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Group   string `yaml:"group"`
}

type DKIMConfig struct {
	Domain   string `yaml:"domain"`
	Selector string `yaml:"selector"`
	KeyFile  string `yaml:"key_file"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	LokiURL    string `yaml:"loki_url"`
	EnableLoki bool   `yaml:"enable_loki"`
}

// Load reads the file at path when it exists, otherwise starts from
// defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("could not read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("could not parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		SMTP: SMTPConfig{
			Port:              smtp.DefaultPort,
			StartTLS:          true,
			AuthMechanisms:    []string{"PLAIN", "LOGIN"},
			SocketTimeoutMs:   60_000,
			ResponseTimeoutMs: 30_000,
		},
		HTTP: HTTPConfig{
			Listen: ":8080",
		},
		Queue: QueueConfig{
			Subject: "mailout.send",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setInt(&cfg.SMTP.Port, "SMTP_PORT")
	setString(&cfg.SMTP.Username, "SMTP_USERNAME")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.HTTP.Listen, "HTTP_LISTEN")
	setString(&cfg.Queue.URL, "NATS_URL")
	setString(&cfg.Queue.Subject, "NATS_SUBJECT")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.LokiURL, "LOKI_URL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = n
}

// MailerConfiguration converts the SMTP section into a mailer
// configuration.
func (c SMTPConfig) MailerConfiguration() mailer.Configuration {
	cfg := mailer.Configuration{
		Host:            c.Host,
		Port:            c.Port,
		Secure:          c.Secure,
		StartTLS:        c.StartTLS,
		AuthMechanisms:  smtp.ParseMechanisms(c.AuthMechanisms),
		SocketTimeout:   time.Duration(c.SocketTimeoutMs) * time.Millisecond,
		ResponseTimeout: time.Duration(c.ResponseTimeoutMs) * time.Millisecond,
		LocalName:       c.LocalName,
		DSN:             c.DSN,
	}
	if c.Username != "" || c.Password != "" {
		cfg.Credentials = &smtp.Credentials{Username: c.Username, Password: c.Password}
	}
	return cfg
}

// SlogLevel maps the configured level name onto a slog level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
