package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fancyinnovations/mailout/internal/smtp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.SMTP.Port != smtp.DefaultPort {
		t.Errorf("port = %d, want %d", cfg.SMTP.Port, smtp.DefaultPort)
	}
	if !cfg.SMTP.StartTLS {
		t.Error("start_tls should default to true")
	}
	if cfg.HTTP.Listen != ":8080" {
		t.Errorf("listen = %q", cfg.HTTP.Listen)
	}
	if cfg.Queue.Subject != "mailout.send" {
		t.Errorf("subject = %q", cfg.Queue.Subject)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := `smtp:
  host: relay.example.com
  port: 2525
  username: user
  password: pass
  auth_mechanisms: [login]
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.SMTP.Host != "relay.example.com" || cfg.SMTP.Port != 2525 {
		t.Errorf("smtp = %+v", cfg.SMTP)
	}
	// Absent keys keep their defaults.
	if !cfg.SMTP.StartTLS {
		t.Error("start_tls default lost after file load")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}

	mc := cfg.SMTP.MailerConfiguration()
	if mc.Credentials == nil || mc.Credentials.Username != "user" {
		t.Fatalf("credentials = %+v", mc.Credentials)
	}
	if len(mc.AuthMechanisms) != 1 || mc.AuthMechanisms[0] != smtp.MechanismLogin {
		t.Errorf("mechanisms = %v", mc.AuthMechanisms)
	}
	if mc.SocketTimeout != 60*time.Second {
		t.Errorf("socket timeout = %v", mc.SocketTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SMTP_HOST", "env.example.com")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.SMTP.Host != "env.example.com" || cfg.SMTP.Port != 465 {
		t.Errorf("smtp = %+v", cfg.SMTP)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}
