package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fancyinnovations/mailout/internal/email"
	"github.com/fancyinnovations/mailout/internal/smtp"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		Connection: ConnectionOptions{
			Host:              "relay.example.com",
			Port:              587,
			StartTLS:          true,
			Username:          "user",
			Password:          "pass",
			AuthMechanisms:    []string{"plain"},
			SocketTimeoutMs:   5000,
			ResponseTimeoutMs: 2500,
		},
		Email: email.Options{
			From:    email.Recipient{Address: "sender@example.com", Name: "Sender"},
			To:      []email.Recipient{{Address: "rcpt@example.com"}},
			Subject: "queued",
			Text:    "body",
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}

	if got.Connection.Host != "relay.example.com" || got.Email.Subject != "queued" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.Email.To[0].Address != "rcpt@example.com" {
		t.Errorf("recipient = %+v", got.Email.To)
	}
}

func TestConnectionOptionsConfiguration(t *testing.T) {
	opts := ConnectionOptions{
		Host:              "relay.example.com",
		Port:              465,
		Secure:            true,
		Username:          "user",
		Password:          "pass",
		AuthMechanisms:    []string{"login", "plain"},
		SocketTimeoutMs:   5000,
		ResponseTimeoutMs: 2500,
		DSN:               &email.DSNOptions{Ret: &email.DSNRet{Full: true}},
	}

	cfg := opts.Configuration()

	if cfg.Host != "relay.example.com" || cfg.Port != 465 || !cfg.Secure {
		t.Errorf("connection fields lost: %+v", cfg)
	}
	if cfg.Credentials == nil || cfg.Credentials.Username != "user" {
		t.Fatalf("credentials = %+v", cfg.Credentials)
	}
	if len(cfg.AuthMechanisms) != 2 || cfg.AuthMechanisms[0] != smtp.MechanismLogin {
		t.Errorf("mechanisms = %v", cfg.AuthMechanisms)
	}
	if cfg.SocketTimeout != 5*time.Second || cfg.ResponseTimeout != 2500*time.Millisecond {
		t.Errorf("timeouts = %v / %v", cfg.SocketTimeout, cfg.ResponseTimeout)
	}
	if cfg.DSN == nil || cfg.DSN.Ret.Param() != "FULL" {
		t.Errorf("dsn = %+v", cfg.DSN)
	}
}

func TestConnectionOptionsWithoutCredentials(t *testing.T) {
	cfg := ConnectionOptions{Host: "relay.example.com", Port: 25}.Configuration()
	if cfg.Credentials != nil {
		t.Errorf("credentials = %+v, want nil", cfg.Credentials)
	}
	if cfg.SocketTimeout != 0 || cfg.ResponseTimeout != 0 {
		t.Errorf("timeouts should stay zero for session defaults: %+v", cfg)
	}
}
