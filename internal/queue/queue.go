// Package queue adapts a NATS subject as the host-queue boundary for mail
// delivery: plain-data messages in, per-item delivery handled by the
// mailer. Retry scheduling, backoff, and dead-lettering stay with the
// queue infrastructure; a failed delivery is logged and the message is
// left to the broker's redelivery policy.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/OliverSchlueter/goutils/sloki"
	"github.com/fancyinnovations/mailout/internal/email"
	"github.com/fancyinnovations/mailout/internal/mailer"
	"github.com/fancyinnovations/mailout/internal/smtp"
	"github.com/nats-io/nats.go"
)

// ConnectionOptions is the serializable form of a mailer configuration,
// safe to move across a queue boundary. Hooks, TLS material, and signers
// do not travel.
type ConnectionOptions struct {
	Host              string            `json:"host"`
	Port              int               `json:"port"`
	Secure            bool              `json:"secure,omitempty"`
	StartTLS          bool              `json:"start_tls,omitempty"`
	Username          string            `json:"username,omitempty"`
	Password          string            `json:"password,omitempty"`
	AuthMechanisms    []string          `json:"auth_type,omitempty"`
	SocketTimeoutMs   int64             `json:"socket_timeout_ms,omitempty"`
	ResponseTimeoutMs int64             `json:"response_timeout_ms,omitempty"`
	DSN               *email.DSNOptions `json:"dsn,omitempty"`
}

// Configuration converts the wire form into a mailer configuration.
func (o ConnectionOptions) Configuration() mailer.Configuration {
	cfg := mailer.Configuration{
		Host:           o.Host,
		Port:           o.Port,
		Secure:         o.Secure,
		StartTLS:       o.StartTLS,
		AuthMechanisms: smtp.ParseMechanisms(o.AuthMechanisms),
		DSN:            o.DSN,
	}
	if o.Username != "" || o.Password != "" {
		cfg.Credentials = &smtp.Credentials{Username: o.Username, Password: o.Password}
	}
	if o.SocketTimeoutMs > 0 {
		cfg.SocketTimeout = time.Duration(o.SocketTimeoutMs) * time.Millisecond
	}
	if o.ResponseTimeoutMs > 0 {
		cfg.ResponseTimeout = time.Duration(o.ResponseTimeoutMs) * time.Millisecond
	}
	return cfg
}

// Message is one queued delivery: connection options plus the email.
type Message struct {
	Connection ConnectionOptions `json:"mailer_options"`
	Email      email.Options     `json:"email_options"`
}

type Service struct {
	nc      *nats.Conn
	subject string
	group   string
}

type Configuration struct {
	URL     string
	Subject string
	// Group is the queue group name for load-balanced consumption.
	Group string
}

// NewService connects to the NATS server.
func NewService(cfg Configuration) (*Service, error) {
	if cfg.Group == "" {
		cfg.Group = "mailout-workers"
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("mailout"))
	if err != nil {
		return nil, err
	}

	return &Service{
		nc:      nc,
		subject: cfg.Subject,
		group:   cfg.Group,
	}, nil
}

// Enqueue publishes one delivery to the queue subject.
func (s *Service) Enqueue(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.nc.Publish(s.subject, data)
}

// EnqueueAll publishes deliveries in order, stopping at the first failure.
func (s *Service) EnqueueAll(msgs []Message) error {
	for _, msg := range msgs {
		if err := s.Enqueue(msg); err != nil {
			return err
		}
	}
	return nil
}

// Run consumes deliveries until ctx is done. Messages are processed one at
// a time; each gets its own connection.
func (s *Service) Run(ctx context.Context) error {
	sub, err := s.nc.QueueSubscribeSync(s.subject, s.group)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	slog.Info("Consuming mail queue", slog.String("subject", s.subject), slog.String("group", s.group))

	for {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		s.handle(msg)
	}
}

func (s *Service) handle(m *nats.Msg) {
	var msg Message
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		slog.Warn("Failed to decode queue message", sloki.WrapError(err))
		return
	}

	if _, err := mailer.Send(msg.Connection.Configuration(), msg.Email); err != nil {
		slog.Warn("Failed to deliver queued email", sloki.WrapError(err))
		return
	}
}

// Close drains the connection, letting in-flight handlers finish.
func (s *Service) Close() error {
	return s.nc.Drain()
}
