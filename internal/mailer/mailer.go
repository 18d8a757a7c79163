// Package mailer is the public façade for sending mail: it connects SMTP
// sessions, builds MIME messages, drives envelope/data cycles, and invokes
// lifecycle hooks.
package mailer

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/OliverSchlueter/goutils/sloki"
	"github.com/fancyinnovations/mailout/internal/email"
	"github.com/fancyinnovations/mailout/internal/smtp"
)

// Hooks are optional callbacks invoked around the session lifecycle:
// OnConnect exactly once when a session reaches ready, OnSent or OnError
// once per send attempt, OnClose once at teardown. Hook execution never
// alters session state.
type Hooks struct {
	OnConnect func()
	OnSent    func(opts email.Options, response string)
	OnError   func(opts *email.Options, err error)
	OnClose   func(reason error)
}

// Configuration describes one mail relay connection. Immutable once a
// Mailer has been created from it.
type Configuration struct {
	Host string
	Port int

	Secure   bool
	StartTLS bool

	Credentials    *smtp.Credentials
	AuthMechanisms []smtp.Mechanism

	SocketTimeout   time.Duration
	ResponseTimeout time.Duration

	// DSN defaults applied to every envelope unless a message carries its
	// own override.
	DSN *email.DSNOptions

	LocalName string
	TLSConfig *tls.Config
	Dialer    smtp.Dialer

	// DKIM, when set, signs every built message before transmission.
	DKIM *smtp.DKIMSigner

	Hooks Hooks
}

func (c Configuration) sessionConfig() smtp.Config {
	return smtp.Config{
		Host:            c.Host,
		Port:            c.Port,
		Secure:          c.Secure,
		StartTLS:        c.StartTLS,
		Credentials:     c.Credentials,
		AuthMechanisms:  c.AuthMechanisms,
		SocketTimeout:   c.SocketTimeout,
		ResponseTimeout: c.ResponseTimeout,
		LocalName:       c.LocalName,
		TLSConfig:       c.TLSConfig,
		Dialer:          c.Dialer,
	}
}

// Mailer owns one open SMTP session and sends any number of emails over
// it.
type Mailer struct {
	cfg     Configuration
	session *smtp.Session
	closed  bool
}

// Connect opens a session and performs the full transition chain to
// ready. The OnConnect hook fires exactly once, after the chain succeeds.
func Connect(cfg Configuration) (*Mailer, error) {
	session, err := smtp.Connect(cfg.sessionConfig())
	if err != nil {
		return nil, err
	}

	slog.Debug("SMTP session ready",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
	)

	m := &Mailer{cfg: cfg, session: session}
	if cfg.Hooks.OnConnect != nil {
		cfg.Hooks.OnConnect()
	}
	return m, nil
}

// Send opens a connection, sends one email, and closes: the one-shot path.
func Send(cfg Configuration, opts email.Options) (string, error) {
	m, err := Connect(cfg)
	if err != nil {
		return "", err
	}
	response, sendErr := m.SendOne(opts)
	_ = m.Close(sendErr)
	return response, sendErr
}

// SendOne validates, builds, and transmits one email over the open
// session. Validation and build errors surface before any network I/O, so
// the session stays reusable; protocol errors close it. The connection is
// never closed by SendOne itself.
func (m *Mailer) SendOne(opts email.Options) (string, error) {
	response, err := m.sendOne(opts)
	if err != nil {
		if m.cfg.Hooks.OnError != nil {
			m.cfg.Hooks.OnError(&opts, err)
		}
		return "", err
	}
	if m.cfg.Hooks.OnSent != nil {
		m.cfg.Hooks.OnSent(opts, response)
	}
	return response, nil
}

func (m *Mailer) sendOne(opts email.Options) (string, error) {
	e, err := email.New(opts)
	if err != nil {
		return "", err
	}

	data, err := e.Build()
	if err != nil {
		return "", err
	}

	if m.cfg.DKIM != nil {
		data, err = m.cfg.DKIM.Sign(data)
		if err != nil {
			return "", err
		}
	}

	response, err := m.session.Send(m.envelope(e), data)
	if err != nil {
		return "", err
	}

	slog.Info("Email sent",
		slog.String("from", e.From()),
		slog.Int("recipients", len(e.Recipients())),
	)
	return response, nil
}

// envelope merges the connection DSN defaults with the per-message
// override. An override replaces the defaults entirely.
func (m *Mailer) envelope(e *email.Email) smtp.Envelope {
	env := smtp.Envelope{
		From:       e.From(),
		Recipients: e.Recipients(),
	}

	if o := e.DSN(); o != nil {
		env.Ret = o.Ret.Param()
		env.Notify = o.Notify.Param()
		env.EnvelopeID = o.EnvelopeID
	} else if d := m.cfg.DSN; d != nil {
		env.Ret = d.Ret.Param()
		env.Notify = d.Notify.Param()
	}
	env.ORcpt = env.Notify != ""

	return env
}

// Session exposes the underlying session for state inspection.
func (m *Mailer) Session() *smtp.Session {
	return m.session
}

// Close shuts the session down and fires OnClose once. Further calls are
// no-ops.
func (m *Mailer) Close(reason error) error {
	if m.closed {
		return nil
	}
	m.closed = true

	err := m.session.Close()
	if err != nil {
		slog.Warn("Failed to close SMTP session", sloki.WrapError(err))
	}

	if m.cfg.Hooks.OnClose != nil {
		m.cfg.Hooks.OnClose(reason)
	}
	return err
}
