package smtp

import (
	"crypto/tls"
	"time"
)

// State is the lifecycle position of a Session. It is owned exclusively by
// the Session and mutated only by its own transition steps.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateGreeted
	StateTLSUpgraded
	StateAuthenticated
	StateReady
	StateInTransaction
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateGreeted:
		return "greeted"
	case StateTLSUpgraded:
		return "tls-upgraded"
	case StateAuthenticated:
		return "authenticated"
	case StateReady:
		return "ready"
	case StateInTransaction:
		return "in-transaction"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Credentials are opaque to the client and never logged.
type Credentials struct {
	Username string
	Password string
}

// Config describes one SMTP connection. It is immutable once a Session has
// been created from it.
type Config struct {
	Host string
	Port int

	// Secure selects implicit TLS from the first byte.
	Secure bool
	// StartTLS requires an in-band upgrade on plaintext connections. When
	// set and the server does not advertise STARTTLS, the session fails
	// instead of continuing in plaintext.
	StartTLS bool

	Credentials    *Credentials
	AuthMechanisms []Mechanism

	// SocketTimeout bounds the initial connect, ResponseTimeout every
	// single read-response step.
	SocketTimeout   time.Duration
	ResponseTimeout time.Duration

	// LocalName is the client identity sent with EHLO.
	LocalName string

	TLSConfig *tls.Config

	// Dialer opens the transport. Defaults to a NetDialer honoring Secure.
	Dialer Dialer
}

const (
	DefaultPort            = 587
	DefaultSocketTimeout   = 60 * time.Second
	DefaultResponseTimeout = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.SocketTimeout == 0 {
		c.SocketTimeout = DefaultSocketTimeout
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.LocalName == "" {
		c.LocalName = "localhost"
	}
	if c.Dialer == nil {
		c.Dialer = &NetDialer{Secure: c.Secure, TLSConfig: c.TLSConfig}
	}
	if len(c.AuthMechanisms) == 0 {
		c.AuthMechanisms = []Mechanism{MechanismPlain, MechanismLogin}
	}
	return c
}

// Envelope is the addressing layer of one mail transaction, including the
// DSN extension parameters to attach when the server supports them.
type Envelope struct {
	From       string
	Recipients []string

	// DSN parameters. Ret and EnvelopeID go on MAIL FROM, Notify on every
	// RCPT TO. ORcpt additionally attaches ORCPT=rfc822;<recipient>.
	Ret        string
	EnvelopeID string
	Notify     string
	ORcpt      bool
}
