// Package smtp implements the client side of the SMTP protocol: connection
// setup, EHLO capability discovery, STARTTLS upgrade, authentication, and
// mail transactions. A Session owns one transport connection and
// serializes all protocol steps on it; SMTP is strictly half-duplex per
// connection, so no command is written before the previous response has
// been fully read.
package smtp

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Session drives the SMTP dialog over one Transport. Any protocol fault
// (unexpected status code, timeout, transport failure) moves the Session
// to StateClosed; the caller must reconnect, the dialog is never resumed.
type Session struct {
	cfg   Config
	tr    Transport
	state State
	caps  Capabilities
}

// reply is one complete server response. For multi-line responses, Lines
// holds every line with the status prefix stripped and Code is taken from
// the terminal line.
type reply struct {
	Code  int
	Lines []string
}

func (r reply) text() string {
	return strings.Join(r.Lines, "\n")
}

// Connect opens a transport and performs the transition chain to
// StateReady: greeting, EHLO, optional STARTTLS with refreshed
// capabilities, optional AUTH.
func Connect(cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	tr, err := cfg.Dialer.Dial(cfg.Host, cfg.Port, cfg.SocketTimeout)
	if err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg, tr: tr, state: StateConnected}

	// Greeting (RFC 5321 §4.3.1).
	greeting, err := s.readReply()
	if err != nil {
		return nil, err
	}
	if greeting.Code != codeServiceReady {
		return nil, s.protocolFault(greeting)
	}
	s.state = StateGreeted

	if err := s.ehlo(); err != nil {
		return nil, err
	}

	if !cfg.Secure && cfg.StartTLS {
		if err := s.startTLS(); err != nil {
			return nil, err
		}
	}

	if cfg.Credentials != nil {
		if err := s.authenticate(); err != nil {
			return nil, err
		}
		s.state = StateAuthenticated
	}

	s.state = StateReady
	return s, nil
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Capabilities returns the extension set from the latest EHLO response.
func (s *Session) Capabilities() Capabilities {
	return s.caps
}

// Send performs one MAIL FROM / RCPT TO / DATA cycle and returns the final
// server response text. The session returns to StateReady on success so
// further sends may reuse the connection.
func (s *Session) Send(env Envelope, data []byte) (string, error) {
	if s.state != StateReady {
		return "", &TransportError{Op: "send", Err: fmt.Errorf("session is %s, not ready", s.state)}
	}
	s.state = StateInTransaction

	dsn := s.caps.Has(CapDSN)

	mail := fmt.Sprintf("MAIL FROM:<%s>", env.From)
	if dsn && env.Ret != "" {
		mail += " RET=" + env.Ret
	}
	if dsn && env.EnvelopeID != "" {
		mail += " ENVID=" + env.EnvelopeID
	}
	if err := s.exchange(mail, codeOK); err != nil {
		return "", err
	}

	for _, rcpt := range env.Recipients {
		cmd := fmt.Sprintf("RCPT TO:<%s>", rcpt)
		if dsn && env.Notify != "" {
			cmd += " NOTIFY=" + env.Notify
		}
		if dsn && env.ORcpt {
			cmd += " ORCPT=rfc822;" + rcpt
		}
		if err := s.exchange(cmd, codeOK, codeWillForward); err != nil {
			return "", err
		}
	}

	if err := s.exchange("DATA", codeStartMailInput); err != nil {
		return "", err
	}

	if err := s.writeAll(dotStuff(data)); err != nil {
		s.fail()
		return "", err
	}
	if err := s.writeLine("."); err != nil {
		s.fail()
		return "", err
	}

	r, err := s.readReply()
	if err != nil {
		return "", err
	}
	if r.Code != codeOK {
		return "", s.protocolFault(r)
	}

	s.state = StateReady
	return r.text(), nil
}

// Close sends QUIT best-effort and releases the transport. It is safe to
// call from any state, including repeatedly on an already closed session.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	if s.tr != nil {
		// The QUIT response is read so the server can close cleanly, but
		// its outcome does not matter anymore.
		if err := s.writeLine("QUIT"); err == nil {
			_, _ = s.tr.ReadLine(s.cfg.ResponseTimeout)
		}
		_ = s.tr.Close()
	}
	s.state = StateClosed
	return nil
}

// ehlo sends EHLO and parses the capability set, falling back to HELO when
// the server rejects EHLO outright (RFC 5321 §4.1.1.1).
func (s *Session) ehlo() error {
	if err := s.writeLine("EHLO " + s.cfg.LocalName); err != nil {
		s.fail()
		return err
	}
	r, err := s.readReply()
	if err != nil {
		return err
	}

	if r.Code == codeOK {
		s.caps = ParseEHLO(r.Lines)
		return nil
	}

	if r.Code == 500 || r.Code == 502 {
		if err := s.writeLine("HELO " + s.cfg.LocalName); err != nil {
			s.fail()
			return err
		}
		r, err = s.readReply()
		if err != nil {
			return err
		}
		if r.Code != codeOK {
			return s.protocolFault(r)
		}
		s.caps = Capabilities{} // No extensions with HELO.
		return nil
	}

	return s.protocolFault(r)
}

// startTLS upgrades the connection and refreshes the capability set; the
// advertised extensions may differ on the secured channel (RFC 3207 §4.2).
func (s *Session) startTLS() error {
	if !s.caps.Has(CapSTARTTLS) {
		s.fail()
		return &TLSError{Message: "server does not advertise STARTTLS"}
	}

	if err := s.exchange("STARTTLS", codeServiceReady); err != nil {
		return err
	}

	if err := s.tr.UpgradeTLS(s.cfg.TLSConfig); err != nil {
		s.fail()
		return err
	}
	s.state = StateTLSUpgraded

	return s.ehlo()
}

// exchange writes one command and requires one of the given status codes.
func (s *Session) exchange(cmd string, want ...int) error {
	if err := s.writeLine(cmd); err != nil {
		s.fail()
		return err
	}
	r, err := s.readReply()
	if err != nil {
		return err
	}
	for _, code := range want {
		if r.Code == code {
			return nil
		}
	}
	return s.protocolFault(r)
}

// readReply accumulates a complete, possibly multi-line response. A hyphen
// after the status code marks continuation; only the terminal line's code
// is authoritative.
func (s *Session) readReply() (reply, error) {
	var r reply
	for {
		line, err := s.tr.ReadLine(s.cfg.ResponseTimeout)
		if err != nil {
			s.fail()
			return r, err
		}
		slog.Debug("S: " + line)

		if len(line) < 3 {
			s.fail()
			return r, &ResponseError{Code: 0, Message: line}
		}
		code, err := strconv.Atoi(line[:3])
		if err != nil {
			s.fail()
			return r, &ResponseError{Code: 0, Message: line}
		}

		r.Code = code
		cont := false
		rest := ""
		if len(line) > 3 {
			cont = line[3] == '-'
			rest = line[4:]
		}
		r.Lines = append(r.Lines, rest)

		if !cont {
			return r, nil
		}
	}
}

func (s *Session) writeLine(line string) error {
	slog.Debug("C: " + line)
	return s.tr.WriteAll([]byte(line + "\r\n"))
}

// writeSecretLine sends a line carrying credential material without
// logging its content.
func (s *Session) writeSecretLine(line string) error {
	slog.Debug("C: [credentials]")
	return s.tr.WriteAll([]byte(line + "\r\n"))
}

func (s *Session) writeAll(p []byte) error {
	return s.tr.WriteAll(p)
}

// protocolFault closes the session and converts r into a ResponseError.
func (s *Session) protocolFault(r reply) error {
	s.fail()
	return &ResponseError{Code: r.Code, Message: r.text()}
}

// fail moves the session to StateClosed and releases the transport. After
// a fault the SMTP dialog may be desynchronized, so no recovery is
// attempted.
func (s *Session) fail() {
	if s.state == StateClosed {
		return
	}
	if s.tr != nil {
		_ = s.tr.Close()
	}
	s.state = StateClosed
}

// dotStuff prepares message bytes for the DATA phase: lines starting with
// a dot are doubled and the payload is terminated with CRLF
// (RFC 5321 §4.5.2).
func dotStuff(data []byte) []byte {
	out := bytes.ReplaceAll(data, []byte("\r\n."), []byte("\r\n.."))
	if bytes.HasPrefix(out, []byte(".")) {
		out = append([]byte("."), out...)
	}
	if !bytes.HasSuffix(out, []byte("\r\n")) {
		out = append(out, '\r', '\n')
	}
	return out
}
