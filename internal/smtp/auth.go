package smtp

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
)

// authenticate intersects the configured mechanism preference list with
// the server-advertised AUTH mechanisms and drives the first match.
// Mechanisms without an executable exchange (CRAM-MD5) fail explicitly
// when selected; they are never silently skipped.
func (s *Session) authenticate() error {
	creds := s.cfg.Credentials
	serverMechs := s.caps.AuthMechanisms()

	var chosen Mechanism
	for _, pref := range s.cfg.AuthMechanisms {
		for _, m := range serverMechs {
			if pref == m {
				chosen = pref
				break
			}
		}
		if chosen != "" {
			break
		}
	}

	if chosen == "" {
		s.fail()
		return &AuthError{Failure: AuthUnsupported, Message: "no mutually supported auth mechanism"}
	}

	slog.Debug("Authenticating", slog.String("mechanism", string(chosen)))

	switch chosen {
	case MechanismPlain:
		return s.authPlain(creds)
	case MechanismLogin:
		return s.authLogin(creds)
	default:
		s.fail()
		return &AuthError{
			Failure: AuthUnsupported,
			Message: fmt.Sprintf("mechanism %s has no negotiation path", chosen),
		}
	}
}

// authPlain sends the single-line PLAIN exchange (RFC 4616): base64 of
// NUL username NUL password, answered by 235.
func (s *Session) authPlain(creds *Credentials) error {
	blob := base64.StdEncoding.EncodeToString([]byte("\x00" + creds.Username + "\x00" + creds.Password))
	if err := s.writeSecretLine("AUTH PLAIN " + blob); err != nil {
		s.fail()
		return err
	}
	return s.expectAuthSuccess()
}

// authLogin drives the LOGIN challenge sequence: the server prompts for
// the username and password in separate base64-encoded 334 challenges.
func (s *Session) authLogin(creds *Credentials) error {
	if err := s.writeLine("AUTH LOGIN"); err != nil {
		s.fail()
		return err
	}

	if err := s.expectAuthChallenge(); err != nil {
		return err
	}
	if err := s.writeSecretLine(base64.StdEncoding.EncodeToString([]byte(creds.Username))); err != nil {
		s.fail()
		return err
	}

	if err := s.expectAuthChallenge(); err != nil {
		return err
	}
	if err := s.writeSecretLine(base64.StdEncoding.EncodeToString([]byte(creds.Password))); err != nil {
		s.fail()
		return err
	}

	return s.expectAuthSuccess()
}

// expectAuthChallenge reads a 334 continuation and decodes its prompt for
// the debug log.
func (s *Session) expectAuthChallenge() error {
	r, err := s.readReply()
	if err != nil {
		return s.authReadError(err)
	}
	if r.Code != codeAuthContinue {
		s.fail()
		return &AuthError{Failure: AuthRejected, Message: r.text()}
	}

	if prompt, err := base64.StdEncoding.DecodeString(r.text()); err == nil {
		slog.Debug("Auth challenge", slog.String("prompt", string(prompt)))
	}
	return nil
}

func (s *Session) expectAuthSuccess() error {
	r, err := s.readReply()
	if err != nil {
		return s.authReadError(err)
	}
	if r.Code != codeAuthSuccess {
		s.fail()
		return &AuthError{Failure: AuthRejected, Message: r.text()}
	}
	return nil
}

// authReadError maps a read failure during the credential exchange. A
// timeout mid-challenge is not resumable, so it surfaces as an auth
// failure; the session is already closed by readReply.
func (s *Session) authReadError(err error) error {
	var te *TimeoutError
	if errors.As(err, &te) {
		return &AuthError{Failure: AuthTimeout, Message: te.Error()}
	}
	return err
}
