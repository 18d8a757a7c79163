package smtp

import "fmt"

// ResponseError is returned when the server answers a protocol step with a
// status code outside the expected range. The session is closed when this
// happens; the dialog is never resynchronized.
type ResponseError struct {
	Code    int
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("unexpected SMTP response %d: %s", e.Code, e.Message)
}

// Temporary reports whether the server signalled a transient failure (4xx).
func (e *ResponseError) Temporary() bool {
	return e.Code >= 400 && e.Code < 500
}

// AuthFailure classifies an authentication failure.
type AuthFailure int

const (
	// AuthUnsupported means no mutually supported mechanism was found, or
	// the negotiated mechanism has no executable exchange.
	AuthUnsupported AuthFailure = iota
	// AuthRejected means the server refused the presented credentials.
	AuthRejected
	// AuthTimeout means a challenge/response step exceeded the response
	// timeout. The exchange is not resumable; the session is closed.
	AuthTimeout
)

func (f AuthFailure) String() string {
	switch f {
	case AuthUnsupported:
		return "unsupported"
	case AuthRejected:
		return "rejected"
	case AuthTimeout:
		return "timeout"
	}
	return "unknown"
}

// AuthError reports a failed authentication step.
type AuthError struct {
	Failure AuthFailure
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("smtp auth %s: %s", e.Failure, e.Message)
}

// TLSError is returned when TLS is required by configuration but the
// server does not offer STARTTLS, or the upgrade handshake fails. The
// client never falls back to plaintext.
type TLSError struct {
	Message string
	Err     error
}

func (e *TLSError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("smtp tls: %s: %v", e.Message, e.Err)
	}
	return "smtp tls: " + e.Message
}

func (e *TLSError) Unwrap() error { return e.Err }

// TimeoutError is returned when the connect or response deadline expires.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("smtp: %s timed out", e.Op)
}

// Timeout implements the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// TransportError wraps a failure of the underlying byte stream.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("smtp transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
