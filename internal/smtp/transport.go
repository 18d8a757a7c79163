package smtp

import (
	"bufio"
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"time"
)

// Transport is the sole I/O boundary of the client: a duplex byte stream
// with line-oriented reads and an in-band TLS upgrade. A Session owns its
// Transport exclusively.
type Transport interface {
	// ReadLine reads one CRLF-terminated line, without the terminator.
	// A zero timeout means no deadline.
	ReadLine(timeout time.Duration) (string, error)
	// WriteAll writes p completely.
	WriteAll(p []byte) error
	// UpgradeTLS replaces the plaintext stream with a TLS stream over the
	// same connection.
	UpgradeTLS(cfg *tls.Config) error
	Close() error
}

// Dialer opens Transports. The default is NetDialer; tests substitute
// their own.
type Dialer interface {
	Dial(host string, port int, timeout time.Duration) (Transport, error)
}

// NetDialer opens TCP connections, optionally wrapped in TLS from the
// first byte (implicit TLS, port 465 style).
type NetDialer struct {
	Secure    bool
	TLSConfig *tls.Config
}

func (d *NetDialer) Dial(host string, port int, timeout time.Duration) (Transport, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, &TimeoutError{Op: "connect to " + addr}
		}
		return nil, &TransportError{Op: "connect to " + addr, Err: err}
	}

	if d.Secure {
		tlsConn := tls.Client(conn, d.tlsConfig(host))
		if timeout > 0 {
			_ = tlsConn.SetDeadline(time.Now().Add(timeout))
		}
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			return nil, &TLSError{Message: "handshake with " + addr, Err: err}
		}
		_ = tlsConn.SetDeadline(time.Time{})
		conn = tlsConn
	}

	return &netTransport{
		conn:      conn,
		reader:    bufio.NewReader(conn),
		host:      host,
		tlsConfig: d.TLSConfig,
	}, nil
}

func (d *NetDialer) tlsConfig(host string) *tls.Config {
	if d.TLSConfig != nil {
		return d.TLSConfig
	}
	return &tls.Config{ServerName: host}
}

type netTransport struct {
	conn      net.Conn
	reader    *bufio.Reader
	host      string
	tlsConfig *tls.Config
}

func (t *netTransport) ReadLine(timeout time.Duration) (string, error) {
	if timeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return "", &TransportError{Op: "set read deadline", Err: err}
		}
	}

	line, err := t.reader.ReadString('\n')
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return "", &TimeoutError{Op: "read response"}
		}
		return "", &TransportError{Op: "read", Err: err}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *netTransport) WriteAll(p []byte) error {
	if _, err := t.conn.Write(p); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return &TimeoutError{Op: "write"}
		}
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (t *netTransport) UpgradeTLS(cfg *tls.Config) error {
	if cfg == nil {
		cfg = t.tlsConfig
	}
	if cfg == nil {
		cfg = &tls.Config{ServerName: t.host}
	}

	tlsConn := tls.Client(t.conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return &TLSError{Message: "STARTTLS handshake", Err: err}
	}

	t.conn = tlsConn
	t.reader = bufio.NewReader(tlsConn)
	return nil
}

func (t *netTransport) Close() error {
	return t.conn.Close()
}
