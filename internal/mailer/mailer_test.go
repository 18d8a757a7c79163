package mailer

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/fancyinnovations/mailout/internal/email"
	"github.com/fancyinnovations/mailout/internal/smtp"
)

// startRelay runs a minimal in-memory SMTP relay that accepts any number
// of connections and any envelope.
func startRelay(t *testing.T) (host string, port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveRelayConn(conn)
		}
	}()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		t.Fatal(err)
	}
	return h, port
}

func serveRelayConn(conn net.Conn) {
	defer conn.Close()

	fmt.Fprintf(conn, "220 relay.test ESMTP\r\n")
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimRight(line, "\r\n"))
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			fmt.Fprintf(conn, "250-relay.test\r\n250-DSN\r\n250 SIZE 1000000\r\n")
		case cmd == "DATA":
			fmt.Fprintf(conn, "354 Start mail input\r\n")
			for {
				body, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if strings.TrimRight(body, "\r\n") == "." {
					break
				}
			}
			fmt.Fprintf(conn, "250 2.0.0 accepted\r\n")
		case cmd == "QUIT":
			fmt.Fprintf(conn, "221 bye\r\n")
			return
		default:
			fmt.Fprintf(conn, "250 OK\r\n")
		}
	}
}

func relayConfig(t *testing.T) Configuration {
	host, port := startRelay(t)
	return Configuration{Host: host, Port: port}
}

func validOptions() email.Options {
	return email.Options{
		From:    email.Recipient{Address: "sender@example.com"},
		To:      []email.Recipient{{Address: "rcpt@example.com"}},
		Subject: "hello",
		Text:    "body",
	}
}

func TestSendOneInvokesHooks(t *testing.T) {
	cfg := relayConfig(t)

	var connects, sents, fails, closes int
	var closeReason error
	cfg.Hooks = Hooks{
		OnConnect: func() { connects++ },
		OnSent:    func(_ email.Options, _ string) { sents++ },
		OnError:   func(_ *email.Options, _ error) { fails++ },
		OnClose:   func(reason error) { closes++; closeReason = reason },
	}

	m, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	response, err := m.SendOne(validOptions())
	if err != nil {
		t.Fatalf("SendOne: %v", err)
	}
	if !strings.Contains(response, "accepted") {
		t.Errorf("response = %q", response)
	}

	if err := m.Close(nil); err != nil {
		t.Errorf("Close: %v", err)
	}

	if connects != 1 || sents != 1 || fails != 0 || closes != 1 {
		t.Errorf("hook counts connect=%d sent=%d error=%d close=%d", connects, sents, fails, closes)
	}
	if closeReason != nil {
		t.Errorf("close reason = %v, want nil", closeReason)
	}
}

func TestSendOneValidationKeepsSessionReady(t *testing.T) {
	cfg := relayConfig(t)

	var errs []error
	cfg.Hooks.OnError = func(_ *email.Options, err error) { errs = append(errs, err) }

	m, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer m.Close(nil)

	bad := validOptions()
	bad.To = []email.Recipient{{Address: "a b@c.com"}}

	if _, err := m.SendOne(bad); err == nil {
		t.Fatal("SendOne with invalid address succeeded")
	}
	if len(errs) != 1 {
		t.Fatalf("OnError fired %d times, want 1", len(errs))
	}
	var ie *email.InvalidAddressesError
	if !errors.As(errs[0], &ie) {
		t.Errorf("hook error = %v, want *email.InvalidAddressesError", errs[0])
	}

	// Validation happens before any network I/O, so the session survives.
	if got := m.Session().State(); got != smtp.StateReady {
		t.Fatalf("session state = %s, want ready", got)
	}
	if _, err := m.SendOne(validOptions()); err != nil {
		t.Errorf("SendOne after validation failure: %v", err)
	}
}

func TestSendOneShot(t *testing.T) {
	cfg := relayConfig(t)

	response, err := Send(cfg, validOptions())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(response, "accepted") {
		t.Errorf("response = %q", response)
	}
}

func TestCloseFiresOnCloseOnce(t *testing.T) {
	cfg := relayConfig(t)

	var closes int
	cfg.Hooks.OnClose = func(error) { closes++ }

	m, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := m.Close(nil); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := m.Close(nil); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if closes != 1 {
		t.Errorf("OnClose fired %d times, want 1", closes)
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	cfg := relayConfig(t)

	bad := validOptions()
	bad.To = []email.Recipient{{Address: "a b@c.com"}}

	items := []Item{
		{Config: cfg, Email: validOptions()},
		{Config: cfg, Email: bad},
		{Config: cfg, Email: validOptions()},
	}

	outcomes := ProcessBatch(items)
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}

	if !outcomes[0].Success || !outcomes[2].Success {
		t.Errorf("items 1 and 3 should succeed: %+v", outcomes)
	}
	if outcomes[1].Success {
		t.Fatal("item 2 should fail")
	}
	var ie *email.InvalidAddressesError
	if !errors.As(outcomes[1].Err, &ie) {
		t.Errorf("item 2 error = %v, want *email.InvalidAddressesError", outcomes[1].Err)
	}
}
