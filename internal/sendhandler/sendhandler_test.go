package sendhandler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/fancyinnovations/mailout/internal/mailer"
)

func startRelay(t *testing.T) mailer.Configuration {
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
	port, err := strconv.Atoi(p)
	if err != nil {
		t.Fatal(err)
	}
	return mailer.Configuration{Host: h, Port: port}
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
			fmt.Fprintf(conn, "250 relay.test\r\n")
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

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	New(startRelay(t)).Register("/api/v1", mux)
	return mux
}

func validBody() string {
	return `{
		"from": {"email": "sender@example.com"},
		"to": [{"email": "rcpt@example.com"}],
		"subject": "hello",
		"text": "body"
	}`
}

func TestSend(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/send", strings.NewReader(validBody()))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var res SendRes
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Response, "accepted") {
		t.Errorf("response = %q", res.Response)
	}
}

func TestSendRejectsInvalidEmail(t *testing.T) {
	mux := newTestMux(t)

	body := `{"from": {"email": "sender@example.com"}, "to": [{"email": "not an address"}], "text": "x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/send", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code < 400 || w.Code >= 500 {
		t.Fatalf("status = %d, want a client error", w.Code)
	}
}

func TestSendMethodNotAllowed(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/send", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestSendBatch(t *testing.T) {
	mux := newTestMux(t)

	body := `[
		{"email": {"from": {"email": "sender@example.com"}, "to": [{"email": "a@example.com"}], "text": "x"}},
		{"email": {"from": {"email": "sender@example.com"}, "to": [{"email": "b c@example.com"}], "text": "x"}}
	]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/send/batch", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var res []BatchItemRes
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(res))
	}
	if !res[0].Success || res[1].Success {
		t.Errorf("outcomes = %+v", res)
	}
	if res[1].Error == "" {
		t.Error("failed item should carry an error message")
	}
}
