package httpd

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Workers = 4
	cfg.SleepDelay = 10 * time.Millisecond

	s := New(cfg)
	if err := s.Listen(); err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Serve(ctx); err != nil {
			t.Errorf("serve failed: %v", err)
		}
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down in time")
		}
	})

	return s
}

// rawGet issues a request over a plain TCP connection and returns the raw
// status line and body.
func rawGet(t *testing.T, addr, requestLine string) (status, body string) {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(requestLine + "\r\nHost: test\r\n\r\n")); err != nil {
		t.Fatalf("failed to write request: %v", err)
	}

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read status line: %v", err)
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read headers: %v", err)
		}
		if line == "\r\n" {
			break
		}
	}

	rest, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	return strings.TrimSpace(statusLine), string(rest)
}

func TestServeRoot(t *testing.T) {
	s := startTestServer(t)

	status, body := rawGet(t, s.Addr(), "GET / HTTP/1.1")
	if status != "HTTP/1.1 200 OK" {
		t.Errorf("expected 200 OK, got %q", status)
	}
	if !strings.Contains(body, "Hello!") {
		t.Errorf("expected hello page, got: %s", body)
	}
}

func TestServeSleep(t *testing.T) {
	s := startTestServer(t)

	start := time.Now()
	status, _ := rawGet(t, s.Addr(), "GET /sleep HTTP/1.1")
	elapsed := time.Since(start)

	if status != "HTTP/1.1 200 OK" {
		t.Errorf("expected 200 OK, got %q", status)
	}
	if elapsed < 10*time.Millisecond {
		t.Errorf("expected /sleep to take at least the configured delay, took %v", elapsed)
	}
}

func TestServeNotFound(t *testing.T) {
	s := startTestServer(t)

	status, body := rawGet(t, s.Addr(), "GET /missing HTTP/1.1")
	if status != "HTTP/1.1 404 NOT FOUND" {
		t.Errorf("expected 404, got %q", status)
	}
	if !strings.Contains(body, "Oops!") {
		t.Errorf("expected 404 page, got: %s", body)
	}
}

func TestServeNonGET(t *testing.T) {
	s := startTestServer(t)

	status, _ := rawGet(t, s.Addr(), "POST / HTTP/1.1")
	if status != "HTTP/1.1 404 NOT FOUND" {
		t.Errorf("expected 404 for POST, got %q", status)
	}
}

func TestConcurrentRequests(t *testing.T) {
	s := startTestServer(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan string, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := rawGet(t, s.Addr(), "GET / HTTP/1.1")
			if status != "HTTP/1.1 200 OK" {
				errs <- status
			}
		}()
	}
	wg.Wait()
	close(errs)

	for status := range errs {
		t.Errorf("concurrent request got %q", status)
	}

	if total := s.Metrics().TotalRequests(); total != n {
		t.Errorf("expected %d recorded requests, got %d", n, total)
	}
}

func TestGracefulShutdownDrainsPool(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Workers = 2
	cfg.SleepDelay = 10 * time.Millisecond

	s := New(cfg)
	if err := s.Listen(); err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx)
	}()

	status, _ := rawGet(t, s.Addr(), "GET / HTTP/1.1")
	if status != "HTTP/1.1 200 OK" {
		t.Fatalf("expected 200 OK before shutdown, got %q", status)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	if alive := s.Pool().Alive(); alive != 0 {
		t.Errorf("expected all workers joined after shutdown, %d still alive", alive)
	}
	if s.Running() {
		t.Error("expected server to report not running after shutdown")
	}
}

func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		line   string
		method string
		path   string
		ok     bool
	}{
		{"GET / HTTP/1.1\r\n", "GET", "/", true},
		{"GET /sleep HTTP/1.0\r\n", "GET", "/sleep", true},
		{"POST /submit HTTP/1.1\r\n", "POST", "/submit", true},
		{"GET /\r\n", "", "", false},
		{"GET / FTP/1.1\r\n", "", "", false},
		{"\r\n", "", "", false},
		{"garbage\r\n", "", "", false},
	}

	for _, tt := range tests {
		method, path, ok := parseRequestLine(tt.line)
		if ok != tt.ok || method != tt.method || path != tt.path {
			t.Errorf("parseRequestLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.line, method, path, ok, tt.method, tt.path, tt.ok)
		}
	}
}
