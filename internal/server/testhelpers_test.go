package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/slowserve/internal/request"
	"github.com/Brownie44l1/slowserve/internal/response"
)

func okHandler() Handler {
	return HandlerFunc(func(req *request.Request) (*response.Response, error) {
		return response.Text(response.StatusOK, "path="+req.Path()), nil
	})
}

func testConfig(workers int) Config {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.Workers = workers
	cfg.Backlog = 16
	cfg.Timeout = 2 * time.Second
	return cfg
}

// startServer listens on an ephemeral port and serves until the test ends.
func startServer(t *testing.T, cfg Config, h Handler, opts ...Option) *Server {
	t.Helper()

	s, err := New(cfg, h, opts...)
	require.NoError(t, err)
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, ErrServerClosed) {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return s
}

func dial(t *testing.T, s *Server) *net.TCPConn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", s.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn.(*net.TCPConn)
}

// roundTrip sends raw and returns everything the server wrote before
// closing the connection.
func roundTrip(t *testing.T, s *Server, raw string) string {
	t.Helper()
	conn := dial(t, s)
	_, err := io.WriteString(conn, raw)
	require.NoError(t, err)
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(out)
}

// gate blocks handlers until opened and records peak concurrency.
type gate struct {
	mu      sync.Mutex
	active  int
	peak    int
	entered chan string
	release chan struct{}
}

func newGate() *gate {
	return &gate{
		entered: make(chan string, 16),
		release: make(chan struct{}),
	}
}

func (g *gate) Handle(req *request.Request) (*response.Response, error) {
	g.mu.Lock()
	g.active++
	g.peak = max(g.peak, g.active)
	g.mu.Unlock()

	g.entered <- req.Path()
	<-g.release

	g.mu.Lock()
	g.active--
	g.mu.Unlock()
	return response.Text(response.StatusOK, req.Path()), nil
}

func (g *gate) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

// recordingLogger keeps messages for assertions
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

func (l *recordingLogger) add(level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: m})
}

func (l *recordingLogger) Debug(msg string, fields ...Field) { l.add("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...Field)  { l.add("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...Field)  { l.add("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...Field) { l.add("error", msg, fields) }

func (l *recordingLogger) find(msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}
