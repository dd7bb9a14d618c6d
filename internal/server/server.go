package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/slowserve/internal/request"
	"github.com/Brownie44l1/slowserve/internal/response"
)

var (
	ErrServerClosed = errors.New("server closed")
	ErrNotListening = errors.New("server is not listening")
	errNoResponse   = errors.New("handler returned no response")
)

// Handler turns one request into one response. A returned error drops the
// connection without writing anything.
type Handler interface {
	Handle(req *request.Request) (*response.Response, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(req *request.Request) (*response.Response, error)

func (f HandlerFunc) Handle(req *request.Request) (*response.Response, error) {
	return f(req)
}

// Server accepts connections on one listener with a fixed number of
// workers. Each worker serves one connection at a time.
type Server struct {
	cfg     Config
	handler Handler
	logger  Logger
	metrics *Metrics

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool
}

// Option customizes a Server at construction
type Option func(*Server)

func WithLogger(l Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMiddleware wraps the handler; the first middleware is outermost.
func WithMiddleware(mws ...Middleware) Option {
	return func(s *Server) { s.handler = Chain(s.handler, mws...) }
}

// New validates cfg and builds a server around handler.
func New(cfg Config, handler Handler, opts ...Option) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("nil handler")
	}

	s := &Server{
		cfg:     cfg,
		handler: handler,
		logger:  NullLogger{},
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Listen binds the configured address with the configured backlog.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errors.New("already listening")
	}

	ln, err := listenTCP(s.cfg.Host, s.cfg.Port, s.cfg.Backlog)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = ln
	return nil
}

// Addr is the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs cfg.Workers accept loops on the listener and blocks until
// ctx is cancelled or Close is called. It returns once every worker has
// exited, after closing the listener, with ErrServerClosed.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	stop := context.AfterFunc(ctx, s.stopAccepting)
	defer stop()

	s.logger.Info("serving",
		Field{"addr", ln.Addr().String()},
		Field{"workers", s.cfg.Workers},
		Field{"backlog", s.cfg.Backlog},
	)

	var g errgroup.Group
	for id := 0; id < s.cfg.Workers; id++ {
		g.Go(func() error {
			s.worker(ln, id)
			return nil
		})
	}
	_ = g.Wait()

	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("closing listener", Field{"error", err})
	}
	s.logger.Info("stopped", Field{"addr", ln.Addr().String()})
	return ErrServerClosed
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Close makes the workers stop after their current connection. Serve
// closes the listener once they have exited.
func (s *Server) Close() error {
	s.stopAccepting()
	return nil
}

// stopAccepting raises the stop flag and moves the listener deadline to
// now so workers blocked in Accept wake up and see it.
func (s *Server) stopAccepting() {
	s.closed.Store(true)

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return
	}

	if dl, ok := ln.(interface{ SetDeadline(time.Time) error }); ok {
		if err := dl.SetDeadline(time.Now()); err == nil {
			return
		}
	}
	_ = ln.Close()
}

// Stats returns current metrics
func (s *Server) Stats() MetricsSnapshot {
	return s.metrics.Snapshot()
}
