package server

import (
	"net"
	"runtime/debug"
	"time"

	"github.com/Brownie44l1/slowserve/internal/request"
)

// serveConn drives one connection: read a request, dispatch it, write the
// response, close. Parse failures and handler failures close the
// connection without writing a byte; nothing escapes to the worker.
func (s *Server) serveConn(conn net.Conn, worker int) {
	start := time.Now()
	remote := conn.RemoteAddr().String()

	s.metrics.connOpened()
	defer s.metrics.connClosed()
	defer conn.Close()

	defer func() {
		if r := recover(); r != nil {
			s.metrics.HandlerFailures.Add(1)
			s.logger.Error("handler panic",
				Field{"panic", r},
				Field{"remote", remote},
				Field{"worker", worker},
				Field{"stack", string(debug.Stack())},
			)
		}
	}()

	if s.cfg.Timeout > 0 {
		if err := conn.SetDeadline(start.Add(s.cfg.Timeout)); err != nil {
			s.logger.Warn("set deadline", Field{"error", err}, Field{"remote", remote})
			return
		}
	}

	req, err := request.FromReader(conn, request.Options{
		MaxHeaderBytes: s.cfg.MaxHeaderBytes,
		MaxBodyBytes:   s.cfg.MaxBodyBytes,
		RemoteAddr:     remote,
	})
	if err != nil {
		s.metrics.ParseErrors.Add(1)
		s.logger.Debug("dropping unreadable request",
			Field{"error", err},
			Field{"remote", remote},
			Field{"worker", worker},
		)
		return
	}

	resp, err := s.handler.Handle(req)
	if err == nil && resp == nil {
		err = errNoResponse
	}
	if err != nil {
		s.metrics.HandlerFailures.Add(1)
		s.logger.Error("handler failed",
			Field{"error", err},
			Field{"method", req.Method()},
			Field{"url", req.URL()},
			Field{"remote", remote},
			Field{"worker", worker},
			Field{"stack", string(debug.Stack())},
		)
		return
	}

	if _, err := resp.WriteTo(conn); err != nil {
		s.logger.Warn("writing response",
			Field{"error", err},
			Field{"remote", remote},
		)
		return
	}
	s.metrics.RecordRequest(resp.Status, time.Since(start))
}
