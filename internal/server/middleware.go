package server

import (
	"time"

	"github.com/rs/xid"

	"github.com/Brownie44l1/slowserve/internal/headers"
	"github.com/Brownie44l1/slowserve/internal/request"
	"github.com/Brownie44l1/slowserve/internal/response"
)

// Middleware wraps a Handler
type Middleware func(next Handler) Handler

// Chain wraps h so that mws[0] runs first.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// LoggingMiddleware logs every handled request
func LoggingMiddleware(logger Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(req *request.Request) (*response.Response, error) {
			start := time.Now()

			resp, err := next.Handle(req)
			if err != nil || resp == nil {
				return resp, err
			}

			var requestID string
			if resp.Headers != nil {
				requestID, _ = resp.Headers.Get("X-Request-ID")
			}

			log := logger.Info
			if resp.Status.IsError() {
				log = logger.Warn
			}
			log("request handled",
				Field{"method", req.Method()},
				Field{"url", req.URL()},
				Field{"status", int(resp.Status)},
				Field{"bytes", len(resp.Body)},
				Field{"duration_ms", time.Since(start).Milliseconds()},
				Field{"remote", req.RemoteAddr()},
				Field{"request_id", requestID},
			)
			return resp, nil
		})
	}
}

// RequestIDMiddleware tags each response with a unique X-Request-ID
func RequestIDMiddleware() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(req *request.Request) (*response.Response, error) {
			resp, err := next.Handle(req)
			if err != nil || resp == nil {
				return resp, err
			}
			if resp.Headers == nil {
				resp.Headers = headers.NewHeaders()
			}
			resp.Headers.Set("X-Request-ID", xid.New().String())
			return resp, nil
		})
	}
}
