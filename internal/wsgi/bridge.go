package wsgi

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Brownie44l1/slowserve/internal/headers"
	"github.com/Brownie44l1/slowserve/internal/request"
	"github.com/Brownie44l1/slowserve/internal/response"
)

var (
	ErrBadStatus           = errors.New("malformed status line")
	ErrBadHeader           = errors.New("malformed response header")
	ErrHeadersAlreadySent  = errors.New("start_response called twice")
	ErrStartResponseNotRun = errors.New("application returned without calling start_response")
)

// Header is one response header as passed to StartResponseFunc.
type Header struct {
	Name  string
	Value string
}

// StartResponseFunc receives the status line ("200 OK") and the response
// headers in wire order.
type StartResponseFunc func(status string, headers []Header) error

// App is a WSGI-style application. The response body is the concatenation
// of the returned chunks.
type App interface {
	ServeWSGI(env *Environ, start StartResponseFunc) ([][]byte, error)
}

// AppFunc adapts a function to App
type AppFunc func(env *Environ, start StartResponseFunc) ([][]byte, error)

func (f AppFunc) ServeWSGI(env *Environ, start StartResponseFunc) ([][]byte, error) {
	return f(env, start)
}

// Bridge is a request handler that runs an App for every request.
type Bridge struct {
	app  App
	info ServerInfo
}

func NewBridge(app App, info ServerInfo) *Bridge {
	return &Bridge{app: app, info: info}
}

// Handle runs the app and converts what it started and returned into a
// response. Content-Length is filled in when the app left it out.
func (b *Bridge) Handle(req *request.Request) (*response.Response, error) {
	env := EnvironFrom(req, b.info)
	resp := response.New(response.StatusOK)
	starter := &responseStarter{resp: resp}

	chunks, err := b.app.ServeWSGI(env, starter.start)
	if err != nil {
		return nil, fmt.Errorf("wsgi app %s %s: %w", req.Method(), req.URL(), err)
	}
	if !starter.started {
		return nil, ErrStartResponseNotRun
	}

	resp.Body = bytes.Join(chunks, nil)
	if !resp.Headers.Has("Content-Length") {
		resp.SetContentLength()
	}
	return resp, nil
}

type responseStarter struct {
	resp    *response.Response
	started bool
}

func (s *responseStarter) start(status string, hdrs []Header) error {
	if s.started {
		return ErrHeadersAlreadySent
	}

	code, err := ParseStatus(status)
	if err != nil {
		return err
	}

	for _, h := range hdrs {
		if err := validHeader(h); err != nil {
			return err
		}
	}

	s.resp.Status = code
	for _, h := range hdrs {
		s.resp.Headers.Set(h.Name, h.Value)
	}
	s.started = true
	return nil
}

// validHeader rejects non-token names and values holding CR, LF or NUL.
func validHeader(h Header) error {
	if h.Name == "" {
		return fmt.Errorf("%w: empty name", ErrBadHeader)
	}
	for i := 0; i < len(h.Name); i++ {
		if !headers.IsTokenChar(h.Name[i]) {
			return fmt.Errorf("%w: name %q", ErrBadHeader, h.Name)
		}
	}
	if strings.ContainsAny(h.Value, "\r\n\x00") {
		return fmt.Errorf("%w: value of %s", ErrBadHeader, h.Name)
	}
	return nil
}

// ParseStatus reads the leading integer of a status line such as
// "404 Not Found".
func ParseStatus(status string) (response.StatusCode, error) {
	codeText, _, _ := strings.Cut(strings.TrimSpace(status), " ")
	code, err := strconv.Atoi(codeText)
	if err != nil || code < 100 || code > 999 {
		return 0, fmt.Errorf("%w: %q", ErrBadStatus, status)
	}
	return response.StatusCode(code), nil
}
