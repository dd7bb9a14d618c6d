package request

import (
	"bytes"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/Brownie44l1/slowserve/internal/headers"
)

// Request is a parsed HTTP request. It is immutable once built: every
// accessor hands out values or copies, never the parser's storage.
type Request struct {
	method     string
	url        string
	version    string
	headers    *headers.Headers
	body       []byte
	remoteAddr string
}

// New builds a request outside the wire parser (bridges, tests).
// h and body are copied.
func New(method, url string, h *headers.Headers, body []byte) *Request {
	if h == nil {
		h = headers.NewHeaders()
	}
	return &Request{
		method:  method,
		url:     url,
		version: "HTTP/1.1",
		headers: h.Clone(),
		body:    bytes.Clone(body),
	}
}

func (r *Request) Method() string { return r.method }

// URL returns the request target exactly as received, not decoded.
func (r *Request) URL() string { return r.url }

func (r *Request) Version() string { return r.version }

// RemoteAddr is the peer address, empty when not read from a connection.
func (r *Request) RemoteAddr() string { return r.remoteAddr }

// Path is the target before the first '?'.
func (r *Request) Path() string {
	path, _, _ := strings.Cut(r.url, "?")
	return path
}

// RawQuery is the target after the first '?'.
func (r *Request) RawQuery() string {
	_, query, _ := strings.Cut(r.url, "?")
	return query
}

// Header returns the value stored under exactly name.
func (r *Request) Header(name string) (string, bool) {
	return r.headers.Get(name)
}

// LookupHeader is Header with ASCII case folding.
func (r *Request) LookupHeader(name string) (string, bool) {
	return r.headers.Lookup(name)
}

// Headers iterates over the headers in the order they were received.
func (r *Request) Headers() iter.Seq2[string, string] {
	return r.headers.All()
}

func (r *Request) Body() []byte {
	return bytes.Clone(r.body)
}

func (r *Request) BodyReader() io.Reader {
	return bytes.NewReader(r.body)
}

// ContentLength returns the declared Content-Length, or -1 when the header
// is absent or not a non-negative integer.
func (r *Request) ContentLength() int64 {
	cl, ok := r.headers.Lookup("Content-Length")
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// Options bound what FromReader accepts.
type Options struct {
	MaxHeaderBytes int
	MaxBodyBytes   int64
	RemoteAddr     string
}

// FromReader reads exactly one request: request line, headers up to the
// blank line, then Content-Length bytes of body. Anything after that is
// left unread.
func FromReader(reader io.Reader, opts Options) (*Request, error) {
	req := &Request{
		headers:    headers.NewHeaders(),
		remoteAddr: opts.RemoteAddr,
	}

	p := newParser(opts.MaxBodyBytes)
	if err := p.parseFromReader(reader, req, opts.MaxHeaderBytes); err != nil {
		return nil, err
	}
	return req, nil
}
