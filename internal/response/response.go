package response

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/Brownie44l1/slowserve/internal/headers"
)

// Response is built by exactly one request/response cycle and serialized
// once. Header order is wire order.
type Response struct {
	Status  StatusCode
	Headers *headers.Headers
	Body    []byte
}

// New returns an empty response with the given status.
func New(code StatusCode) *Response {
	return &Response{
		Status:  code,
		Headers: headers.NewHeaders(),
	}
}

// SetContentLength sets Content-Length from the current body.
func (r *Response) SetContentLength() {
	r.Headers.Set("Content-Length", strconv.Itoa(len(r.Body)))
}

// Bytes serializes the response:
// "HTTP/1.1 <status> <reason>\r\n" + "Name: value\r\n"... + "\r\n" + body.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes never fail
	_ = r.writeTo(NewWriter(&buf))
	return buf.Bytes()
}

// WriteTo serializes into memory first and hands w a single write, so a
// failure can never leave a partly serialized message behind.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}

func (r *Response) writeTo(w *Writer) error {
	h := r.Headers
	if h == nil {
		h = headers.NewHeaders()
	}
	if err := w.WriteStatusLine(r.Status); err != nil {
		return err
	}
	if err := w.WriteHeaders(h); err != nil {
		return err
	}
	return w.WriteBody(r.Body)
}

// writerState tracks what's been written so far
type writerState int

const (
	stateStart writerState = iota
	stateStatusWritten
	stateHeadersWritten
	stateBodyWritten
)

// Writer writes the parts of an HTTP response in wire order
type Writer struct {
	w     io.Writer
	state writerState
}

// NewWriter creates a new response writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:     w,
		state: stateStart,
	}
}

// WriteStatusLine writes the HTTP status line
func (w *Writer) WriteStatusLine(code StatusCode) error {
	if w.state != stateStart {
		return fmt.Errorf("status line already written")
	}

	statusLine := fmt.Sprintf("HTTP/1.1 %d %s\r\n", code, StatusText(code))
	if _, err := io.WriteString(w.w, statusLine); err != nil {
		return err
	}

	w.state = stateStatusWritten
	return nil
}

// WriteHeaders writes all headers in insertion order plus the blank line
func (w *Writer) WriteHeaders(h *headers.Headers) error {
	if w.state != stateStatusWritten {
		return fmt.Errorf("must write status line before headers")
	}

	for name, value := range h.All() {
		if _, err := fmt.Fprintf(w.w, "%s: %s\r\n", name, value); err != nil {
				return err
		}
	}

	if _, err := io.WriteString(w.w, "\r\n"); err != nil {
		return err
	}

	w.state = stateHeadersWritten
	return nil
}

// WriteBody writes the complete response body
func (w *Writer) WriteBody(data []byte) error {
	if w.state != stateHeadersWritten {
		return fmt.Errorf("must write headers before body")
	}

	if len(data) > 0 {
		if _, err := w.w.Write(data); err != nil {
				return err
		}
	}

	w.state = stateBodyWritten
	return nil
}
