package router

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Brownie44l1/slowserve/internal/response"
	"github.com/Brownie44l1/slowserve/internal/wsgi"
)

// Response is what a route handler returns. Headers keep their order on
// the wire.
type Response struct {
	Status  response.StatusCode
	Headers []wsgi.Header
	Body    []byte
}

// SetHeader replaces the first header named name, or appends one.
func (r *Response) SetHeader(name, value string) {
	for i := range r.Headers {
		if r.Headers[i].Name == name {
			r.Headers[i].Value = value
			return
		}
	}
	r.Headers = append(r.Headers, wsgi.Header{Name: name, Value: value})
}

// StatusLine is the status as passed to start_response, e.g. "200 OK".
func (r *Response) StatusLine() string {
	return fmt.Sprintf("%d %s", r.Status, response.StatusText(r.Status))
}

// Status builds an empty response
func Status(code response.StatusCode) *Response {
	resp := &Response{Status: code}
	resp.SetHeader("Content-Length", "0")
	return resp
}

// Text builds a plain text response
func Text(code response.StatusCode, body string) *Response {
	resp := &Response{Status: code, Body: []byte(body)}
	resp.SetHeader("Content-Type", "text/plain; charset=utf-8")
	resp.SetHeader("Content-Length", strconv.Itoa(len(resp.Body)))
	return resp
}

// JSON builds a response holding v encoded as JSON
func JSON(code response.StatusCode, v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}

	resp := &Response{Status: code, Body: data}
	resp.SetHeader("Content-Type", "application/json")
	resp.SetHeader("Content-Length", strconv.Itoa(len(data)))
	return resp, nil
}
