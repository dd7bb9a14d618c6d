package response

import "strings"

// Text builds a plain text response with Content-Type and Content-Length
func Text(code StatusCode, body string) *Response {
	return Bytes(code, "text/plain; charset=utf-8", []byte(body))
}

// Bytes builds a response with arbitrary content. An empty contentType
// is still sent as an empty header value.
func Bytes(code StatusCode, contentType string, data []byte) *Response {
	r := New(code)
	r.Headers.Set("Content-Type", contentType)
	r.Body = data
	r.SetContentLength()
	return r
}

// MethodNotAllowed builds an empty 405 carrying the Allow header
func MethodNotAllowed(allowed ...string) *Response {
	r := New(StatusMethodNotAllowed)
	r.Headers.Set("Allow", strings.Join(allowed, ", "))
	r.SetContentLength()
	return r
}
