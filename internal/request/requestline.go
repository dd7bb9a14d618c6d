package request

import (
	"bytes"
	"errors"
	"strings"

	"github.com/Brownie44l1/slowserve/internal/headers"
)

var (
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrInvalidMethod        = errors.New("invalid HTTP method")
	ErrInvalidPath          = errors.New("invalid request path")
	ErrUnsupportedVersion   = errors.New("unsupported HTTP version")
)

var crlf = []byte("\r\n")

// parseRequestLine parses: METHOD TARGET VERSION\r\n
// Returns: method, target, version, bytesConsumed, error
func parseRequestLine(data []byte) (string, string, string, int, error) {
	idx := bytes.Index(data, crlf)
	if idx == -1 {
		return "", "", "", 0, nil
	}

	parts := bytes.Split(data[:idx], []byte(" "))
	if len(parts) != 3 {
		return "", "", "", 0, ErrMalformedRequestLine
	}

	method := string(parts[0])
	target := string(parts[1])
	version := string(parts[2])

	if !isValidMethod(method) {
		return "", "", "", 0, ErrInvalidMethod
	}

	if !isValidTarget(target) {
		return "", "", "", 0, ErrInvalidPath
	}

	if !isValidVersion(version) {
		return "", "", "", 0, ErrUnsupportedVersion
	}

	return method, target, version, idx + 2, nil
}

// isValidMethod accepts any token. Handlers decide which methods they serve.
func isValidMethod(method string) bool {
	if method == "" {
		return false
	}
	for i := 0; i < len(method); i++ {
		if !headers.IsTokenChar(method[i]) {
			return false
		}
	}
	return true
}

// isValidTarget accepts origin-form, absolute-form and "*".
func isValidTarget(target string) bool {
	switch {
	case target == "":
		return false
	case target[0] == '/', target == "*":
		return true
	default:
		return strings.Contains(target, "://")
	}
}

func isValidVersion(version string) bool {
	return version == "HTTP/1.0" || version == "HTTP/1.1"
}
