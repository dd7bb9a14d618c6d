package headers

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	ErrMalformedHeader = errors.New("malformed header")
	ErrLineFolding     = errors.New("obsolete line folding not supported")
)

var crlf = []byte("\r\n")

type field struct {
	name  string
	value string
}

// Headers is an ordered header mapping. Names are kept exactly as received
// and compared case-sensitively; Lookup is the case-folding escape hatch.
type Headers struct {
	fields []field
	index  map[string]int
}

func NewHeaders() *Headers {
	return &Headers{
		index: make(map[string]int),
	}
}

// Get returns the value stored under exactly name.
func (h *Headers) Get(name string) (string, bool) {
	i, ok := h.index[name]
	if !ok {
		return "", false
	}
	return h.fields[i].value, true
}

// Lookup is Get with ASCII case folding. First match in insertion order wins.
func (h *Headers) Lookup(name string) (string, bool) {
	if v, ok := h.Get(name); ok {
		return v, true
	}
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return f.value, true
		}
	}
	return "", false
}

// Has reports whether name is present (case-insensitive).
func (h *Headers) Has(name string) bool {
	_, ok := h.Lookup(name)
	return ok
}

// Set stores value under name. An existing name keeps its position.
func (h *Headers) Set(name, value string) {
	if i, ok := h.index[name]; ok {
		h.fields[i].value = value
		return
	}
	h.index[name] = len(h.fields)
	h.fields = append(h.fields, field{name: name, value: value})
}

// Del removes name and closes the gap so order is preserved.
func (h *Headers) Del(name string) {
	i, ok := h.index[name]
	if !ok {
		return
	}
	h.fields = append(h.fields[:i], h.fields[i+1:]...)
	delete(h.index, name)
	for j := i; j < len(h.fields); j++ {
		h.index[h.fields[j].name] = j
	}
}

func (h *Headers) Len() int {
	return len(h.fields)
}

// All iterates in insertion order.
func (h *Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, f := range h.fields {
			if !yield(f.name, f.value) {
				return
			}
		}
	}
}

func (h *Headers) Clone() *Headers {
	c := &Headers{
		fields: make([]field, len(h.fields)),
		index:  make(map[string]int, len(h.index)),
	}
	copy(c.fields, h.fields)
	for k, v := range h.index {
		c.index[k] = v
	}
	return c
}

// Parse consumes complete "Name: value\r\n" lines from data. It returns the
// number of bytes consumed and done=true once the terminating blank line
// has been read. A repeated name overwrites the earlier value in place.
func (h *Headers) Parse(data []byte) (int, bool, error) {
	read := 0

	for {
		idx := bytes.Index(data[read:], crlf)
		if idx == -1 {
			return read, false, nil
		}

		if idx == 0 {
			return read + 2, true, nil
		}

		line := data[read : read+idx]

		if line[0] == ' ' || line[0] == '\t' {
			return read, false, ErrLineFolding
		}

		name, value, err := parseHeader(line)
		if err != nil {
			return read, false, err
		}

		h.Set(name, value)
		read += idx + 2
	}
}

func parseHeader(line []byte) (string, string, error) {
	colonIdx := bytes.IndexByte(line, ':')
	if colonIdx <= 0 {
		return "", "", fmt.Errorf("%w: no name or colon", ErrMalformedHeader)
	}

	name := line[:colonIdx]
	value := line[colonIdx+1:]

	if bytes.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("%w: whitespace in name", ErrMalformedHeader)
	}

	for _, b := range name {
		if !IsTokenChar(b) {
			return "", "", fmt.Errorf("%w: invalid character in header name: %q", ErrMalformedHeader, b)
		}
	}

	return string(name), string(bytes.TrimSpace(value)), nil
}

// IsTokenChar reports whether b is an RFC 7230 tchar.
func IsTokenChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9') ||
		b == '!' || b == '#' || b == '$' || b == '%' || b == '&' ||
		b == '\'' || b == '*' || b == '+' || b == '-' || b == '.' ||
		b == '^' || b == '_' || b == '`' || b == '|' || b == '~'
}
