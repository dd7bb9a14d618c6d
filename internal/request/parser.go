package request

import (
	"errors"
	"fmt"
	"io"
)

// Size limits (DoS protection)
const (
	maxRequestLineSize    = 8192      // 8KB for request line
	defaultMaxHeaderBytes = 1 << 20   // 1MB total headers
	defaultMaxBodyBytes   = 100 << 20 // 100MB body
	maxHeaderLines        = 1000      // Max number of header lines
)

var (
	ErrRequestLineTooLarge  = errors.New("request line too large")
	ErrHeaderTooLarge       = errors.New("headers too large")
	ErrTooManyHeaders       = errors.New("too many header lines")
	ErrBodyTooLarge         = errors.New("body exceeds maximum size")
	ErrInvalidContentLength = errors.New("invalid Content-Length")
	ErrUnexpectedEOF        = fmt.Errorf("request truncated: %w", io.ErrUnexpectedEOF)
)

// parserState represents the current state of the request parser
type parserState int

const (
	stateRequestLine parserState = iota
	stateHeaders
	stateBody
	stateDone
)

// parser handles incremental parsing of one HTTP request
type parser struct {
	state       parserState
	buffer      []byte // Accumulates data between reads
	eof         bool
	maxBodySize int64
}

func newParser(maxBodySize int64) *parser {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodyBytes
	}

	return &parser{
		state:       stateRequestLine,
		buffer:      make([]byte, 0, readBufferSize),
		maxBodySize: maxBodySize,
	}
}

// parseFromReader reads from reader until one request is complete.
func (p *parser) parseFromReader(reader io.Reader, req *Request, maxHeaderBytes int) error {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = defaultMaxHeaderBytes
	}

	readBuf := getReadBuffer()
	defer putReadBuffer(readBuf)

	for p.state != stateDone {
		// Parse what is already buffered before reading more
		if len(p.buffer) > 0 {
			consumed, err := p.parse(p.buffer, req)
			if err != nil {
				return err
			}
			if consumed > 0 {
				p.buffer = p.buffer[consumed:]
				continue
			}
			if p.state == stateDone {
				break
			}
		}

		if p.eof {
			return ErrUnexpectedEOF
		}

		if p.state != stateBody && len(p.buffer) >= maxHeaderBytes {
			return ErrHeaderTooLarge
		}

		n, err := reader.Read(*readBuf)
		if n > 0 {
			if p.state != stateBody && len(p.buffer)+n > maxHeaderBytes {
				return ErrHeaderTooLarge
			}
			p.buffer = append(p.buffer, (*readBuf)[:n]...)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				p.eof = true
				continue
			}
			return fmt.Errorf("read error: %w", err)
		}
	}

	return nil
}

// parse processes buffered data and advances the state machine.
// Returns number of bytes consumed.
func (p *parser) parse(data []byte, req *Request) (int, error) {
	switch p.state {
	case stateRequestLine:
		return p.parseRequestLine(data, req)
	case stateHeaders:
		return p.parseHeaders(data, req)
	case stateBody:
		return p.parseBody(data, req)
	case stateDone:
		return 0, nil
	default:
		return 0, fmt.Errorf("invalid parser state: %d", p.state)
	}
}

func (p *parser) parseRequestLine(data []byte, req *Request) (int, error) {
	method, target, version, consumed, err := parseRequestLine(data)
	if err != nil {
		return 0, err
	}

	if consumed == 0 {
		if len(data) > maxRequestLineSize {
			return 0, ErrRequestLineTooLarge
		}
		return 0, nil
	}

	req.method = method
	req.url = target
	req.version = version

	p.state = stateHeaders
	return consumed, nil
}

// parseHeaders parses header lines until the blank line, then decides
// whether a fixed-length body follows. Transfer-Encoding is not decoded.
func (p *parser) parseHeaders(data []byte, req *Request) (int, error) {
	consumed, done, err := req.headers.Parse(data)
	if err != nil {
		return 0, err
	}

	if req.headers.Len() > maxHeaderLines {
		return 0, ErrTooManyHeaders
	}

	if !done {
		return consumed, nil
	}

	if raw, ok := req.headers.Lookup("Content-Length"); ok {
		cl := req.ContentLength()
		if cl < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidContentLength, raw)
		}
		if cl > p.maxBodySize {
			return 0, ErrBodyTooLarge
		}
		if cl > 0 {
			req.body = make([]byte, 0, cl)
			p.state = stateBody
			return consumed, nil
		}
	}

	p.state = stateDone
	return consumed, nil
}

// parseBody reads body bytes up to Content-Length
func (p *parser) parseBody(data []byte, req *Request) (int, error) {
	remaining := cap(req.body) - len(req.body)
	toRead := min(remaining, len(data))

	req.body = append(req.body, data[:toRead]...)

	if len(req.body) == cap(req.body) {
		p.state = stateDone
	}

	return toRead, nil
}
