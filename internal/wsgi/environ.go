// Package wsgi bridges parsed requests to framework-agnostic applications
// using the WSGI calling convention: an environment of CGI-style
// variables in, a start-response callback plus body chunks out.
package wsgi

import (
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/Brownie44l1/slowserve/internal/request"
)

// Environment keys
const (
	KeyRequestMethod  = "REQUEST_METHOD"
	KeyScriptName     = "SCRIPT_NAME"
	KeyPathInfo       = "PATH_INFO"
	KeyQueryString    = "QUERY_STRING"
	KeyContentType    = "CONTENT_TYPE"
	KeyContentLength  = "CONTENT_LENGTH"
	KeyServerProtocol = "SERVER_PROTOCOL"
	KeyServerName     = "SERVER_NAME"
	KeyServerPort     = "SERVER_PORT"
	KeyRemoteAddr     = "REMOTE_ADDR"
	KeyURLScheme      = "wsgi.url_scheme"
	KeyMultithread    = "wsgi.multithread"
	KeyMultiprocess   = "wsgi.multiprocess"
	KeyRunOnce        = "wsgi.run_once"
)

// Environ is the call environment handed to an App. String variables are
// read with Get; the body is Input and the error stream is Errors.
type Environ struct {
	vars   map[string]string
	Input  io.Reader
	Errors io.Writer
}

// NewEnviron builds an environment from explicit variables. Mostly for
// tests and for apps composed without a server.
func NewEnviron(vars map[string]string, input io.Reader) *Environ {
	e := &Environ{
		vars:   make(map[string]string, len(vars)),
		Input:  input,
		Errors: io.Discard,
	}
	for k, v := range vars {
		e.vars[k] = v
	}
	if e.Input == nil {
		e.Input = strings.NewReader("")
	}
	return e
}

func (e *Environ) Get(key string) string {
	return e.vars[key]
}

func (e *Environ) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Keys returns every variable name, sorted.
func (e *Environ) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (e *Environ) Method() string { return e.vars[KeyRequestMethod] }
func (e *Environ) Path() string   { return e.vars[KeyPathInfo] }
func (e *Environ) Query() string  { return e.vars[KeyQueryString] }

// ServerInfo is what the environment needs to know about the server.
type ServerInfo struct {
	Name   string
	Port   int
	Errors io.Writer
}

// EnvironFrom translates a request into a WSGI environment. Every request
// header also appears as HTTP_<NAME>, upper-cased with '-' as '_'.
func EnvironFrom(req *request.Request, info ServerInfo) *Environ {
	contentType, _ := req.LookupHeader("Content-Type")
	contentLength, _ := req.LookupHeader("Content-Length")

	vars := map[string]string{
		KeyRequestMethod:  req.Method(),
		KeyScriptName:     "",
		KeyPathInfo:       pathInfo(req.Path()),
		KeyQueryString:    req.RawQuery(),
		KeyContentType:    contentType,
		KeyContentLength:  contentLength,
		KeyServerProtocol: req.Version(),
		KeyServerName:     info.Name,
		KeyServerPort:     strconv.Itoa(info.Port),
		KeyRemoteAddr:     remoteHost(req.RemoteAddr()),
		KeyURLScheme:      "http",
		KeyMultithread:    "true",
		KeyMultiprocess:   "false",
		KeyRunOnce:        "false",
	}

	for name, value := range req.Headers() {
		vars[headerKey(name)] = value
	}

	errs := info.Errors
	if errs == nil {
		errs = io.Discard
	}

	return &Environ{
		vars:   vars,
		Input:  req.BodyReader(),
		Errors: errs,
	}
}

func headerKey(name string) string {
	return "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// pathInfo percent-decodes the path. Absolute-form targets lose their
// scheme and authority.
func pathInfo(p string) string {
	if strings.Contains(p, "://") {
		if u, err := url.Parse(p); err == nil {
			return u.Path
		}
	}
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	return decoded
}

func remoteHost(addr string) string {
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		return strings.Trim(addr[:i], "[]")
	}
	return addr
}
