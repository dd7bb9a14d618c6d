// Package static serves files from a document root.
package static

import (
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Brownie44l1/slowserve/internal/request"
	"github.com/Brownie44l1/slowserve/internal/response"
	"github.com/Brownie44l1/slowserve/internal/urlpath"
)

const (
	DefaultServerName = "slowserve"
	dateFormat        = "Mon, 02 Jan 2006 15:04:05 GMT"
)

// Handler answers GET and HEAD with files under Root. Every other method
// gets 405. Nothing outside Root is ever read.
type Handler struct {
	root       string
	serverName string
	now        func() time.Time
}

// New returns a handler rooted at root, which must be an existing
// directory. Symlinks in root itself are resolved once here.
func New(root string) (*Handler, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("document root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("document root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("document root %s is not a directory", abs)
	}

	return &Handler{
		root:       abs,
		serverName: DefaultServerName,
		now:        time.Now,
	}, nil
}

// Root is the resolved document root.
func (h *Handler) Root() string {
	return h.root
}

// WithServerName sets the Server header value.
func (h *Handler) WithServerName(name string) *Handler {
	h.serverName = name
	return h
}

func (h *Handler) Handle(req *request.Request) (*response.Response, error) {
	method := req.Method()
	if method != "GET" && method != "HEAD" {
		resp := h.newResponse(response.StatusMethodNotAllowed)
		resp.Headers.Set("Allow", "GET, HEAD")
		resp.SetContentLength()
		return resp, nil
	}

	rel := urlpath.Normalize(req.URL())

	resp := h.newResponse(response.StatusOK)
	resp.Headers.Set("Content-Type", contentType(rel))

	file, size, ok := h.resolve(rel)
	if !ok {
		resp.Status = response.StatusNotFound
		resp.SetContentLength()
		return resp, nil
	}

	if method == "HEAD" {
		resp.Headers.Set("Content-Length", strconv.FormatInt(size, 10))
		return resp, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		resp.Status = response.StatusNotFound
		resp.SetContentLength()
		return resp, nil
	}
	resp.Body = data
	resp.SetContentLength()
	return resp, nil
}

func (h *Handler) newResponse(code response.StatusCode) *response.Response {
	resp := response.New(code)
	resp.Headers.Set("Server", h.serverName)
	resp.Headers.Set("Date", h.now().UTC().Format(dateFormat))
	return resp
}

// resolve maps a normalized path to a regular file inside the root,
// following symlinks only as long as they stay inside it.
func (h *Handler) resolve(rel string) (string, int64, bool) {
	full := filepath.Join(h.root, filepath.FromSlash(rel))
	if !within(h.root, full) {
		return "", 0, false
	}

	real, err := filepath.EvalSymlinks(full)
	if err != nil || !within(h.root, real) {
		return "", 0, false
	}

	info, err := os.Stat(real)
	if err != nil || !info.Mode().IsRegular() {
		return "", 0, false
	}
	return real, info.Size(), true
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// contentType guesses from the extension, "" when unknown.
func contentType(rel string) string {
	return mime.TypeByExtension(path.Ext(rel))
}
