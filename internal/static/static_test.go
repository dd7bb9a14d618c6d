package static

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/slowserve/internal/request"
	"github.com/Brownie44l1/slowserve/internal/response"
)

func newHandler(t *testing.T, files map[string]string) *Handler {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	h, err := New(root)
	require.NoError(t, err)
	h.now = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }
	return h
}

func serve(t *testing.T, h *Handler, method, url string) *response.Response {
	t.Helper()
	resp, err := h.Handle(request.New(method, url, nil, nil))
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func header(t *testing.T, resp *response.Response, name string) string {
	t.Helper()
	v, ok := resp.Headers.Get(name)
	require.True(t, ok, "missing header %s", name)
	return v
}

func TestGetFile(t *testing.T) {
	h := newHandler(t, map[string]string{"css/site.css": "body{}"})

	resp := serve(t, h, "GET", "/css/site.css?v=3")

	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Equal(t, "body{}", string(resp.Body))
	assert.Equal(t, "6", header(t, resp, "Content-Length"))
	assert.Contains(t, header(t, resp, "Content-Type"), "text/css")
	assert.Equal(t, "slowserve", header(t, resp, "Server"))
	assert.Equal(t, "Mon, 19 Oct 2026 09:30:00 GMT", header(t, resp, "Date"))
}

func TestGetDirectoryServesIndex(t *testing.T) {
	h := newHandler(t, map[string]string{
		"index.html":      "<h1>home</h1>",
		"docs/index.html": "<h1>docs</h1>",
	})

	assert.Equal(t, "<h1>home</h1>", string(serve(t, h, "GET", "/").Body))
	assert.Equal(t, "<h1>docs</h1>", string(serve(t, h, "GET", "/docs/").Body))

	// a directory without the trailing slash is not a file
	assert.Equal(t, response.StatusNotFound, serve(t, h, "GET", "/docs").Status)
}

func TestGetMissingFile(t *testing.T) {
	h := newHandler(t, nil)

	resp := serve(t, h, "GET", "/missing.txt")

	assert.Equal(t, response.StatusNotFound, resp.Status)
	assert.Empty(t, resp.Body)
	assert.Equal(t, "0", header(t, resp, "Content-Length"))
}

func TestHeadFile(t *testing.T) {
	h := newHandler(t, map[string]string{"a.txt": "hello"})

	resp := serve(t, h, "HEAD", "/a.txt")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Empty(t, resp.Body)
	assert.Equal(t, "5", header(t, resp, "Content-Length"))

	resp = serve(t, h, "HEAD", "/missing.txt")
	assert.Equal(t, response.StatusNotFound, resp.Status)
	assert.Empty(t, resp.Body)
}

func TestOtherMethodsNotAllowed(t *testing.T) {
	h := newHandler(t, map[string]string{"a.txt": "hello"})

	for _, method := range []string{"POST", "PUT", "DELETE", "PATCH", "OPTIONS", "get"} {
		resp := serve(t, h, method, "/a.txt")
		assert.Equal(t, response.StatusMethodNotAllowed, resp.Status, method)
		assert.Equal(t, "GET, HEAD", header(t, resp, "Allow"))
		assert.Empty(t, resp.Body)
	}
}

func TestTraversalStaysInRoot(t *testing.T) {
	parent := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("top secret"), 0o644))
	root := filepath.Join(parent, "www")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("home"), 0o644))

	h, err := New(root)
	require.NoError(t, err)

	for _, url := range []string{
		"/../secret.txt",
		"/../../../secret.txt",
		"/%2e%2e/secret.txt",
		"/a/../../secret.txt",
	} {
		resp := serve(t, h, "GET", url)
		assert.Equal(t, response.StatusNotFound, resp.Status, url)
		assert.NotContains(t, string(resp.Body), "top secret", url)
	}

	resp := serve(t, h, "GET", "/../../..")
	assert.Equal(t, response.StatusOK, resp.Status)
	assert.Equal(t, "home", string(resp.Body))
}

func TestSymlinkOutOfRoot(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("top secret"), 0o644))

	h := newHandler(t, map[string]string{"inside.txt": "ok"})
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(h.Root(), "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink("inside.txt", filepath.Join(h.Root(), "alias.txt")))

	assert.Equal(t, response.StatusNotFound, serve(t, h, "GET", "/link.txt").Status)
	assert.Equal(t, "ok", string(serve(t, h, "GET", "/alias.txt").Body))
}

func TestUnknownExtensionHasEmptyContentType(t *testing.T) {
	h := newHandler(t, map[string]string{"data.unknownext": "x", "README": "y"})

	assert.Equal(t, "", header(t, serve(t, h, "GET", "/data.unknownext"), "Content-Type"))
	assert.Equal(t, "", header(t, serve(t, h, "GET", "/README"), "Content-Type"))
}

func TestPercentEncodedName(t *testing.T) {
	h := newHandler(t, map[string]string{"my file.txt": "spaced"})

	assert.Equal(t, "spaced", string(serve(t, h, "GET", "/my%20file.txt").Body))
}

func TestNewRejectsBadRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file)
	assert.Error(t, err)
}

func TestServerName(t *testing.T) {
	h := newHandler(t, nil).WithServerName("Lav's Server")

	assert.Equal(t, "Lav's Server", header(t, serve(t, h, "GET", "/"), "Server"))
}
