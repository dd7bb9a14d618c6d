package router

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/slowserve/internal/request"
	"github.com/Brownie44l1/slowserve/internal/response"
	"github.com/Brownie44l1/slowserve/internal/wsgi"
)

func named(name string) HandlerFunc {
	return func(*Request, ...string) (*Response, error) {
		return Text(response.StatusOK, name), nil
	}
}

func TestMatchExactPath(t *testing.T) {
	r := New()
	r.GET("/", named("root"))
	r.GET("/items", named("items"))

	m, ok := r.Match("GET", "/items")
	require.True(t, ok)
	assert.Equal(t, "/items", m.Route.Pattern)
	assert.Empty(t, m.Args)

	_, ok = r.Match("GET", "/items/1")
	assert.False(t, ok)
}

func TestMatchMethodMustBeEqual(t *testing.T) {
	r := New()
	r.POST("/items", named("create"))

	_, ok := r.Match("GET", "/items")
	assert.False(t, ok)

	_, ok = r.Match("post", "/items")
	assert.False(t, ok)
}

func TestMatchPositionalArgs(t *testing.T) {
	r := New()
	r.GET("/items/{", named("item"))

	m, ok := r.Match("GET", "/items/abc&def")
	require.True(t, ok)
	assert.Equal(t, []string{"abc", "def"}, m.Args)

	m, ok = r.Match("GET", "/items/42")
	require.True(t, ok)
	assert.Equal(t, []string{"42"}, m.Args)

	m, ok = r.Match("GET", "/items/")
	require.True(t, ok)
	assert.Empty(t, m.Args)

	m, ok = r.Match("GET", "/items/7?verbose=1")
	require.True(t, ok)
	assert.Equal(t, []string{"7"}, m.Args)
}

func TestMatchTailNeedsMarker(t *testing.T) {
	r := New()
	r.GET("/items/list", named("list"))

	// Same tail, but without '{' only an exact path matches
	_, ok := r.Match("GET", "/items/other")
	assert.False(t, ok)
}

func TestMatchFirstRegisteredWins(t *testing.T) {
	r := New()
	r.GET("/items/{", named("param"))
	r.GET("/items/special", named("special"))

	m, ok := r.Match("GET", "/items/special")
	require.True(t, ok)
	assert.Equal(t, "/items/{", m.Route.Pattern)
	assert.Equal(t, []string{"special"}, m.Args)
}

func TestRouteDecorator(t *testing.T) {
	r := New()
	h := r.Route("PATCH", "/notes/{")(named("patch"))
	require.NotNil(t, h)

	routes := r.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "PATCH", routes[0].Method)
	assert.Equal(t, "/notes/{", routes[0].Pattern)
}

func TestVerbHelpers(t *testing.T) {
	r := New()
	r.GET("/a", named("a"))
	r.POST("/a", named("a"))
	r.PUT("/a", named("a"))
	r.PATCH("/a", named("a"))
	r.DELETE("/a", named("a"))

	var methods []string
	for _, route := range r.Routes() {
		methods = append(methods, route.Method)
	}
	assert.Equal(t, []string{"GET", "POST", "PUT", "PATCH", "DELETE"}, methods)
}

func TestParseQuery(t *testing.T) {
	q := parseQuery("a=1&b=&c=x&c=y&d=z&d=&bad=%zz")

	assert.Equal(t, map[string]string{"a": "1", "c": "y", "d": "z"}, q)
	assert.Empty(t, parseQuery(""))
}

// serve runs the router behind the bridge, the way the server does.
func serve(t *testing.T, r *Router, raw string) (*response.Response, error) {
	t.Helper()
	req, err := request.FromReader(strings.NewReader(raw), request.Options{})
	require.NoError(t, err)
	return wsgi.NewBridge(r, wsgi.ServerInfo{Name: "localhost", Port: 8080}).Handle(req)
}

func TestServeDispatch(t *testing.T) {
	r := New()
	var gotArgs []string
	var gotReq *Request
	r.PUT("/items/{", func(req *Request, args ...string) (*Response, error) {
		gotArgs = args
		gotReq = req
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		return Text(response.StatusAccepted, strings.ToUpper(string(body))), nil
	})

	resp, err := serve(t, r, "PUT /items/abc&def?x=1&y= HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	require.NoError(t, err)

	assert.Equal(t, []string{"abc", "def"}, gotArgs)
	assert.Equal(t, "PUT", gotReq.Method)
	assert.Equal(t, "/items/abc&def", gotReq.Path)
	assert.Equal(t, map[string]string{"x": "1"}, gotReq.Query)
	assert.Equal(t, "localhost", gotReq.Env.Get(wsgi.KeyServerName))

	assert.Equal(t, response.StatusAccepted, resp.Status)
	assert.Equal(t, "HTTP/1.1 202 Accepted\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"Content-Length: 5\r\n"+
		"\r\n"+
		"HELLO", string(resp.Bytes()))
}

func TestServeMissIsNotFound(t *testing.T) {
	r := New()
	r.GET("/known", named("known"))

	resp, err := serve(t, r, "GET /unknown HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, response.StatusNotFound, resp.Status)
	assert.Equal(t, "Not Found", string(resp.Body))
}

func TestServeHandlerError(t *testing.T) {
	boom := errors.New("storage offline")
	r := New()
	r.GET("/", func(*Request, ...string) (*Response, error) { return nil, boom })

	_, err := serve(t, r, "GET / HTTP/1.1\r\n\r\n")
	assert.ErrorIs(t, err, boom)
}

func TestServeNilResponse(t *testing.T) {
	r := New()
	r.GET("/", func(*Request, ...string) (*Response, error) { return nil, nil })

	_, err := serve(t, r, "GET / HTTP/1.1\r\n\r\n")
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(req *Request, args ...string) (*Response, error) {
				order = append(order, name)
				resp, err := next(req, args...)
				if resp != nil {
					resp.SetHeader("X-"+name, "1")
				}
				return resp, err
			}
		}
	}

	r := New()
	r.Use(tag("Outer"), tag("Inner"))
	r.GET("/", func(*Request, ...string) (*Response, error) {
		order = append(order, "handler")
		return Status(response.StatusNoContent), nil
	})

	resp, err := serve(t, r, "GET / HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"Outer", "Inner", "handler"}, order)

	var names []string
	for name := range resp.Headers.All() {
		names = append(names, name)
	}
	assert.Equal(t, []string{"Content-Length", "X-Inner", "X-Outer"}, names)
}

func TestResponseBuilders(t *testing.T) {
	resp, err := JSON(response.StatusCreated, map[string]int{"id": 3})
	require.NoError(t, err)
	assert.Equal(t, "201 Created", resp.StatusLine())
	assert.Equal(t, `{"id":3}`, string(resp.Body))
	assert.Equal(t, []wsgi.Header{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "Content-Length", Value: "8"},
	}, resp.Headers)

	_, err = JSON(response.StatusOK, make(chan int))
	assert.Error(t, err)

	empty := Status(response.StatusNoContent)
	assert.Empty(t, empty.Body)
	assert.Equal(t, "204 No Content", empty.StatusLine())

	empty.SetHeader("Content-Length", "0")
	assert.Len(t, empty.Headers, 1)
}
