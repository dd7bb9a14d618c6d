// Command tcplistener prints every request it parses and echoes the
// same dump back to the client. Handy for checking what the parser makes
// of raw bytes sent with nc or curl.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/slowserve/internal/request"
	"github.com/Brownie44l1/slowserve/internal/response"
	"github.com/Brownie44l1/slowserve/internal/server"
)

func main() {
	cfg := server.DefaultConfig()
	cfg.Port = 42069
	flag.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	flag.Parse()

	logger := server.NewConsoleLogger(os.Stderr, zerolog.DebugLevel)

	srv, err := server.New(cfg, server.HandlerFunc(dump), server.WithLogger(logger))
	if err != nil {
		logger.Error("invalid configuration", server.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, server.ErrServerClosed) {
		logger.Error("server failed", server.Field{Key: "error", Value: err})
		os.Exit(1)
	}
}

func dump(req *request.Request) (*response.Response, error) {
	var b strings.Builder
	b.WriteString("Request line:\n")
	fmt.Fprintf(&b, "- Method: %s\n", req.Method())
	fmt.Fprintf(&b, "- Target: %s\n", req.URL())
	fmt.Fprintf(&b, "- Version: %s\n", req.Version())
	b.WriteString("Headers:\n")
	for name, value := range req.Headers() {
		fmt.Fprintf(&b, "- %s: %s\n", name, value)
	}
	b.WriteString("Body:\n")
	b.Write(req.Body())
	b.WriteString("\n")

	fmt.Print(b.String())
	return response.Text(response.StatusOK, b.String()), nil
}
