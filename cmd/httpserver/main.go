// Command httpserver runs the notes application through the WSGI bridge.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/slowserve/internal/notes"
	"github.com/Brownie44l1/slowserve/internal/response"
	"github.com/Brownie44l1/slowserve/internal/router"
	"github.com/Brownie44l1/slowserve/internal/server"
	"github.com/Brownie44l1/slowserve/internal/wsgi"
)

func main() {
	cfg := server.DefaultConfig()
	cfg.Port = 5000
	cfg.Workers = 4
	cfg.Backlog = 16
	flag.StringVar(&cfg.Host, "host", cfg.Host, "listen host")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	flag.IntVar(&cfg.Backlog, "backlog", cfg.Backlog, "pending connection queue size")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "connections served concurrently")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-connection read/write timeout (0 disables)")
	jsonLogs := flag.Bool("json", false, "log JSON lines instead of console output")
	flag.Parse()

	var logger *server.ZerologLogger
	if *jsonLogs {
		logger = server.NewLogger(os.Stderr, zerolog.InfoLevel)
	} else {
		logger = server.NewConsoleLogger(os.Stderr, zerolog.InfoLevel)
	}

	r := router.New()
	r.GET("/", func(*router.Request, ...string) (*router.Response, error) {
		return router.Text(response.StatusOK, "notes service\n"), nil
	})
	notes.Register(r, notes.NewStore())

	app := wsgi.NewBridge(r, wsgi.ServerInfo{
		Name:   cfg.Host,
		Port:   cfg.Port,
		Errors: logger.Stream("wsgi.errors"),
	})

	srv, err := server.New(cfg, app,
		server.WithLogger(logger),
		server.WithMiddleware(
			server.LoggingMiddleware(logger),
			server.RequestIDMiddleware(),
		),
	)
	if err != nil {
		logger.Error("invalid configuration", server.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, server.ErrServerClosed) {
		logger.Error("server failed", server.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	stats := srv.Stats()
	fmt.Fprintf(os.Stderr, "connections=%d requests=%d failures=%d 4xx=%d 5xx=%d avg_latency=%s\n",
		stats.ConnectionsTotal, stats.RequestsTotal, stats.HandlerFailures,
		stats.Errors4xx, stats.Errors5xx, stats.AverageLatency)
}
