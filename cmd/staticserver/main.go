// Command staticserver serves files below a document root.
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

	"github.com/Brownie44l1/slowserve/internal/server"
	"github.com/Brownie44l1/slowserve/internal/static"
)

func main() {
	cfg := server.DefaultConfig()
	flag.StringVar(&cfg.Host, "host", cfg.Host, "listen host")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	flag.IntVar(&cfg.Backlog, "backlog", cfg.Backlog, "pending connection queue size")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "connections served concurrently")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-connection read/write timeout (0 disables)")
	root := flag.String("root", ".", "document root")
	debug := flag.Bool("debug", false, "log dropped connections")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := server.NewConsoleLogger(os.Stderr, level)

	files, err := static.New(*root)
	if err != nil {
		logger.Error("invalid document root", server.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	srv, err := server.New(cfg, files,
		server.WithLogger(logger),
		server.WithMiddleware(server.LoggingMiddleware(logger)),
	)
	if err != nil {
		logger.Error("invalid configuration", server.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving files", server.Field{Key: "root", Value: files.Root()})
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, server.ErrServerClosed) {
		logger.Error("server failed", server.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	stats := srv.Stats()
	fmt.Fprintf(os.Stderr, "connections=%d requests=%d parse_errors=%d 4xx=%d avg_latency=%s\n",
		stats.ConnectionsTotal, stats.RequestsTotal, stats.ParseErrors, stats.Errors4xx, stats.AverageLatency)
}
