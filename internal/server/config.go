package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is fixed at New and never changes while the server runs.
type Config struct {
	Host    string
	Port    int
	Backlog int           // pending connections queued by the kernel
	Workers int           // connections served at the same time
	Timeout time.Duration // per-connection read/write deadline, 0 disables

	MaxHeaderBytes int
	MaxBodyBytes   int64
}

// DefaultConfig returns localhost:8080 with a single worker and a backlog
// of one.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		Backlog:        1,
		Workers:        1,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   10 << 20,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Backlog < 1 {
		errs = append(errs, fmt.Errorf("backlog must be at least 1, got %d", c.Backlog))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("negative timeout %s", c.Timeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
