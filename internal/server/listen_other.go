//go:build !unix

package server

import (
	"net"
	"strconv"
)

// listenTCP falls back to net.Listen; the backlog is left to the OS.
func listenTCP(host string, port, _ int) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}
