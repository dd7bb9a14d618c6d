package server

import (
	"errors"
	"net"
	"time"
)

const maxAcceptBackoff = time.Second

// worker loops accept → serve on the shared listener until the stop flag
// is raised. A failed accept is logged and retried; it never ends the
// loop unless the listener itself is gone.
func (s *Server) worker(ln net.Listener, id int) {
	var backoff time.Duration

	for !s.closed.Load() {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}

			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(backoff*2, maxAcceptBackoff)
			}
			s.logger.Warn("accept failed",
				Field{"worker", id},
				Field{"error", err},
				Field{"retry_in", backoff.String()},
			)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.serveConn(conn, id)
	}
}
