// internal/server/timeouts.go
//
// HTTP server with fixed timeouts and graceful shutdown.
//
//   • ReadHeaderTimeout  slow-loris headers (5 s)
//   • ReadTimeout        whole request, uploads included (30 s)
//   • WriteTimeout       whole response (30 s)
//   • IdleTimeout        keep-alive connections (60 s)
//
// Upload bodies are capped separately by the handlers.

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ShutdownGrace bounds how long in-flight requests may run after the
// context passed to Run is cancelled.
const ShutdownGrace = 10 * time.Second

// New constructs an *http.Server with the timeouts above.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves on ln until ctx is cancelled, then drains in-flight requests
// for at most grace.  It returns nil after a clean shutdown.
func Run(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	zap.S().Infow("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	zap.S().Infow("http server shutting down", "grace", grace)
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
