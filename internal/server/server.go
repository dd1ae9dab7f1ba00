// internal/server/server.go
//
// HTTP server with hardened timeouts and graceful shutdown.
//
// Production hardening recommends:
//
//   - ReadTimeout   – abort slow-loris headers
//   - WriteTimeout  – cap total response time
//   - IdleTimeout   – close keep-alives on idle clients
//
// This helper centralises those defaults so cmd/web doesn't repeat
// boilerplate.  Zero values in Timeouts fall back to the defaults below.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Timeouts for New.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

// Defaults used for zero fields.
var DefaultTimeouts = Timeouts{
	Read:     10 * time.Second,
	Write:    15 * time.Second,
	Idle:     60 * time.Second,
	Shutdown: 15 * time.Second,
}

// Server pairs an *http.Server with its shutdown budget.
type Server struct {
	HTTP     *http.Server
	shutdown time.Duration
}

// New constructs a Server.
func New(addr string, handler http.Handler, t Timeouts) *Server {
	t = t.withDefaults()
	return &Server{
		HTTP: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       t.Read,
			ReadHeaderTimeout: t.Read,
			WriteTimeout:      t.Write,
			IdleTimeout:       t.Idle,
		},
		shutdown: t.Shutdown,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for
// at most the shutdown budget.  A clean shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.HTTP.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		zap.L().Info("http listening", zap.String("addr", ln.Addr().String()))
		errc <- s.HTTP.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdown)
	defer cancel()
	zap.L().Info("http shutting down", zap.Duration("budget", s.shutdown))
	if err := s.HTTP.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Read <= 0 {
		t.Read = DefaultTimeouts.Read
	}
	if t.Write <= 0 {
		t.Write = DefaultTimeouts.Write
	}
	if t.Idle <= 0 {
		t.Idle = DefaultTimeouts.Idle
	}
	if t.Shutdown <= 0 {
		t.Shutdown = DefaultTimeouts.Shutdown
	}
	return t
}
