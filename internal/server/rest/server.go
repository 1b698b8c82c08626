// Package rest is the JSON API of the auth service: login, logout, token
// refresh, admin-driven registration and email confirmation.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/logging"
	"github.com/dmitrijs2005/flashboard/internal/server/metrics"
	"github.com/dmitrijs2005/flashboard/internal/server/rbac"
	"github.com/dmitrijs2005/flashboard/internal/server/services"
)

// Server serves the JSON API until its context is cancelled.
type Server struct {
	address         string
	shutdownTimeout time.Duration
	handler         http.Handler
	logger          logging.Logger
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Users   *services.UserService
	Tokens  *services.TokenService
	Gate    *rbac.Gate
	Metrics *metrics.Metrics
	Logger  logging.Logger
}

func NewServer(address string, shutdownTimeout time.Duration, d Deps) *Server {
	l := d.Logger.With("module", "rest_server")
	d.Logger = l
	return &Server{
		address:         address,
		shutdownTimeout: shutdownTimeout,
		handler:         NewRouter(d),
		logger:          l,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "forced HTTP shutdown", "error", err)
			_ = srv.Close()
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
