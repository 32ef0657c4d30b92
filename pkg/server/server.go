// Package server runs the HTTP API alongside a training run and stops it on
// signals or cancellation.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const stopWaitTime = 5 * time.Second

type Config struct {
	Host string `env:"HOST" envDefault:"localhost"`
	// Port disables the server when empty.
	Port string `env:"PORT" envDefault:""`
}

type Server interface {
	Start() error
	Stop() error
}

type httpServer struct {
	ctx    context.Context
	cancel context.CancelFunc
	name   string
	server *http.Server
	logger *slog.Logger
}

var _ Server = (*httpServer)(nil)

func NewServer(ctx context.Context, cancel context.CancelFunc, name string, cfg Config, handler http.Handler, logger *slog.Logger) Server {
	return &httpServer{
		ctx:    ctx,
		cancel: cancel,
		name:   name,
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until Stop is called or the listener fails.
func (s *httpServer) Start() error {
	errCh := make(chan error, 1)
	s.logger.Info(fmt.Sprintf("%s service HTTP server listening at %s", s.name, s.server.Addr))
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-s.ctx.Done():
		return s.Stop()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	}
}

func (s *httpServer) Stop() error {
	defer s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), stopWaitTime)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("%s service error occurred during shutdown at %s: %s", s.name, s.server.Addr, err))

		return fmt.Errorf("%s service occurred during shutdown at %s: %w", s.name, s.server.Addr, err)
	}
	s.logger.Info(fmt.Sprintf("%s HTTP service shutdown of http at %s", s.name, s.server.Addr))

	return nil
}

// StopSignalHandler cancels ctx on SIGINT or SIGTERM and stops every server.
func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, svcName string, servers ...Server) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		defer cancel()
		var errs []error
		for _, s := range servers {
			errs = append(errs, s.Stop())
		}
		logger.Info(fmt.Sprintf("%s service shutdown by signal: %s", svcName, sig))

		return errors.Join(errs...)
	case <-ctx.Done():
		return nil
	}
}
