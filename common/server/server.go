package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/platewise/mealplanner/common/logger"
)

// shutdownGrace is the drain budget for in-flight requests once a stop
// signal arrives. Compilation itself is fast; the budget exists for
// modify requests that are already waiting on a chat completion.
const shutdownGrace = 30 * time.Second

// Server runs an http.Handler behind signal-aware graceful shutdown
type Server struct {
	name string
	http *http.Server
	log  *logger.Logger
}

// New wraps the handler in a server listening on the given port.
// WriteTimeout must outlast the slowest handler: a modify request can
// sit on two chat completions before it writes a byte.
func New(name string, port int, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		name: name,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       90 * time.Second,
		},
		log: log,
	}
}

// Start serves until the listener fails or the process receives
// SIGINT/SIGTERM, then drains in-flight requests before returning
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		s.log.Info(fmt.Sprintf("%s listening", s.name), "addr", s.http.Addr)
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("stop signal received, draining requests", "grace", shutdownGrace.String())

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.http.Shutdown(drainCtx); err != nil {
		s.log.Error("drain window expired, closing connections", "error", err)
		return s.http.Close()
	}

	s.log.Info("server stopped")
	return nil
}
