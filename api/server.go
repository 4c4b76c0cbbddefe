package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/encamino/encamino-backend/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// Server wraps the HTTP listener with signal-aware shutdown.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

func NewServer(addr string, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logg,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.log != nil {
		s.log.Info(context.Background(), "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
