package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/registry"
)

// Server is the HTTP front-end: it starts crawl tasks and answers polls
type Server struct {
	addr       string
	router     http.Handler
	httpServer *http.Server
	registry   *registry.Registry
	run        registry.RunFunc
	metrics    http.Handler // nil = no /metrics route
	log        *logrus.Entry
}

// NewServer creates a Server. run is executed in the background for every accepted request.
func NewServer(addr string, reg *registry.Registry, run registry.RunFunc, metricsHandler http.Handler, log *logrus.Entry) *Server {
	s := &Server{
		addr:     addr,
		registry: reg,
		run:      run,
		metrics:  metricsHandler,
		log:      log.WithField("component", "api"),
	}
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Infof("HTTP server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
// Calling it before Start makes Start return immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
