// Package server exposes the capture pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/ugc2notion/internal/app"
	"github.com/ibeckermayer/ugc2notion/internal/errs"
)

// Creator runs the pipeline for one post URL
type Creator interface {
	Create(ctx context.Context, postURL string) (app.Result, error)
}

// Config holds the HTTP settings
type Config struct {
	ListenAddr      string
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP front of the service
type Server struct {
	router  *gin.Engine
	server  *http.Server
	creator Creator
	cfg     Config
	log     zerolog.Logger
}

// New creates a server. Routes are registered immediately.
func New(cfg Config, creator Creator, log zerolog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}

	router := gin.New()
	// accessLog wraps recovery so panics still produce an access line
	router.Use(requestLogger(log), accessLog(), recovery(), cors(cfg.AllowedOrigins))

	s := &Server{
		router:  router,
		creator: creator,
		cfg:     cfg,
		log:     log.With().Str("component", "server").Logger(),
	}
	s.routes()

	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/create-ugc", s.handleCreate)
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", ln.Addr().String()).Msg("Starting HTTP server")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Dur("timeout", s.cfg.ShutdownTimeout).Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info().Msg("HTTP server stopped gracefully")
	return nil
}

// statusFor maps an error category onto an HTTP status
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNavigation, errs.KindPublish:
		return http.StatusBadGateway
	case errs.KindStructural:
		return http.StatusUnprocessableEntity
	case errs.KindSession:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
