// Package httpapi serves the JSON control surface on localhost:8050 (§6,
// §4.9a): status, config, history, a websocket log stream, sync controls,
// and an incoming push-notification receiver. Routing only — every
// handler delegates to internal/lifecycle, internal/config, or
// internal/history for the actual work.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arjunv/foldersync/internal/config"
	"github.com/arjunv/foldersync/internal/history"
	"github.com/arjunv/foldersync/internal/lifecycle"
	"github.com/arjunv/foldersync/internal/logstream"
)

// DefaultAddr is the control surface's listen address (§6: "starts the
// HTTP surface on localhost:8050").
const DefaultAddr = "127.0.0.1:8050"

const requestTimeout = 30 * time.Second

// Server wraps an Engine with the chi router exposing the control
// surface.
type Server struct {
	Engine  *lifecycle.Engine
	Holder  *config.Holder
	History *history.Log
	Hub     *logstream.Hub
	Logger  *slog.Logger

	router     chi.Router
	httpServer *http.Server
	addr       string
}

// NewServer builds a Server listening on addr. A blank addr falls back
// to DefaultAddr.
func NewServer(engine *lifecycle.Engine, holder *config.Holder, historyLog *history.Log, hub *logstream.Hub, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		Engine:  engine,
		Holder:  holder,
		History: historyLog,
		Hub:     hub,
		Logger:  logger,
		addr:    addr,
	}

	s.setupRouter()

	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/config", s.handleGetConfig)
		r.Post("/config", s.handleSetConfig)
		r.Get("/history", s.handleHistory)
		r.Get("/logs/stream", s.handleLogStream)
		r.Post("/sync/trigger", s.handleTrigger)
		r.Post("/sync/start", s.handleStart)
		r.Post("/sync/stop", s.handleStop)
		r.Post("/webhook", s.handleWebhook)
	})

	s.router = r
}

// Router exposes the assembled router for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start runs the HTTP server until Shutdown is called or it fails.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	s.Logger.Info("control surface listening", slog.String("addr", s.addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}

	return nil
}
