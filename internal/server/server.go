// Package server exposes a fractal session over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/san-kum/fraclab/internal/config"
	"github.com/san-kum/fraclab/internal/session"
)

const maxPaletteBytes = 1 << 20

type Server struct {
	sess   *session.Session
	cfg    config.Config
	log    zerolog.Logger
	hub    *Hub
	router chi.Router
}

func New(sess *session.Session, log zerolog.Logger) *Server {
	s := &Server{
		sess: sess,
		cfg:  sess.Config(),
		log:  log.With().Str("component", "server").Logger(),
	}
	s.hub = NewHub(s.log)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(recoverer(s.log))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/fractals/{filename}", s.handleImage)
	r.Get("/ws", s.hub.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Post("/recenter", s.handleRecenter)
		r.Post("/render", s.handleRender)
		r.Get("/histogram", s.handleHistogram)
		r.Post("/palette", s.handlePalette)
		r.Get("/palettes", s.handlePalettes)
		r.Get("/presets", s.handlePresets)
	})
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
