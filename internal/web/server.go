// Package web provides an HTTP status server for the newyear-wave daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sweeney/newyear-wave/internal/clock"
	"github.com/sweeney/newyear-wave/internal/locale"
	"github.com/sweeney/newyear-wave/internal/logic"
	"github.com/sweeney/newyear-wave/internal/status"
	"go.uber.org/zap"
)

// Options configures a Server.
type Options struct {
	Addr       string
	Tracker    *status.Tracker
	Translator *locale.Translator
	// Clock is the wave clock used by the API and the calendar. Nil means real time.
	Clock       clock.Clock
	Places      []logic.Place
	DefaultLang string
	Log         *zap.Logger
}

// Server serves the status page, JSON API and calendar over HTTP.
type Server struct {
	httpServer  *http.Server
	tracker     *status.Tracker
	tr          *locale.Translator
	clock       clock.Clock
	places      []logic.Place
	defaultLang string
	log         *zap.Logger

	calendar atomic.Pointer[calendarItem]
}

// New creates a Server that reads state from the configured tracker.
func New(o Options) *Server {
	s := &Server{
		tracker:     o.Tracker,
		tr:          o.Translator,
		clock:       o.Clock,
		places:      o.Places,
		defaultLang: o.DefaultLang,
		log:         o.Log,
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.defaultLang == "" {
		s.defaultLang = "en"
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	s.httpServer = &http.Server{
		Addr:              o.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.GetHead)
	router.Use(s.logRequests)

	router.Get("/", s.handleIndex)
	router.Get("/index.html", s.handleIndex)
	router.Get("/index.json", s.handleJSON)
	router.Get("/api/newyear", s.handleNewYear)
	router.Get("/calendar.ics", s.handleCalendar)
	router.NotFound(http.NotFound)
	return router
}

// Handler returns the routed handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// lang picks the display language: ?lang= first, then Accept-Language,
// then the configured default.
func (s *Server) lang(r *http.Request) string {
	if q := r.URL.Query().Get("lang"); q != "" {
		return s.tr.Match(q)
	}
	if h := r.Header.Get("Accept-Language"); h != "" {
		return s.tr.Match(h)
	}
	return s.defaultLang
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, s.tr, s.lang(r), snap); err != nil {
		s.log.Warn("render index", zap.Error(err))
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}
