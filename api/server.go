// Package api exposes the event and profile stores over HTTP.
//
// Query endpoints accept the JSON request shape of query.Request and answer
// with {"rows": [...], "aggregations": {...}}. Errors are answered with
// {"error": "..."} and a 4xx or 5xx status.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vegasq/ncfstore/store"
)

// Server routes HTTP requests to the stores and query engine.
type Server struct {
	engine      *store.Engine
	profiles    *store.ProfileStore
	events      *store.EventStore
	persistence *store.PersistenceManager
	log         *zap.Logger
	metrics     *metrics
	router      *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithPersistence enables the /api/system/save and /api/system/load routes.
func WithPersistence(pm *store.PersistenceManager) Option {
	return func(s *Server) {
		s.persistence = pm
	}
}

// NewServer builds the router. A nil logger disables logging.
func NewServer(engine *store.Engine, profiles *store.ProfileStore, events *store.EventStore, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		engine:   engine,
		profiles: profiles,
		events:   events,
		log:      log,
		metrics:  newMetrics(),
		router:   mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.metrics.middleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{userId}", s.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}", s.handleUpdateUser).Methods(http.MethodPut)
	api.HandleFunc("/users/{userId}", s.handleDeleteUser).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userId}/events", s.handleUserEvents).Methods(http.MethodGet)

	api.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleCreateEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/{eventId}", s.handleGetEvent).Methods(http.MethodGet)

	api.HandleFunc("/query/users", s.handleQueryUsers).Methods(http.MethodPost)
	api.HandleFunc("/query/events", s.handleQueryEvents).Methods(http.MethodPost)
	api.HandleFunc("/query/users/{userId}/events", s.handleQueryUserEvents).Methods(http.MethodPost)
	api.HandleFunc("/query/users/with-event", s.handleUsersWithEvent).Methods(http.MethodPost)
	api.HandleFunc("/query/users/with-sequence", s.handleUsersWithSequence).Methods(http.MethodPost)

	if s.persistence != nil {
		api.HandleFunc("/system/save", s.handleSave).Methods(http.MethodPost)
		api.HandleFunc("/system/load", s.handleLoad).Methods(http.MethodPost)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("HTTP server stopped")
	return nil
}
