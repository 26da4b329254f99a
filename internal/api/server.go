// Package api exposes prices, history and source health over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"dollartracker/internal/aggregate"
	"dollartracker/internal/config"
	"dollartracker/internal/metrics"
	"dollartracker/internal/service"
	"dollartracker/internal/stats"
	"dollartracker/internal/status"
)

// Name is reported by the root endpoint.
const Name = "Dollar Tracker API"

// Backend is what the handlers read from. *service.Service satisfies it.
type Backend interface {
	Current(ctx context.Context) *aggregate.Snapshot
	History(ctx context.Context, interval, exchange string) service.HistoryResponse
	Volatility(ctx context.Context, period string) stats.VolatilityResult
	Sources() []status.Entry
	Health() service.HealthResponse
	Version() string
}

type Server struct {
	cfg     config.Server
	backend Backend
	log     *zap.Logger
	router  *mux.Router
	handler http.Handler
	http    *http.Server
}

func NewServer(cfg config.Server, b Backend, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{cfg: cfg, backend: b, log: log.Named("api")}
	s.setupRoutes()
	s.handler = handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)(withJSONHeaders(withGzip(s.recoverPanic(limitBody(withTimeout(cfg.RequestTimeout, s.router))))))
	return s
}

func (s *Server) setupRoutes() {
	r := mux.NewRouter()
	r.Use(s.observe)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/docs", s.handleDocs).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	s.registerData(r)
	s.registerData(r.PathPrefix("/api/v1").Subrouter())
	s.router = r
}

func (s *Server) registerData(r *mux.Router) {
	r.HandleFunc("/prices/current", s.handleCurrent).Methods(http.MethodGet)
	r.HandleFunc("/prices/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/stats/volatility", s.handleVolatility).Methods(http.MethodGet)
	r.HandleFunc("/stats/sources", s.handleSources).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler is the fully wrapped router.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("listen %s: %w", s.http.Addr, err)
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
