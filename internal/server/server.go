package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"staking-ledger-go/internal/api"
	"staking-ledger-go/internal/metrics"
	"staking-ledger-go/internal/models"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes the ledger workflows over HTTP
type Server struct {
	ledger *api.LedgerService
	cfg    models.ServerConfig
	auth   models.AuthConfig
}

func New(ledger *api.LedgerService, cfg models.ServerConfig, auth models.AuthConfig) *Server {
	return &Server{ledger: ledger, cfg: cfg, auth: auth}
}

// Handler builds the routed handler with CORS, compression and panic recovery
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(observe)

	router.Path("/health").
		Methods(http.MethodGet).
		Name("health").
		HandlerFunc(WrapHandlerFunc(s.handleHealth))
	router.Path("/metrics").
		Methods(http.MethodGet).
		Name("metrics").
		Handler(metrics.Handler())

	// more specific prefixes first
	s.mountAdmin(router, "/v1/admin")
	s.mountJobs(router, "/v1/jobs")
	s.mountUser(router, "/v1")

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	var handler http.Handler = handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"authorization", "content-type"}),
	)(handler)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(zap.L())),
		handlers.PrintRecoveryStack(true),
	)(handler)
	return handler
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for at most ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	zap.L().Info("Shutting down HTTP server", zap.Duration("timeout", timeout))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	if err := s.ledger.HealthCheck(r.Context()); err != nil {
		return HTTPError(err, http.StatusServiceUnavailable, "dependency_unavailable")
	}
	return WriteJSON(w, M{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.statusCode = code
	s.ResponseWriter.WriteHeader(code)
}

// observe records request metrics labelled by route template and logs one
// line per request.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		label := strings.ReplaceAll(strings.TrimLeft(path, "/"), "/", "_")
		metrics.ObserveHTTPRequest(label, r.Method, rec.statusCode, elapsed)

		zap.L().Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.statusCode),
			zap.Duration("duration", elapsed))
	})
}
