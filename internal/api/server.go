// Package api serves the shopping assistant's HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/logger"
	"shopping-assistant/internal/common/metrics"
	"shopping-assistant/internal/models"
	roomrecommendation "shopping-assistant/internal/workers/shopping-assistant/room-recommendation"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RequestIDHeader = "X-Request-ID"
	maxBodyBytes    = 25 << 20
)

type Pipeline interface {
	Execute(ctx context.Context, req *roomrecommendation.Request) (*roomrecommendation.Output, error)
}

type Catalog interface {
	Search(ctx context.Context, query string, size int) ([]models.Product, error)
	ListIDs(ctx context.Context) ([]string, error)
}

type Carts interface {
	AddItem(ctx context.Context, userID string, item models.CartItem) error
	ProductIDs(ctx context.Context, userID string) ([]string, error)
}

type Recommendations interface {
	ListRecommendations(ctx context.Context, userID string, productIDs []string) ([]string, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	pipeline        Pipeline
	catalog         Catalog
	carts           Carts
	recommendations Recommendations
	checks          map[string]ReadinessCheck
	logger          logger.Logger
}

func NewServer(pipeline Pipeline, catalog Catalog, carts Carts, recs Recommendations, checks map[string]ReadinessCheck, log logger.Logger) *Server {
	return &Server{
		pipeline:        pipeline,
		catalog:         catalog,
		carts:           carts,
		recommendations: recs,
		checks:          checks,
		logger:          log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "POST /{$}", s.handleConversation)
	s.route(mux, "POST /conversation", s.handleConversation)

	s.route(mux, "POST /search", s.handleSearch)
	s.route(mux, "POST /recommend", s.handleRecommend)
	s.route(mux, "POST /cart/add", s.handleCartAdd)
	s.route(mux, "GET /cart/view", s.handleCartView)
	s.route(mux, "GET /personalize", s.handleCartView)

	s.route(mux, "GET /faq", s.handleFAQ)
	s.route(mux, "GET /order-status", s.handleOrderStatus)
	s.route(mux, "GET /track-order", s.handleTrackOrder)
	s.route(mux, "GET /system-status", s.handleSystemStatus)
	s.route(mux, "GET /troubleshoot", s.handleTroubleshoot)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withRequestID(mux)
}

// ServeOptions bounds the listener. Zero values fall back to defaults.
type ServeOptions struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests for at most ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, addr string, opts ServeOptions) error {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 90 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("HTTP server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}

// route registers h under pattern with per-route metrics and panic recovery.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()

		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("handler panic", map[string]interface{}{
					"route":     pattern,
					"panic":     p,
					"requestId": RequestIDFrom(r.Context()),
				})
				if !rec.wrote {
					writeError(rec, apperrors.Normalize(errPanic))
				}
			}
			metrics.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
			s.logger.Debug("request served", map[string]interface{}{
				"route":      pattern,
				"status":     rec.status,
				"durationMs": time.Since(started).Milliseconds(),
				"requestId":  RequestIDFrom(r.Context()),
			})
		}()

		h(rec, r)
	})
}

type requestIDKey struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestIDFrom returns the request ID stored by the server, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{}
	ready := true
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status[name] = "unavailable"
			ready = false
			s.logger.Warn("readiness check failed", map[string]interface{}{
				"dependency": name,
				"error":      err.Error(),
			})
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{"ready": ready, "dependencies": status})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError never exposes cause detail; see errors.PublicMessage.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.HTTPStatus(err), errorBody{
		Error: apperrors.PublicMessage(err),
		Code:  string(apperrors.CodeOf(err)),
	})
}
