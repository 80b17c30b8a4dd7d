// Package api provides the JSON HTTP API of teamkasse.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"fjacquet/teamkasse/internal/coordinator"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/parsererror"
	"fjacquet/teamkasse/internal/service"
	"fjacquet/teamkasse/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxUploadBytes caps import request bodies.
const maxUploadBytes = 32 << 20

// Server is the teamkasse HTTP API server.
type Server struct {
	svc            *service.Service
	logger         logging.Logger
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(svc *service.Service, logger logging.Logger) *Server {
	return &Server{svc: svc, logger: logging.OrDefault(logger)}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/members", func(r chi.Router) {
			r.Get("/", s.handleListMembers)
			r.Post("/", s.handleCreateMember)
			r.Route("/{memberID}", func(r chi.Router) {
				r.Get("/", s.handleGetMember)
				r.Delete("/", s.handleDeleteMember)
				r.Get("/balance", s.handleBalance)
				r.Post("/reconcile", s.handleReconcile)
				r.Get("/ledger", s.handleLedger)
				r.Route("/{kind}", func(r chi.Router) {
					r.Get("/", s.handleListEntries)
					r.Post("/", s.handleCreateEntry)
					r.Get("/{entryID}", s.handleGetEntry)
					r.Delete("/{entryID}", s.handleDeleteEntry)
					r.Post("/{entryID}/pay", s.handleApplyPayment)
					r.Put("/{entryID}/paid", s.handleSetPaid)
				})
			})
		})
		r.Post("/reconcile", s.handleReconcileAll)
		r.Route("/dues", func(r chi.Router) {
			r.Get("/", s.handleListDues)
			r.Post("/", s.handleCreateDue)
			r.Post("/{dueID}/assign", s.handleAssignDue)
			r.Post("/{dueID}/archive", s.handleArchiveDue)
		})
		r.Post("/import/{schema}", s.handleImport)
		r.Post("/suggest", s.handleSuggest)
	})

	return r
}

// logRequests logs every request once it is served.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served",
			logging.F("method", r.Method),
			logging.F("path", r.URL.Path),
			logging.F(logging.FieldStatus, ww.Status()),
			logging.F(logging.FieldDuration, time.Since(start).Milliseconds()),
			logging.F("request_id", middleware.GetReqID(r.Context())))
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"status":  status,
		},
	})
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed",
			logging.F("method", r.Method), logging.F("path", r.URL.Path))
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var formatErr *parsererror.InvalidFormatError
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrEntryExists),
		errors.Is(err, service.ErrMemberExists),
		errors.Is(err, service.ErrDueExists),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case coordinator.IsRejected(err),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrDueArchived),
		errors.As(err, &formatErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func jsonDecoder(body io.Reader) *json.Decoder {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := jsonDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
