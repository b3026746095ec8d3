package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"roomreserve/internal/clock"
	"roomreserve/internal/config"
	"roomreserve/internal/metrics"
	"roomreserve/internal/service"
)

const requestIDHeader = "X-Request-ID"

// Pinger reports storage readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Bookings *service.BookingService
	Rooms    *service.RoomService
	Calendar *service.CalendarService
	Admin    *service.AdminService
	Storage  Pinger
	Clock    clock.Clock
	Location *time.Location
}

// HTTPServer exposes the booking API as JSON over HTTP.
type HTTPServer struct {
	cfg     config.APIConfig
	deps    Deps
	server  *http.Server
	limiter *rateLimiter
	log     zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem(deps.Location)
	}

	srv := &HTTPServer{
		cfg:     cfg,
		deps:    deps,
		limiter: newRateLimiter(cfg.RateLimit),
		log:     zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	srv.route(mux, "GET /api/v1/rooms", srv.handleRooms)
	srv.route(mux, "GET /api/v1/settings", srv.handleSettings)
	srv.route(mux, "GET /api/v1/slots", srv.handleSlots)
	srv.route(mux, "GET /api/v1/calendar", srv.handleCalendar)
	srv.route(mux, "POST /api/v1/bookings", srv.handleCreateBooking)
	srv.route(mux, "GET /api/v1/bookings/lookup", srv.handleLookup)
	srv.route(mux, "GET /api/v1/bookings/{id}", srv.handleGetBooking)
	srv.route(mux, "DELETE /api/v1/bookings/{id}", srv.handleCancelBooking)
	srv.route(mux, "POST /api/v1/admin/login", srv.handleAdminLogin)
	srv.route(mux, "GET /api/v1/admin/dashboard", srv.requireAdmin(srv.handleAdminDashboard))
	srv.route(mux, "GET /api/v1/admin/export", srv.requireAdmin(srv.handleAdminExport))

	// health endpoints are not rate limited
	mux.Handle("GET /healthz", instrument("GET /healthz", http.HandlerFunc(srv.handleHealthz)))
	mux.Handle("GET /readyz", instrument("GET /readyz", http.HandlerFunc(srv.handleReadyz)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           requestIDMiddleware(srv.loggingMiddleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, instrument(pattern, s.rateLimit(h)))
}

// Handler returns the root handler with all middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type ctxKey int

const requestIDKey ctxKey = iota

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.log.Info().
			Str("request_id", requestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func instrument(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.ObserveHTTP(endpoint, recorder.status, time.Since(start))
	})
}

func (s *HTTPServer) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

type errorBody struct {
	Error  string              `json:"error"`
	Code   string              `json:"code,omitempty"`
	Fields service.FieldErrors `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorBody{Error: message, Code: code})
}

// writeServiceError maps service errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:  "validation failed",
			Code:   "validation_failed",
			Fields: verr.Fields,
		})
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrBookingPast):
		writeError(w, http.StatusConflict, "booking_past", err.Error())
	case errors.Is(err, service.ErrDuplicateSubmit):
		writeError(w, http.StatusTooManyRequests, "duplicate_submit", err.Error())
	case errors.Is(err, service.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "room_not_found", err.Error())
	case errors.Is(err, service.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, service.ErrConfirmationRequired):
		writeError(w, http.StatusBadRequest, "confirmation_required", err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("storage failure")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", service.ErrStorageUnavailable.Error())
	default:
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
