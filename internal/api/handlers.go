package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roomreserve/internal/export"
	"roomreserve/internal/models"
	"roomreserve/internal/service"
)

const maxBodyBytes = 1 << 16

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.deps.Rooms.ListRooms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Rooms.Settings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.deps.Rooms.TimeSlots(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	date := s.deps.Clock.Now().In(s.deps.Location)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		d, err := time.ParseInLocation(models.DateLayout, raw, s.deps.Location)
		if err != nil {
			s.writeServiceError(w, r, &service.ValidationError{
				Fields: service.FieldErrors{"date": "date must be YYYY-MM-DD"},
			})
			return
		}
		date = d
	}

	week, err := s.deps.Calendar.Week(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req service.BookingRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	conf, err := s.deps.Bookings.CreateBooking(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}

func (s *HTTPServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	found, err := s.deps.Bookings.FindBooking(r.Context(), q.Get("name"), q.Get("phone"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if found == nil {
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found":     true,
		"booking":   found.Booking,
		"isPast":    found.IsPast,
		"canCancel": found.CanCancel,
	})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Bookings.GetBooking(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	b.PhoneNumber = ""
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := s.deps.Bookings.CancelBooking(r.Context(), r.PathValue("id"), confirmed); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	if err := s.deps.Admin.Login(body.Password); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := s.deps.Admin.Period(q.Get("from"), q.Get("to"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	dash, err := s.deps.Admin.Dashboard(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := s.deps.Admin.Period(q.Get("from"), q.Get("to"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	f, err := s.deps.Admin.Export(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(from, to)+`"`)
	if err := f.Write(w); err != nil {
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("export write failed")
	}
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Storage != nil {
		if err := s.deps.Storage.Ping(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
