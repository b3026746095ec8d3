package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"roomreserve/internal/clock"
	"roomreserve/internal/config"
	"roomreserve/internal/database"
	"roomreserve/internal/models"
	"roomreserve/internal/repository"
	"roomreserve/internal/service"
)

const testAdminPassword = "letmein"

var testNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db  *database.DB
	srv *HTTPServer
	ts  *httptest.Server
}

func newTestEnv(t *testing.T, rl config.APIRateLimitConfig) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	db, err := database.NewDB(database.DriverSQLite, ":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SyncRooms(ctx, []models.Room{
		{ID: "room-a", Name: "Room A", Capacity: 10, Order: 1},
		{ID: "room-b", Name: "Room B", Capacity: 6, Order: 2},
	}))
	_, err = db.EnsureSettings(ctx, service.DefaultSettings())
	require.NoError(t, err)

	clk := clock.NewFixed(testNow)
	state := repository.NewMemoryStateRepository()
	deps := Deps{
		Bookings: service.NewBookingService(db, state, nil, clk, time.UTC, 10*time.Second, &logger),
		Rooms:    service.NewRoomService(db, &logger),
		Calendar: service.NewCalendarService(db, nil, 0, &logger),
		Admin:    service.NewAdminService(db, testAdminPassword, clk, time.UTC, &logger),
		Storage:  db,
		Clock:    clk,
		Location: time.UTC,
	}

	cfg := config.APIConfig{HTTP: config.APIHTTPConfig{Enabled: true}, RateLimit: rl}
	srv := NewHTTPServer(cfg, deps, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{db: db, srv: srv, ts: ts}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

const validBooking = `{
	"roomId": "room-a",
	"date": "2024-05-16",
	"startTime": "10:00",
	"endTime": "11:00",
	"representativeName": "Sato",
	"phoneNumber": "090-1234-5678",
	"numberOfPeople": 4
}`

func TestRoomsSettingsSlots(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})

	resp := env.do(t, http.MethodGet, "/api/v1/rooms", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rooms struct {
		Rooms []models.Room `json:"rooms"`
	}
	decode(t, resp, &rooms)
	require.Len(t, rooms.Rooms, 2)
	assert.Equal(t, "room-a", rooms.Rooms[0].ID)

	resp = env.do(t, http.MethodGet, "/api/v1/settings", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st models.Settings
	decode(t, resp, &st)
	assert.Equal(t, "10:00", st.BusinessStartTime)
	assert.Equal(t, 60, st.MaxBookingDays)

	resp = env.do(t, http.MethodGet, "/api/v1/slots", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var slots struct {
		Slots []string `json:"slots"`
	}
	decode(t, resp, &slots)
	assert.Len(t, slots.Slots, 36)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestBookingLifecycle(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})

	resp := env.do(t, http.MethodPost, "/api/v1/bookings", validBooking, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var conf service.BookingConfirmation
	decode(t, resp, &conf)
	require.NotEmpty(t, conf.ID)
	assert.Equal(t, "Room A", conf.Booking.RoomName)

	resp = env.do(t, http.MethodGet, "/api/v1/calendar?date=2024-05-19", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var week service.CalendarWeek
	decode(t, resp, &week)
	assert.Equal(t, "2024-05-13", week.Dates[0])
	require.Len(t, week.Bookings, 1)
	assert.Empty(t, week.Bookings[0].PhoneNumber)
	assert.Equal(t, conf.ID, week.Cells[service.CellKey("room-a", "2024-05-16", "10:45")].BookingID)

	resp = env.do(t, http.MethodGet, "/api/v1/bookings/lookup?name=Sato&phone=090-1234-5678", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found struct {
		Found     bool           `json:"found"`
		Booking   models.Booking `json:"booking"`
		IsPast    bool           `json:"isPast"`
		CanCancel bool           `json:"canCancel"`
	}
	decode(t, resp, &found)
	assert.True(t, found.Found)
	assert.Equal(t, conf.ID, found.Booking.ID)
	assert.False(t, found.IsPast)
	assert.True(t, found.CanCancel)

	resp = env.do(t, http.MethodDelete, "/api/v1/bookings/"+conf.ID, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/v1/bookings/"+conf.ID+"?confirm=true", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/bookings/lookup?name=Sato&phone=090-1234-5678", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var none map[string]any
	decode(t, resp, &none)
	assert.Equal(t, map[string]any{"found": false}, none)

	resp = env.do(t, http.MethodGet, "/api/v1/bookings/"+conf.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// повторная отмена не ошибка
	resp = env.do(t, http.MethodDelete, "/api/v1/bookings/"+conf.ID+"?confirm=true", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCreateBookingErrors(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})

	t.Run("InvalidJSON", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/bookings", "{", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Validation", func(t *testing.T) {
		body := strings.Replace(validBooking, `"090-1234-5678"`, `"090 1234"`, 1)
		body = strings.Replace(body, `"numberOfPeople": 4`, `"numberOfPeople": 0`, 1)
		resp := env.do(t, http.MethodPost, "/api/v1/bookings", body, nil)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var eb errorBody
		decode(t, resp, &eb)
		assert.Equal(t, "validation_failed", eb.Code)
		assert.Len(t, eb.Fields, 2)
		assert.Contains(t, eb.Fields, "phoneNumber")
		assert.Contains(t, eb.Fields, "numberOfPeople")
	})

	t.Run("UnknownRoom", func(t *testing.T) {
		body := strings.Replace(validBooking, `"room-a"`, `"room-z"`, 1)
		resp := env.do(t, http.MethodPost, "/api/v1/bookings", body, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("DuplicateThenConflict", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/bookings", validBooking, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		// same submission inside the guard window is caught by the conflict pre-check
		resp = env.do(t, http.MethodPost, "/api/v1/bookings", validBooking, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		overlap := strings.Replace(validBooking, `"10:00"`, `"10:30"`, 1)
		overlap = strings.Replace(overlap, `"11:00"`, `"11:30"`, 1)
		overlap = strings.Replace(overlap, `"090-1234-5678"`, `"03-0000-0000"`, 1)
		resp = env.do(t, http.MethodPost, "/api/v1/bookings", overlap, nil)
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		var eb errorBody
		decode(t, resp, &eb)
		assert.Equal(t, "conflict", eb.Code)
	})

	t.Run("CalendarBadDate", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/v1/calendar?date=19-05-2024", "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("LookupRequiresBothFields", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/v1/bookings/lookup?name=Sato", "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestStorageUnavailable(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	require.NoError(t, env.db.Close())

	resp := env.do(t, http.MethodGet, "/api/v1/rooms", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var eb errorBody
	decode(t, resp, &eb)
	assert.Equal(t, "storage_unavailable", eb.Code)
	assert.Equal(t, service.ErrStorageUnavailable.Error(), eb.Error)

	resp = env.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	resp := env.do(t, http.MethodPost, "/api/v1/bookings", validBooking, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/admin/login", `{"password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/admin/login", `{"password":"`+testAdminPassword+`"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ok map[string]bool
	decode(t, resp, &ok)
	assert.True(t, ok["ok"])

	resp = env.do(t, http.MethodGet, "/api/v1/admin/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	admin := map[string]string{adminPasswordHeader: testAdminPassword}
	resp = env.do(t, http.MethodGet, "/api/v1/admin/dashboard", "", admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dash service.Dashboard
	decode(t, resp, &dash)
	assert.Equal(t, "2024-05-15", dash.From)
	assert.Equal(t, "2024-05-21", dash.To)
	assert.Equal(t, 1, dash.Total)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/dashboard?from=2024-05-20&to=2024-05-01", "", admin)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/export?from=2024-05-13&to=2024-05-19", "", admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_2024-05-13_to_2024-05-19.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{RPS: 0.001, Burst: 1})

	resp := env.do(t, http.MethodGet, "/api/v1/rooms", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/rooms", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	resp := env.do(t, http.MethodGet, "/healthz", "", map[string]string{requestIDHeader: "req-42"})
	assert.Equal(t, "req-42", resp.Header.Get(requestIDHeader))
}
