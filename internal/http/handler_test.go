package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-dashboard/internal/config"
	"parking-dashboard/internal/domain/parking"
	"parking-dashboard/internal/metrics"
	"parking-dashboard/internal/parkingapi"
	"parking-dashboard/internal/service"
)

const testSecret = "test-secret-key-for-jwt"

type stubSource struct {
	events    []parking.VehicleEvent
	err       error
	lastToken string
}

func (s *stubSource) TodayEvents(_ context.Context, sess parkingapi.Session) ([]parking.VehicleEvent, error) {
	s.lastToken = sess.Token
	return s.events, s.err
}

func (s *stubSource) WeeklyRevenue(_ context.Context, _ parkingapi.Session) ([]parking.SeriesPoint, error) {
	return []parking.SeriesPoint{{Label: "T2", Value: 150000}}, s.err
}

func (s *stubSource) WeeklyTraffic(_ context.Context, _ parkingapi.Session) (parking.WeeklyTraffic, error) {
	return parking.WeeklyTraffic{}, s.err
}

type response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func mustTimestamp(t *testing.T, s string) parking.Timestamp {
	t.Helper()
	ts, ok := parking.ParseTimestamp(s)
	require.True(t, ok)
	return ts
}

func scenarioEvents(t *testing.T) []parking.VehicleEvent {
	return []parking.VehicleEvent{
		{LicensePlate: "A", VehicleType: parking.VehicleMotorbike, TicketType: parking.TicketDaily, Timestamp: mustTimestamp(t, "2026-10-18T08:00:00Z"), EventType: parking.EventEntry},
		{LicensePlate: "B", VehicleType: parking.VehicleScooter, TicketType: parking.TicketMonthly, Timestamp: mustTimestamp(t, "2026-10-18T08:05:00Z"), EventType: parking.EventEntry},
		{LicensePlate: "A", VehicleType: parking.VehicleMotorbike, TicketType: parking.TicketDaily, Timestamp: mustTimestamp(t, "2026-10-18T09:00:00Z"), EventType: parking.EventExit},
	}
}

func newTestRouter(t *testing.T, src *stubSource, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:  config.AppConfig{Env: "test"},
		HTTP: config.HTTPConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Auth: config.AuthConfig{JWTSecret: secret, RoleClaim: "scope", AdminRole: "ADMIN"},
	}
	m := metrics.New()
	svc := service.NewDashboardService(src, nil, m, service.Options{}, zerolog.Nop())
	h := NewHandler(svc, cfg, zerolog.Nop())
	return NewRouter(cfg, h, m.Handler(), zerolog.Nop())
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func staffToken(t *testing.T) string {
	return signToken(t, testSecret, jwt.MapClaims{
		"sub":   "staff01",
		"scope": "STAFF",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
}

func adminToken(t *testing.T) string {
	return signToken(t, testSecret, jwt.MapClaims{
		"sub":   "admin",
		"scope": "ADMIN",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
}

func doRequest(t *testing.T, r http.Handler, method, path, token string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body response
	if w.Header().Get("Content-Type") != "" && w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, &stubSource{}, testSecret)

	w, _ := doRequest(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubSource{events: scenarioEvents(t)}, testSecret)

	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/dashboard", staffToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `parking_vehicles_present{vehicle_type="Scooter"} 1`)
}

func TestGetDashboard(t *testing.T) {
	src := &stubSource{events: scenarioEvents(t)}
	r := newTestRouter(t, src, testSecret)
	token := staffToken(t)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/dashboard", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeSuccess, body.Code)
	assert.Equal(t, token, src.lastToken)

	var d parking.Dashboard
	require.NoError(t, json.Unmarshal(body.Result, &d))
	assert.Equal(t, parking.VehicleStats{Scooter: 1, Total: 1}, d.Occupancy)
	assert.Equal(t, 2, d.TotalEntries)
	assert.Equal(t, 1, d.TotalExits)
}

func TestGetDashboard_UpstreamFailureReturnsZeroStats(t *testing.T) {
	src := &stubSource{err: &parkingapi.APIError{Code: 1009, Message: "lot not found"}}
	r := newTestRouter(t, src, testSecret)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/dashboard", staffToken(t))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 1009, body.Code)
	assert.Equal(t, "lot not found", body.Message)

	var d parking.Dashboard
	require.NoError(t, json.Unmarshal(body.Result, &d))
	assert.Equal(t, parking.VehicleStats{}, d.Occupancy)
}

func TestGetDashboard_UpstreamUnauthorized(t *testing.T) {
	r := newTestRouter(t, &stubSource{err: parkingapi.ErrUnauthorized}, testSecret)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/dashboard", staffToken(t))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeUnauthenticated, body.Code)
}

func TestAuth_MissingToken(t *testing.T) {
	r := newTestRouter(t, &stubSource{}, testSecret)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeUnauthenticated, body.Code)
}

func TestAuth_BadSignature(t *testing.T) {
	r := newTestRouter(t, &stubSource{}, testSecret)
	forged := signToken(t, "other-secret", jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/dashboard", forged)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ExpiredTokenWithoutSecret(t *testing.T) {
	r := newTestRouter(t, &stubSource{}, "")
	expired := signToken(t, "upstream-secret", jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})

	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/dashboard", expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_UnverifiedTokenWithoutSecret(t *testing.T) {
	src := &stubSource{events: scenarioEvents(t)}
	r := newTestRouter(t, src, "")
	token := signToken(t, "upstream-secret", jwt.MapClaims{"scope": "STAFF"})

	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/dashboard", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetTraffic(t *testing.T) {
	r := newTestRouter(t, &stubSource{events: scenarioEvents(t)}, testSecret)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/dashboard/traffic?vehicle_type=Motorbike&direction=EXIT", staffToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	var result parking.DirectionCount
	require.NoError(t, json.Unmarshal(body.Result, &result))
	assert.Equal(t, 1, result.Count)

	w, body = doRequest(t, r, http.MethodGet, "/api/v1/dashboard/traffic?vehicle_type=motorbike&direction=exit", staffToken(t))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(body.Result, &result))
	assert.Equal(t, parking.VehicleMotorbike, result.VehicleType)
	assert.Equal(t, parking.EventExit, result.Direction)
	assert.Equal(t, 1, result.Count)
}

func TestGetTraffic_InvalidInput(t *testing.T) {
	r := newTestRouter(t, &stubSource{events: scenarioEvents(t)}, testSecret)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/dashboard/traffic?vehicle_type=Truck&direction=EXIT", staffToken(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidInput, body.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/dashboard/traffic", staffToken(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListParked(t *testing.T) {
	r := newTestRouter(t, &stubSource{events: scenarioEvents(t)}, testSecret)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/parked?page=1&size=5", staffToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Items []parking.ParkedVehicle `json:"items"`
		Meta  struct {
			TotalItems int `json:"totalItems"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(body.Result, &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, "B", result.Items[0].LicensePlate)
	assert.Equal(t, 1, result.Meta.TotalItems)
}

func TestListParked_PageBeyondEnd(t *testing.T) {
	r := newTestRouter(t, &stubSource{events: scenarioEvents(t)}, testSecret)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/parked?page=9223372036854775807", staffToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Items []parking.ParkedVehicle `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body.Result, &result))
	assert.Empty(t, result.Items)
}

func TestRefresh(t *testing.T) {
	r := newTestRouter(t, &stubSource{}, testSecret)

	w, body := doRequest(t, r, http.MethodPost, "/api/v1/dashboard/refresh", staffToken(t))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeSuccess, body.Code)
}

func TestAdminStatistics(t *testing.T) {
	r := newTestRouter(t, &stubSource{}, testSecret)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/admin/statistics", staffToken(t))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, CodeForbidden, body.Code)

	w, body = doRequest(t, r, http.MethodGet, "/api/v1/admin/statistics", adminToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	var stats parking.Statistics
	require.NoError(t, json.Unmarshal(body.Result, &stats))
	assert.Equal(t, "VND", stats.Revenue.Currency)
	assert.Len(t, stats.Revenue.Points, 1)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, &stubSource{}, testSecret)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/dashboard", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := bearerToken(c.header)
		assert.Equal(t, c.ok, ok, "bearerToken(%q)", c.header)
		assert.Equal(t, c.want, got, "bearerToken(%q)", c.header)
	}
}

func TestRolesFromClaims(t *testing.T) {
	assert.Equal(t, []string{"STAFF", "ADMIN"}, rolesFromClaims(jwt.MapClaims{"scope": "STAFF ADMIN"}, "scope"))
	assert.Equal(t, []string{"ADMIN"}, rolesFromClaims(jwt.MapClaims{"roles": []interface{}{"ADMIN", 3}}, "roles"))
	assert.Nil(t, rolesFromClaims(jwt.MapClaims{"scope": 7}, "scope"))
	assert.Nil(t, rolesFromClaims(jwt.MapClaims{}, ""))
}
