package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ridham19/GYM-flow/internal/api"
	"github.com/Ridham19/GYM-flow/internal/auth"
	"github.com/Ridham19/GYM-flow/internal/config"
	"github.com/Ridham19/GYM-flow/internal/lock"
	"github.com/Ridham19/GYM-flow/internal/reservation"
	"github.com/Ridham19/GYM-flow/internal/resource"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Port:           "0",
		JWTSecret:      testSecret,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}

	catalog := resource.DefaultCatalog()
	policy, err := reservation.NewPolicyHolder(reservation.Policy{
		OpenHour: 6, CloseHour: 22, MinDurationMinutes: 15, MaxDurationMinutes: 120,
	})
	require.NoError(t, err)

	svc := reservation.NewService(reservation.NewMemoryStore(), catalog, policy, lock.NewKeyed(),
		reservation.WithAuthorizer(reservation.AuthorizerFunc(func(ctx context.Context, requesterID string, r *reservation.Reservation) bool {
			return r.RequesterID == requesterID || auth.IsAdmin(ctx)
		})),
	)

	return New(cfg, Deps{
		Reservations: reservation.NewHandler(svc, nil),
		Resources:    resource.NewHandler(catalog),
	})
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(userID, userID+"@example.com", userID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, s *Server, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func slot(hour int) (time.Time, time.Time) {
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1).Add(time.Duration(hour) * time.Hour)
	return start, start.Add(time.Hour)
}

func TestReservationLifecycle(t *testing.T) {
	s := newTestServer(t)
	member := token(t, "member-1", auth.RoleMember)
	other := token(t, "member-2", auth.RoleMember)
	start, end := slot(10)

	w := do(t, s, http.MethodPost, "/reservations", member, gin.H{
		"resource_ids": []string{"treadmill-01"},
		"start":        start,
		"end":          end,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created reservation.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "member-1", created.RequesterID)
	assert.Equal(t, reservation.StatusConfirmed, created.Status)

	w = do(t, s, http.MethodPost, "/reservations", other, gin.H{
		"resource_ids": []string{"treadmill-01"},
		"start":        start.Add(30 * time.Minute),
		"end":          end.Add(30 * time.Minute),
	})
	require.Equal(t, http.StatusConflict, w.Code)
	var conflict api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflict))
	assert.Equal(t, "ResourceConflict", conflict.Kind)
	assert.Equal(t, created.ID, conflict.ReservationID)

	w = do(t, s, http.MethodGet, "/resources/treadmill-01/reservations?from="+start.Format(time.RFC3339), other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []reservation.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	w = do(t, s, http.MethodPost, "/reservations/"+created.ID+"/cancel", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, s, http.MethodPost, "/reservations/"+created.ID+"/cancel", member, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, s, http.MethodPost, "/reservations/"+created.ID+"/cancel", member, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/reservations", member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []reservation.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, reservation.StatusCancelled, mine[0].Status)
}

func TestCreateReservationValidation(t *testing.T) {
	s := newTestServer(t)
	member := token(t, "member-1", auth.RoleMember)
	start, _ := slot(10)

	tests := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{"missing resources", gin.H{"start": start, "end": start.Add(time.Hour)}, http.StatusBadRequest, ""},
		{"too long", gin.H{"resource_ids": []string{"treadmill-01"}, "start": start, "end": start.Add(150 * time.Minute)}, http.StatusUnprocessableEntity, "DurationOutOfBounds"},
		{"reversed", gin.H{"resource_ids": []string{"treadmill-01"}, "start": start, "end": start.Add(-time.Hour)}, http.StatusUnprocessableEntity, "InvalidTimeRange"},
		{"trainer off hours", gin.H{"resource_ids": []string{"trainer-alex"}, "start": start.Add(-2 * time.Hour), "end": start.Add(-time.Hour)}, http.StatusUnprocessableEntity, "OutsideResourceHours"},
		{"unknown resource", gin.H{"resource_ids": []string{"rowing-99"}, "start": start, "end": start.Add(time.Hour)}, http.StatusNotFound, "NotFound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/reservations", member, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
		})
	}
}

func TestAdminCanCancelAndSeeUsage(t *testing.T) {
	s := newTestServer(t)
	member := token(t, "member-1", auth.RoleMember)
	admin := token(t, "admin-1", auth.RoleAdmin)
	start, end := slot(12)

	w := do(t, s, http.MethodPost, "/reservations", member, gin.H{
		"resource_ids": []string{"leg-press-max", "trainer-alex"},
		"start":        start,
		"end":          end,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, s, http.MethodGet, "/admin/reservations/usage?from="+start.Format(time.RFC3339)+"&to="+end.Format(time.RFC3339), member, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, s, http.MethodGet, "/admin/reservations/usage?from="+start.Format(time.RFC3339)+"&to="+end.Format(time.RFC3339), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage []reservation.Usage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &usage))
	assert.Equal(t, []reservation.Usage{
		{ResourceID: "leg-press-max", Reservations: 1, BookedMinutes: 60},
		{ResourceID: "trainer-alex", Reservations: 1, BookedMinutes: 60},
	}, usage)

	var created reservation.Reservation
	w = do(t, s, http.MethodGet, "/reservations", member, nil)
	var mine []reservation.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	created = mine[0]

	w = do(t, s, http.MethodPost, "/reservations/"+created.ID+"/cancel", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/resources", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, http.MethodGet, "/resources", token(t, "member-1", auth.RoleMember), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/ok", Health(nil))
	router.GET("/down", Health(func(context.Context) error { return errors.New("db down") }))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
