package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/coinexchange/internal/config"
	"anoa.com/coinexchange/internal/pricing"
	"anoa.com/coinexchange/internal/scheduler"
	"anoa.com/coinexchange/internal/testutil"
	"anoa.com/coinexchange/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "server-test-secret"

func newTestServer(t *testing.T) (*Server, *scheduler.Scheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      secret,
		AdminIDs:       map[int64]struct{}{1: {}},
		PeriodLocation: time.UTC,
	}
	sched := scheduler.NewScheduler(time.UTC)

	srv, err := NewServer(context.Background(), cfg, Deps{
		DB:        testutil.NewDB(t),
		Storage:   storage.NewMemoryStorage(),
		Prices:    pricing.Default(),
		Scheduler: sched,
	})
	require.NoError(t, err)
	return srv, sched
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func do(srv *Server, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthAndScheduler(t *testing.T) {
	srv, sched := newTestServer(t)

	w := do(srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"close-periods"}, sched.Jobs())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/wallet", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFirstRequestCreatesWalletWithWelcomeBalance(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/wallet", bearer(t, "42"), "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UserID  int64 `json:"user_id"`
		Balance int64 `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(42), body.UserID)
	assert.Equal(t, int64(10), body.Balance)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/admin/stats", bearer(t, "42"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(srv, http.MethodGet, "/api/admin/stats", bearer(t, "1"), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPackagesArePublic(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/packages", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLeaderboardIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/leaderboard", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"period":"weekly:`)
}

func TestSupportTicketAndBroadcastRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	user, admin := bearer(t, "42"), bearer(t, "1")

	w := do(srv, http.MethodPost, "/api/tickets", user, `{"message":"my payout is missing"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(srv, http.MethodGet, "/api/admin/tickets", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "my payout is missing")

	w = do(srv, http.MethodPost, "/api/admin/broadcast", user, `{"message":"hi"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(srv, http.MethodPost, "/api/admin/broadcast", admin, `{"message":"maintenance tonight"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recipients":2}`, w.Body.String())
}
