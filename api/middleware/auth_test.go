package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/auth"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dashboardConfig() config.DashboardConfig {
	return config.DashboardConfig{
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		SessionIssuer: "mapaprofeticodoamor",
	}
}

func protected(t *testing.T, cfg config.DashboardConfig, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	var reached bool
	handler := DashboardAuth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		assert.True(t, reached)
	} else {
		assert.False(t, reached)
	}
	return rec
}

func TestDashboardAuthMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/funnel", nil)
	rec := protected(t, dashboardConfig(), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardAuthMalformedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/funnel", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := protected(t, dashboardConfig(), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardAuthInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/funnel", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := protected(t, dashboardConfig(), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardAuthValidToken(t *testing.T) {
	cfg := dashboardConfig()
	token, err := auth.MintDashboardToken(cfg, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/funnel", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := protected(t, cfg, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
