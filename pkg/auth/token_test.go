package auth

import (
	"testing"
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.DashboardConfig {
	return config.DashboardConfig{
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		SessionIssuer: "mapaprofeticodoamor",
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testConfig()
	token, err := MintDashboardToken(cfg, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseDashboardToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", claims.Scope)
	assert.Equal(t, cfg.SessionIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	token, err := MintDashboardToken(cfg, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = ParseDashboardToken(cfg, token)
	assert.Error(t, err)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	token, err := MintDashboardToken(cfg, time.Now())
	require.NoError(t, err)

	other := cfg
	other.JWTSecret = "different"
	_, err = ParseDashboardToken(other, token)
	assert.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testConfig()
	token, err := MintDashboardToken(cfg, time.Now())
	require.NoError(t, err)

	other := cfg
	other.SessionIssuer = "someone-else"
	_, err = ParseDashboardToken(other, token)
	assert.Error(t, err)
}

func TestMintRequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = ""
	_, err := MintDashboardToken(cfg, time.Now())
	assert.Error(t, err)
}
