package validators

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackBody struct {
	Value    float64 `json:"value" validate:"min=0"`
	Currency string  `json:"currency" validate:"omitempty,len=3"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest("POST", "/track", strings.NewReader(`{"value":27,"currency":"BRL"}`))
	var body trackBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, 27.0, body.Value)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/track", strings.NewReader(`{"value":1,"extra":true}`))
	var body trackBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDecodeJSONBodyValidationDetails(t *testing.T) {
	req := httptest.NewRequest("POST", "/track", strings.NewReader(`{"value":-1}`))
	var body trackBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "value")
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics?days=30", nil)
	value, err := ParseQueryInt(req, "days", 7, 1, 90)
	require.NoError(t, err)
	assert.Equal(t, 30, value)

	req = httptest.NewRequest("GET", "/metrics", nil)
	value, err = ParseQueryInt(req, "days", 7, 1, 90)
	require.NoError(t, err)
	assert.Equal(t, 7, value)

	req = httptest.NewRequest("GET", "/metrics?days=365", nil)
	_, err = ParseQueryInt(req, "days", 7, 1, 90)
	assert.Error(t, err)
}

func TestParseQueryTime(t *testing.T) {
	req := httptest.NewRequest("GET", "/events?start=2026-08-01", nil)
	parsed, err := ParseQueryTime(req, "start")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), parsed)

	req = httptest.NewRequest("GET", "/events?start=2026-08-01T10:30:00Z", nil)
	parsed, err = ParseQueryTime(req, "start")
	require.NoError(t, err)
	assert.Equal(t, 10, parsed.Hour())

	req = httptest.NewRequest("GET", "/events", nil)
	parsed, err = ParseQueryTime(req, "start")
	require.NoError(t, err)
	assert.True(t, parsed.IsZero())

	req = httptest.NewRequest("GET", "/events?start=yesterday", nil)
	_, err = ParseQueryTime(req, "start")
	assert.Error(t, err)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abc  ", 10))
	assert.Equal(t, "ab", SanitizeString("abcd", 2))
	assert.Equal(t, "coraçã", SanitizeString("coração", 6))
	assert.Equal(t, "", SanitizeString("   ", 10))
}
