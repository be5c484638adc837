package webhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/capi"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func post(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/meta-capi", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler(resp, req)
	return resp
}

func TestForwarderSkipsWithoutCredentials(t *testing.T) {
	forwarder := NewMetaCAPIForwarder(config.PixelConfig{}, testLogger())
	resp := post(forwarder.Handle(), `{"event_name":"Purchase"}`)
	require.Equal(t, http.StatusAccepted, resp.Code)
	assert.Contains(t, resp.Body.String(), `"skipped"`)
}

func TestForwarderRequiresEventName(t *testing.T) {
	forwarder := NewMetaCAPIForwarder(config.PixelConfig{}, testLogger())
	resp := post(forwarder.Handle(), `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestForwarderWrapsPayloadInBatchEnvelope(t *testing.T) {
	var gotPath, gotToken string
	var gotBody graphEnvelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"events_received":1,"fbtrace_id":"abc"}`))
	}))
	defer server.Close()

	forwarder := NewMetaCAPIForwarder(config.PixelConfig{
		PixelID:         "12345",
		MetaAccessToken: "tok",
		GraphBaseURL:    server.URL,
	}, testLogger())

	resp := post(forwarder.Handle(), `{
		"event_name": "Purchase",
		"event_id": "evt-1",
		"user_data": {"fbp": "fb.1.111.222"},
		"custom_data": {"value": 27, "currency": "BRL"}
	}`)
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, "/12345/events", gotPath)
	assert.Equal(t, "tok", gotToken)
	require.Len(t, gotBody.Data, 1)
	forwarded := gotBody.Data[0]
	assert.Equal(t, "Purchase", forwarded.EventName)
	assert.Equal(t, "evt-1", forwarded.EventID)
	assert.Equal(t, capi.ActionSource, forwarded.ActionSource)
	assert.NotZero(t, forwarded.EventTime)
	assert.Contains(t, resp.Body.String(), `"forwarded"`)
	assert.Contains(t, resp.Body.String(), `"fbtrace_id":"abc"`)
}

func TestForwarderSurfacesGraphRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad token"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	forwarder := NewMetaCAPIForwarder(config.PixelConfig{
		PixelID:         "12345",
		MetaAccessToken: "tok",
		GraphBaseURL:    server.URL,
	}, testLogger())

	resp := post(forwarder.Handle(), `{"event_name":"Purchase"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
