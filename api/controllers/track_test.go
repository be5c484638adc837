package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/attribution"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/consent"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/eventlog"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/tracking"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	pkgerrors "github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/errors"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T) (*tracking.Service, *eventlog.Service) {
	t.Helper()
	return newTestServiceWithConfig(t, config.TrackingConfig{
		Currency:     "BRL",
		TimerMinutes: 15,
		CheckoutURL:  "https://pay.example.com/checkout",
	})
}

func newTestServiceWithConfig(t *testing.T, cfg config.TrackingConfig) (*tracking.Service, *eventlog.Service) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&eventlog.Event{}))

	logService, err := eventlog.NewService(eventlog.Options{Repo: eventlog.NewRepository(conn)})
	require.NoError(t, err)

	service, err := tracking.NewService(tracking.Options{
		Config: cfg,
		Store:  attribution.NewStore(attribution.Options{}),
		Gate:   consent.NewGate(nil, "", nil),
		Log:    logService,
	})
	require.NoError(t, err)
	return service, logService
}

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler(resp, req)
	return resp
}

func TestTrackCaptureReturnsAttribution(t *testing.T) {
	service, _ := newTestService(t)
	handler := TrackCapture(service, testLogger())

	resp := postJSON(handler, "/api/v1/track/capture",
		`{"url":"https://mapa.example.com/?utm_source=facebook&fbclid=abc123"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data attribution.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "facebook", envelope.Data.UTMSource)
	assert.Equal(t, "abc123", envelope.Data.FBCLID)
	assert.NotEmpty(t, envelope.Data.FBP)
	assert.NotEmpty(t, envelope.Data.EventID)
}

func TestTrackCaptureRequiresURL(t *testing.T) {
	service, _ := newTestService(t)
	resp := postJSON(TrackCapture(service, testLogger()), "/api/v1/track/capture", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTrackPageViewAcceptsEmptyBody(t *testing.T) {
	service, logService := newTestService(t)
	resp := postJSON(TrackPageView(service, testLogger()), "/api/v1/track/page-view", "")
	require.Equal(t, http.StatusAccepted, resp.Code)

	events, err := logService.Query(context.Background(), eventlog.Filters{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventlog.EventPageView, events[0].EventName)
}

func TestTrackPurchaseLogsValue(t *testing.T) {
	service, logService := newTestService(t)
	resp := postJSON(TrackPurchase(service, testLogger()), "/api/v1/track/purchase",
		`{"value":27,"content_name":"Mapa Profetico do Amor"}`)
	require.Equal(t, http.StatusAccepted, resp.Code)

	events, err := logService.Query(context.Background(), eventlog.Filters{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Value)
	assert.Equal(t, 27.0, *events[0].Value)
	assert.Equal(t, "Mapa Profetico do Amor", events[0].ContentName)
}

func TestTrackPurchaseRejectsUnknownFields(t *testing.T) {
	service, _ := newTestService(t)
	resp := postJSON(TrackPurchase(service, testLogger()), "/api/v1/track/purchase",
		`{"value":27,"bogus":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTrackQuizStepValidatesStep(t *testing.T) {
	service, _ := newTestService(t)
	handler := TrackQuizStep(service, testLogger())

	resp := postJSON(handler, "/api/v1/track/quiz/step", `{"step":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = postJSON(handler, "/api/v1/track/quiz/step", `{"step":3,"answer":"sim"}`)
	assert.Equal(t, http.StatusAccepted, resp.Code)
}

func TestTrackQuizCompleteStoresProfile(t *testing.T) {
	service, logService := newTestService(t)
	resp := postJSON(TrackQuizComplete(service, testLogger()), "/api/v1/track/quiz/complete",
		`{"tempo_espiritual":"desperta","perfil_amor":"intensa"}`)
	require.Equal(t, http.StatusAccepted, resp.Code)

	events, err := logService.Query(context.Background(), eventlog.Filters{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "desperta", events[0].TempoEspiritual)
	assert.Equal(t, "intensa", events[0].PerfilAmor)
	assert.Equal(t, "desperta | intensa", events[0].PerfilSintese)
}

func TestTrackUserDataRejectsBadEmail(t *testing.T) {
	service, _ := newTestService(t)
	resp := postJSON(TrackUserData(service, testLogger()), "/api/v1/track/user-data",
		`{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTrackUserDataHashesContact(t *testing.T) {
	service, _ := newTestService(t)
	resp := postJSON(TrackUserData(service, testLogger()), "/api/v1/track/user-data",
		`{"email":"Maria@Example.com","phone":"(11) 98888-7777"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	rec := service.Attribution(context.Background())
	assert.Len(t, rec.EmailHash, 64)
	assert.Len(t, rec.PhoneHash, 64)
}

func TestAttributionEndpointReturnsSnapshot(t *testing.T) {
	service, _ := newTestService(t)
	service.Capture(context.Background(), "https://mapa.example.com/?utm_campaign=lancamento")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attribution", nil)
	resp := httptest.NewRecorder()
	Attribution(service)(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data attribution.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "lancamento", envelope.Data.UTMCampaign)
}

func TestConsentLifecycle(t *testing.T) {
	service, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/consent", nil)
	resp := httptest.NewRecorder()
	ConsentState(service)(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"unset"`)

	resp = postJSON(SetConsent(service, testLogger()), "/api/v1/consent", `{"accepted":true}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"accepted"`)

	resp = postJSON(SetConsent(service, testLogger()), "/api/v1/consent", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCheckoutURLCarriesParams(t *testing.T) {
	service, _ := newTestService(t)
	service.Capture(context.Background(), "https://mapa.example.com/?utm_source=facebook")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout-url", nil)
	resp := httptest.NewRecorder()
	CheckoutURL(service, testLogger())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "utm_source=facebook")
}

func TestCheckoutURLUnconfiguredReturnsDependencyError(t *testing.T) {
	service, _ := newTestServiceWithConfig(t, config.TrackingConfig{
		Currency:     "BRL",
		TimerMinutes: 15,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout-url", nil)
	resp := httptest.NewRecorder()
	CheckoutURL(service, testLogger())(resp, req)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), string(pkgerrors.CodeDependency))
}

func TestTimerEndpoints(t *testing.T) {
	service, _ := newTestService(t)

	resp := postJSON(TimerStart(service), "/api/v1/timer/start", "")
	require.Equal(t, http.StatusOK, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timer", nil)
	getResp := httptest.NewRecorder()
	TimerRemaining(service)(getResp, req)
	require.Equal(t, http.StatusOK, getResp.Code)

	var envelope struct {
		Data struct {
			RemainingSeconds int64 `json:"remaining_seconds"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(getResp.Body.Bytes(), &envelope))
	assert.Greater(t, envelope.Data.RemainingSeconds, int64(0))
	assert.LessOrEqual(t, envelope.Data.RemainingSeconds, int64(15*60))
}
