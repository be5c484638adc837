package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	data     map[string]string
	fetchErr error
	setErr   error
	sets     int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Fetch(_ context.Context, key string) (string, bool, error) {
	if f.fetchErr != nil {
		return "", false, f.fetchErr
	}
	value, ok := f.data[key]
	return value, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func newTestStore(kv KV) *Store {
	return NewStore(Options{KV: kv, Key: "test:attribution"})
}

func seedRecord(t *testing.T, kv *fakeKV, rec Record) {
	t.Helper()
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	kv.data["test:attribution"] = string(payload)
}

func TestLoadExpiredRecordDiscarded(t *testing.T) {
	kv := newFakeKV()
	seedRecord(t, kv, Record{
		UTMSource: "google",
		FBP:       "fb.1.123.456",
		Timestamp: time.Now().Add(-8 * 24 * time.Hour).UnixMilli(),
	})

	rec := newTestStore(kv).Load(context.Background())

	assert.True(t, rec.IsZero())
	_, exists := kv.data["test:attribution"]
	assert.False(t, exists, "expired record should be deleted")
}

func TestLoadFreshRecordKept(t *testing.T) {
	kv := newFakeKV()
	seedRecord(t, kv, Record{
		UTMSource: "google",
		FBP:       "fb.1.123.456",
		Timestamp: time.Now().Add(-6 * 24 * time.Hour).UnixMilli(),
	})

	rec := newTestStore(kv).Load(context.Background())

	assert.Equal(t, "google", rec.UTMSource)
	assert.Equal(t, "fb.1.123.456", rec.FBP)
}

func TestLoadCorruptedRecordTreatedAsAbsent(t *testing.T) {
	kv := newFakeKV()
	kv.data["test:attribution"] = "{not json"

	rec := newTestStore(kv).Load(context.Background())
	assert.True(t, rec.IsZero())
}

func TestCaptureFirstTouchUTMs(t *testing.T) {
	kv := newFakeKV()
	store := newTestStore(kv)
	ctx := context.Background()

	store.CaptureFromURL(ctx, "https://example.com/?utm_source=google&utm_medium=cpc")
	rec := store.CaptureFromURL(ctx, "https://example.com/?utm_source=facebook&utm_campaign=retarget")

	assert.Equal(t, "google", rec.UTMSource, "first touch wins")
	assert.Equal(t, "cpc", rec.UTMMedium)
	assert.Equal(t, "retarget", rec.UTMCampaign, "absent fields still fill in")
}

func TestCaptureFBCAlwaysRecomputed(t *testing.T) {
	store := newTestStore(newFakeKV())
	ctx := context.Background()

	first := store.CaptureFromURL(ctx, "https://example.com/?fbclid=abc")
	assert.True(t, strings.HasPrefix(first.FBC, "fb.1."))
	assert.True(t, strings.HasSuffix(first.FBC, ".abc"))

	second := store.CaptureFromURL(ctx, "https://example.com/?fbclid=xyz")
	assert.True(t, strings.HasSuffix(second.FBC, ".xyz"), "click id refresh must update fbc")
	assert.Equal(t, "xyz", second.FBCLID)
}

func TestCaptureGeneratesIdentifiersOnce(t *testing.T) {
	store := newTestStore(newFakeKV())
	ctx := context.Background()

	first := store.CaptureFromURL(ctx, "https://example.com/")
	require.NotEmpty(t, first.FBP)
	require.NotEmpty(t, first.EventID)
	assert.True(t, strings.HasPrefix(first.FBP, "fb.1."))

	second := store.CaptureFromURL(ctx, "https://example.com/?utm_source=x")
	assert.Equal(t, first.FBP, second.FBP, "fbp stable across captures")
	assert.Equal(t, first.EventID, second.EventID, "event id stable across captures")
}

func TestEnsureIdentifiersGeneratesAndPersists(t *testing.T) {
	kv := newFakeKV()
	store := newTestStore(kv)

	rec := store.EnsureIdentifiers(context.Background())
	assert.True(t, strings.HasPrefix(rec.FBP, "fb.1."))
	assert.NotEmpty(t, rec.EventID)
	assert.Contains(t, kv.data["test:attribution"], rec.EventID)

	// Existing identifiers are stable and nothing is rewritten.
	sets := kv.sets
	again := store.EnsureIdentifiers(context.Background())
	assert.Equal(t, rec.FBP, again.FBP)
	assert.Equal(t, rec.EventID, again.EventID)
	assert.Equal(t, sets, kv.sets)
}

func TestSetUserDataStoresHashesOnly(t *testing.T) {
	kv := newFakeKV()
	store := newTestStore(kv)
	ctx := context.Background()

	store.SetUserData(ctx, "Test@Example.com", "(11) 91234-5678")
	rec := store.Snapshot(ctx)

	assert.Len(t, rec.EmailHash, 64)
	assert.Len(t, rec.PhoneHash, 64)
	assert.NotContains(t, kv.data["test:attribution"], "example.com")
	assert.NotContains(t, kv.data["test:attribution"], "91234")
}

func TestRegenerateEventID(t *testing.T) {
	store := newTestStore(newFakeKV())
	ctx := context.Background()

	first := store.EventID(ctx)
	second := store.RegenerateEventID(ctx)

	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
	assert.Equal(t, second, store.EventID(ctx))
}

func TestAppendTrackingParams(t *testing.T) {
	store := newTestStore(newFakeKV())
	ctx := context.Background()
	store.CaptureFromURL(ctx, "https://example.com/?utm_source=ig&fbclid=XYZ")

	out := store.AppendTrackingParams(ctx, "https://checkout.example.com/pay?plan=full")

	parsed, err := url.Parse(out)
	require.NoError(t, err)
	query := parsed.Query()
	assert.Equal(t, "full", query.Get("plan"))
	assert.Equal(t, "ig", query.Get("utm_source"))
	assert.Equal(t, "XYZ", query.Get("fbclid"))
	assert.NotEmpty(t, query.Get("fbp"))
	assert.NotEmpty(t, query.Get("event_id"))
	assert.Empty(t, query.Get("timestamp"), "internal timestamp never propagates")
}

func TestAppendTrackingParamsFailSoft(t *testing.T) {
	store := newTestStore(newFakeKV())
	ctx := context.Background()
	store.CaptureFromURL(ctx, "https://example.com/?utm_source=ig")

	for _, raw := range []string{"/relative/path", "not a url at all", ""} {
		assert.Equal(t, raw, store.AppendTrackingParams(ctx, raw))
	}
}

func TestTimerAnchorsOnceAndNeverNegative(t *testing.T) {
	store := newTestStore(newFakeKV())
	ctx := context.Background()

	store.StartTimer(ctx)
	anchor := store.Snapshot(ctx).TimerStart
	require.NotZero(t, anchor)

	store.StartTimer(ctx)
	assert.Equal(t, anchor, store.Snapshot(ctx).TimerStart, "timer anchors only once")

	remaining := store.RemainingSeconds(ctx, 15)
	assert.LessOrEqual(t, remaining, int64(15*60))
	assert.Greater(t, remaining, int64(15*60-5))

	store.now = func() time.Time { return time.UnixMilli(anchor).Add(20 * time.Minute) }
	assert.Equal(t, int64(0), store.RemainingSeconds(ctx, 15))
}

func TestPersistenceFailuresDegradeToMemory(t *testing.T) {
	kv := newFakeKV()
	kv.fetchErr = errors.New("backend down")
	kv.setErr = errors.New("backend down")
	store := newTestStore(kv)
	ctx := context.Background()

	rec := store.CaptureFromURL(ctx, "https://example.com/?utm_source=ig")
	assert.Equal(t, "ig", rec.UTMSource)
	assert.NotEmpty(t, rec.FBP)

	store.SetUserData(ctx, "a@b.com", "")
	assert.NotEmpty(t, store.Snapshot(ctx).EmailHash)
}
