package attribution

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/hash"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
	"github.com/google/uuid"
)

// DefaultTTL bounds how long a persisted record stays valid without activity.
const DefaultTTL = 7 * 24 * time.Hour

var utmKeys = []string{"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term"}

// KV is the persistence surface the store needs. Satisfied by pkg/redis.Client.
type KV interface {
	Fetch(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Store owns the app's single attribution record. All mutations persist
// best-effort: a failed read or write degrades to in-memory state and never
// surfaces to the caller.
type Store struct {
	kv          KV
	key         string
	ttl         time.Duration
	countryCode string
	logg        *logger.Logger

	mu     sync.Mutex
	rec    Record
	loaded bool

	now func() time.Time
}

// Options configures the attribution store.
type Options struct {
	KV          KV
	Key         string
	TTL         time.Duration
	CountryCode string
	Logger      *logger.Logger
}

// NewStore builds an attribution store over the given key/value backend.
// A nil KV keeps the record purely in memory.
func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	countryCode := opts.CountryCode
	if countryCode == "" {
		countryCode = hash.DefaultCountryCode
	}
	return &Store{
		kv:          opts.KV,
		key:         opts.Key,
		ttl:         ttl,
		countryCode: countryCode,
		logg:        opts.Logger,
		now:         time.Now,
	}
}

// Load reads the persisted record, discarding it wholesale when the TTL has
// lapsed or the stored value cannot be decoded.
func (s *Store) Load(ctx context.Context) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return s.rec
}

func (s *Store) loadLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true
	if s.kv == nil {
		return
	}

	raw, found, err := s.kv.Fetch(ctx, s.key)
	if err != nil {
		s.debug(ctx, "attribution load failed")
		return
	}
	if !found {
		return
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// Corrupted state reads as absent.
		s.debug(ctx, "attribution record corrupted, starting fresh")
		return
	}

	if rec.Timestamp > 0 {
		age := s.now().UnixMilli() - rec.Timestamp
		if age >= s.ttl.Milliseconds() {
			_ = s.kv.Del(ctx, s.key)
			return
		}
	}
	s.rec = rec
}

// CaptureFromURL folds one landing URL's query params into the record.
// Campaign params are first-touch: an existing value is never overwritten.
// A click id always recomputes fbc; fbp and event_id are generated when
// absent. The mutated record is persisted.
func (s *Store) CaptureFromURL(ctx context.Context, rawURL string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)

	var query url.Values
	if parsed, err := url.Parse(rawURL); err == nil {
		query = parsed.Query()
	}

	for _, key := range utmKeys {
		value := query.Get(key)
		if value == "" {
			continue
		}
		switch key {
		case "utm_source":
			if s.rec.UTMSource == "" {
				s.rec.UTMSource = value
			}
		case "utm_medium":
			if s.rec.UTMMedium == "" {
				s.rec.UTMMedium = value
			}
		case "utm_campaign":
			if s.rec.UTMCampaign == "" {
				s.rec.UTMCampaign = value
			}
		case "utm_content":
			if s.rec.UTMContent == "" {
				s.rec.UTMContent = value
			}
		case "utm_term":
			if s.rec.UTMTerm == "" {
				s.rec.UTMTerm = value
			}
		}
	}

	if fbclid := query.Get("fbclid"); fbclid != "" {
		s.rec.FBCLID = fbclid
		s.rec.FBC = formatFBC(s.now().UnixMilli(), fbclid)
	}

	if s.rec.FBP == "" {
		s.rec.FBP = formatFBP(s.now().UnixMilli(), rand.Int63n(1_000_000_000))
	}
	if s.rec.EventID == "" {
		s.rec.EventID = uuid.NewString()
	}

	s.persistLocked(ctx)
	return s.rec
}

// EnsureIdentifiers generates fbp and event_id when absent, persisting the
// record, and returns the result. Tracking calls go through here so that an
// event fired before any URL capture still carries both identifiers.
func (s *Store) EnsureIdentifiers(ctx context.Context) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)

	if s.rec.FBP != "" && s.rec.EventID != "" {
		return s.rec
	}
	if s.rec.FBP == "" {
		s.rec.FBP = formatFBP(s.now().UnixMilli(), rand.Int63n(1_000_000_000))
	}
	if s.rec.EventID == "" {
		s.rec.EventID = uuid.NewString()
	}
	s.persistLocked(ctx)
	return s.rec
}

// SetUserData hashes and stores contact data. Raw values never touch the
// record or the backend.
func (s *Store) SetUserData(ctx context.Context, email, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)

	if email != "" {
		if hashed := hash.HashEmail(email); hashed != "" {
			s.rec.EmailHash = hashed
		}
	}
	if phone != "" {
		if hashed := hash.HashPhone(phone, s.countryCode); hashed != "" {
			s.rec.PhoneHash = hashed
		}
	}
	s.persistLocked(ctx)
}

// EventID returns the current deduplication id, generating one if needed.
func (s *Store) EventID(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	if s.rec.EventID == "" {
		s.rec.EventID = uuid.NewString()
		s.persistLocked(ctx)
	}
	return s.rec.EventID
}

// RegenerateEventID replaces the deduplication id so a new logical conversion
// cannot collide with a previous one.
func (s *Store) RegenerateEventID(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	s.rec.EventID = uuid.NewString()
	s.persistLocked(ctx)
	return s.rec.EventID
}

// AppendTrackingParams returns rawURL with every non-empty attribution field
// set as a query parameter. Non-absolute input is returned unchanged.
func (s *Store) AppendTrackingParams(ctx context.Context, rawURL string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)

	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return rawURL
	}

	query := parsed.Query()
	for key, value := range s.rec.Params() {
		query.Set(key, value)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// StartTimer anchors the countdown exactly once.
func (s *Store) StartTimer(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	if s.rec.TimerStart == 0 {
		s.rec.TimerStart = s.now().UnixMilli()
		s.persistLocked(ctx)
	}
}

// RemainingSeconds reports how much of the countdown is left, anchoring it
// first when it has not started. Never negative.
func (s *Store) RemainingSeconds(ctx context.Context, durationMinutes int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)

	if s.rec.TimerStart == 0 {
		s.rec.TimerStart = s.now().UnixMilli()
		s.persistLocked(ctx)
	}

	elapsed := s.now().UnixMilli() - s.rec.TimerStart
	remaining := int64(durationMinutes)*60*1000 - elapsed
	if remaining <= 0 {
		return 0
	}
	return remaining / 1000
}

// Snapshot returns a copy of the current record without touching the backend.
func (s *Store) Snapshot(ctx context.Context) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return s.rec
}

func (s *Store) persistLocked(ctx context.Context) {
	s.rec.Timestamp = s.now().UnixMilli()
	if s.kv == nil {
		return
	}
	payload, err := json.Marshal(s.rec)
	if err != nil {
		s.debug(ctx, "attribution record not serializable")
		return
	}
	if err := s.kv.Set(ctx, s.key, string(payload), s.ttl); err != nil {
		s.debug(ctx, "attribution persist failed")
	}
}

func (s *Store) debug(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Debug(ctx, msg)
	}
}
