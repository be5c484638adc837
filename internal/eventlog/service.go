// Package eventlog keeps the bounded funnel event history that backs the
// analytics dashboard. Recording is consent-independent: rows never leave
// this service, so every semantic event lands here even when outbound
// tracking is gated off.
package eventlog

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	pkgerrors "github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/errors"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/metrics"
	"github.com/google/uuid"
)

// DefaultCap bounds the log to the most recent rows; the oldest are evicted.
const DefaultCap = 500

// KV is where the memoized session id lives, without TTL.
type KV interface {
	Fetch(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Service stamps and appends funnel events.
type Service struct {
	repo    Repository
	kv      KV
	key     string
	cap     int
	metrics *metrics.TrackingMetrics
	logg    *logger.Logger

	mu        sync.Mutex
	sessionID string
}

// Options wires event log dependencies.
type Options struct {
	Repo       Repository
	KV         KV
	SessionKey string
	Cap        int
	Metrics    *metrics.TrackingMetrics
	Logger     *logger.Logger
}

// NewService builds the event log service.
func NewService(opts Options) (*Service, error) {
	if opts.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event log repository required")
	}
	capacity := opts.Cap
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Service{
		repo:    opts.Repo,
		kv:      opts.KV,
		key:     opts.SessionKey,
		cap:     capacity,
		metrics: opts.Metrics,
		logg:    opts.Logger,
	}, nil
}

// SessionID returns the memoized analytics session id, loading it from the
// backend or generating one on first use.
func (s *Service) SessionID(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != "" {
		return s.sessionID
	}

	if s.kv != nil {
		if stored, found, err := s.kv.Fetch(ctx, s.key); err == nil && found && stored != "" {
			s.sessionID = stored
			return s.sessionID
		}
	}

	s.sessionID = fmt.Sprintf("session_%d_%09d", time.Now().UnixMilli(), rand.Intn(1_000_000_000))
	if s.kv != nil {
		if err := s.kv.Set(ctx, s.key, s.sessionID, 0); err != nil && s.logg != nil {
			s.logg.Debug(ctx, "session id persist failed")
		}
	}
	return s.sessionID
}

// Record stamps id, timestamp, and session id on the event and appends it.
// A failed write triggers one truncate-and-retry; a second failure drops the
// event silently. Callers never see an error.
func (s *Service) Record(ctx context.Context, event Event) {
	event.ID = uuid.NewString()
	event.OccurredAt = time.Now().UTC()
	event.SessionID = s.SessionID(ctx)

	if err := s.repo.Insert(ctx, &event); err != nil {
		if s.logg != nil {
			s.logg.Debug(ctx, "event insert failed, truncating and retrying")
		}
		if err := s.repo.TrimToNewest(ctx, s.cap-1); err != nil {
			return
		}
		if err := s.repo.Insert(ctx, &event); err != nil {
			return
		}
	}

	s.metrics.IncRecorded(event.EventName)
	s.enforceCap(ctx)
}

func (s *Service) enforceCap(ctx context.Context) {
	count, err := s.repo.Count(ctx)
	if err != nil || count <= int64(s.cap) {
		return
	}
	if err := s.repo.TrimToNewest(ctx, s.cap); err != nil && s.logg != nil {
		s.logg.Debug(ctx, "event log trim failed")
	}
}

// Query returns events matching the filters, oldest first.
func (s *Service) Query(ctx context.Context, filters Filters) ([]Event, error) {
	events, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query event log")
	}
	return events, nil
}

// EventCount counts events of one name within the filters.
func (s *Service) EventCount(ctx context.Context, eventName string, filters Filters) (int, error) {
	filters.EventName = eventName
	events, err := s.Query(ctx, filters)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// UniqueSessionCount counts distinct sessions that emitted one event name.
func (s *Service) UniqueSessionCount(ctx context.Context, eventName string, filters Filters) (int, error) {
	filters.EventName = eventName
	events, err := s.Query(ctx, filters)
	if err != nil {
		return 0, err
	}
	sessions := map[string]struct{}{}
	for _, event := range events {
		sessions[event.SessionID] = struct{}{}
	}
	return len(sessions), nil
}

// Clear wipes the log. Administrative use only.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear event log")
	}
	return nil
}
