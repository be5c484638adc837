package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

const publishTimeout = 5 * time.Second

// NoopQueue is the fallback when no tag bridge is configured.
type NoopQueue struct{}

func (NoopQueue) Push(context.Context, map[string]any) {}

// MemoryQueue accumulates records in memory. Used in dev and tests.
type MemoryQueue struct {
	mu      sync.Mutex
	records []map[string]any
}

func (q *MemoryQueue) Push(_ context.Context, record map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, record)
}

// Records returns a copy of everything pushed so far.
func (q *MemoryQueue) Records() []map[string]any {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]map[string]any, len(q.records))
	copy(out, q.records)
	return out
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}

// PubSubQueue bridges records to the tag-events topic. Pushes are
// fire-and-forget so the tracking path never waits on the broker.
type PubSubQueue struct {
	pub  publisher
	logg *logger.Logger
}

// NewPubSubQueue wraps a topic publisher. Returns nil for a nil publisher so
// callers fall back to the no-op.
func NewPubSubQueue(pub *gcppubsub.Publisher, logg *logger.Logger) *PubSubQueue {
	if pub == nil {
		return nil
	}
	return &PubSubQueue{pub: &gcpPublisher{Publisher: pub}, logg: logg}
}

func (q *PubSubQueue) Push(ctx context.Context, record map[string]any) {
	if q == nil || q.pub == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		if q.logg != nil {
			q.logg.Debug(ctx, "tag record not serializable")
		}
		return
	}

	msg := &gcppubsub.Message{Data: payload}
	go func() {
		publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		result := q.pub.Publish(publishCtx, msg)
		if result == nil {
			return
		}
		if _, err := result.Get(publishCtx); err != nil && q.logg != nil {
			q.logg.Debug(publishCtx, "tag record publish failed")
		}
	}()
}
