// Package dispatch fans tracked events out to the ad pixel and the
// tag-management event queue, behind the consent gate.
package dispatch

import (
	"context"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/attribution"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/consent"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/metrics"
)

// FireOptions carries per-event pixel options. EventID is the deduplication
// key the server-side relay must reuse for the same logical event.
type FireOptions struct {
	EventID string
}

// Pixel is the client-pixel capability. Implementations must be safe to call
// concurrently and must never surface errors to the tracking path.
type Pixel interface {
	Fire(ctx context.Context, eventName string, data map[string]any, opts FireOptions)
}

// EventQueue is the tag-management bridge. Records are append-only and never
// read back by this system.
type EventQueue interface {
	Push(ctx context.Context, record map[string]any)
}

// Dispatcher routes one event to both delivery surfaces when consent allows.
type Dispatcher struct {
	store   *attribution.Store
	gate    *consent.Gate
	pixel   Pixel
	queue   EventQueue
	metrics *metrics.TrackingMetrics
	logg    *logger.Logger
}

// Options wires dispatcher dependencies. Nil pixel/queue fall back to no-ops.
type Options struct {
	Store   *attribution.Store
	Gate    *consent.Gate
	Pixel   Pixel
	Queue   EventQueue
	Metrics *metrics.TrackingMetrics
	Logger  *logger.Logger
}

// New builds a dispatcher.
func New(opts Options) *Dispatcher {
	pixel := opts.Pixel
	if pixel == nil {
		pixel = NoopPixel{}
	}
	queue := opts.Queue
	if queue == nil {
		queue = NoopQueue{}
	}
	return &Dispatcher{
		store:   opts.Store,
		gate:    opts.Gate,
		pixel:   pixel,
		queue:   queue,
		metrics: opts.Metrics,
		logg:    opts.Logger,
	}
}

// Publish delivers one event to the queue and the pixel. A missing consent
// makes this a silent no-op, which is the correct behavior rather than an
// error condition.
func (d *Dispatcher) Publish(ctx context.Context, eventName string, data map[string]any) {
	if d.gate != nil && !d.gate.HasConsent(ctx) {
		return
	}

	record := map[string]any{"event": eventName}
	for key, value := range data {
		record[key] = value
	}
	d.queue.Push(ctx, record)

	eventID := ""
	if d.store != nil {
		eventID = d.store.EventID(ctx)
	}
	d.pixel.Fire(ctx, eventName, data, FireOptions{EventID: eventID})
	d.metrics.IncDispatched(eventName)
}

// PushRaw appends a record to the queue without consent gating. Used for the
// quiz-step tag bridge, which historically bypasses the gate.
func (d *Dispatcher) PushRaw(ctx context.Context, record map[string]any) {
	d.queue.Push(ctx, record)
}

// AnnounceAttribution pushes the current attribution snapshot to the queue so
// the external tag manager can pick it up. Not consent-gated.
func (d *Dispatcher) AnnounceAttribution(ctx context.Context) {
	var rec attribution.Record
	if d.store != nil {
		rec = d.store.Snapshot(ctx)
	}
	d.queue.Push(ctx, map[string]any{
		"event":    "tracking_data_ready",
		"tracking": rec,
	})
}
