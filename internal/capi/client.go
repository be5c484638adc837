// Package capi delivers conversion events to the server-side relay endpoint
// with bounded retries. Callers never wait on delivery.
package capi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/attribution"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/consent"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/metrics"
	"github.com/sethvargo/go-retry"
)

// Client submits payloads to an internal queue consumed by background
// workers. Queue overflow drops the event; loss is accepted over blocking
// the tracking path.
type Client struct {
	cfg     config.RelayConfig
	store   *attribution.Store
	gate    *consent.Gate
	http    *http.Client
	metrics *metrics.TrackingMetrics
	logg    *logger.Logger

	mu     sync.Mutex
	queue  chan Payload
	closed bool
	wg     sync.WaitGroup
}

// Options wires relay client dependencies.
type Options struct {
	Config  config.RelayConfig
	Store   *attribution.Store
	Gate    *consent.Gate
	Metrics *metrics.TrackingMetrics
	Logger  *logger.Logger
}

// NewClient builds the relay client. Start must be called before events flow.
func NewClient(opts Options) *Client {
	cfg := opts.Config
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 1500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 300 * time.Millisecond
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Client{
		cfg:     cfg,
		store:   opts.Store,
		gate:    opts.Gate,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		metrics: opts.Metrics,
		logg:    opts.Logger,
		queue:   make(chan Payload, cfg.QueueSize),
	}
}

// Start launches the delivery workers.
func (c *Client) Start(ctx context.Context) {
	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for payload := range c.queue {
				c.deliver(ctx, payload)
			}
		}()
	}
}

// Close stops accepting new events and drains the queue.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

// Send enqueues one event for background delivery. No-ops without consent or
// while the relay endpoint still carries its placeholder value. The caller
// returns immediately in every case.
func (c *Client) Send(ctx context.Context, eventName string, custom map[string]any, page PageContext) {
	if c.gate != nil && !c.gate.HasConsent(ctx) {
		return
	}
	if !c.cfg.Configured() {
		c.debug(ctx, "relay endpoint not configured, skipping event")
		return
	}

	var rec attribution.Record
	if c.store != nil {
		rec = c.store.Snapshot(ctx)
	}
	payload := BuildPayload(eventName, rec, custom, page)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.metrics.IncRelayDropped()
		return
	}
	select {
	case c.queue <- payload:
	default:
		c.metrics.IncRelayDropped()
		c.debug(ctx, "relay queue full, dropping event")
	}
}

// deliver POSTs one payload, retrying transient failures with exponential
// backoff. Exhausted retries are swallowed.
func (c *Client) deliver(ctx context.Context, payload Payload) {
	started := time.Now()
	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxRetries), expBackoff(c.cfg.BackoffBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.post(ctx, payload); err != nil {
			c.metrics.IncRelayAttempt("failure")
			return retry.RetryableError(err)
		}
		c.metrics.IncRelayAttempt("success")
		return nil
	})
	c.metrics.ObserveRelayDuration(time.Since(started))

	if err != nil {
		c.metrics.IncRelayDropped()
		if c.logg != nil {
			c.logg.Debug(c.logg.WithEventName(ctx, payload.EventName), "relay delivery failed after retries")
		}
	}
}

func (c *Client) post(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding relay payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("relay request failed: %d", resp.StatusCode)
	}
	return nil
}

// expBackoff grows the delay as base, base*3, base*9, matching the relay's
// delivery contract.
func expBackoff(base time.Duration) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		delay := base
		for i := 0; i < attempt; i++ {
			delay *= 3
		}
		attempt++
		return delay, false
	})
}

func (c *Client) debug(ctx context.Context, msg string) {
	if c.logg != nil {
		c.logg.Debug(ctx, msg)
	}
}
