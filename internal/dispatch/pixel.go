package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

// NoopPixel is the fallback when no pixel is configured.
type NoopPixel struct{}

func (NoopPixel) Fire(context.Context, string, map[string]any, FireOptions) {}

// MetaPixel delivers events through Meta's image-pixel endpoint. Failures are
// swallowed; pixel delivery is best-effort by contract.
type MetaPixel struct {
	pixelID string
	baseURL string
	client  *http.Client
	logg    *logger.Logger
}

// NewMetaPixel builds an image-pixel client. Returns nil when no pixel id is
// configured so callers fall back to the no-op.
func NewMetaPixel(cfg config.PixelConfig, logg *logger.Logger) *MetaPixel {
	if strings.TrimSpace(cfg.PixelID) == "" {
		return nil
	}
	return &MetaPixel{
		pixelID: cfg.PixelID,
		baseURL: cfg.PixelBaseURL,
		client:  &http.Client{Timeout: 2 * time.Second},
		logg:    logg,
	}
}

// Fire issues the tracking GET. The dedup event id travels as eid and custom
// fields as cd[...] params.
func (p *MetaPixel) Fire(ctx context.Context, eventName string, data map[string]any, opts FireOptions) {
	if p == nil {
		return
	}

	query := url.Values{}
	query.Set("id", p.pixelID)
	query.Set("ev", eventName)
	if opts.EventID != "" {
		query.Set("eid", opts.EventID)
	}
	for key, value := range data {
		query.Set(fmt.Sprintf("cd[%s]", key), fmt.Sprint(value))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if p.logg != nil {
			p.logg.Debug(ctx, "pixel delivery failed")
		}
		return
	}
	_ = resp.Body.Close()
}
