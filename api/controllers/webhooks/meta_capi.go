// Package webhooks hosts the endpoints that bridge browser events to
// third party platforms.
package webhooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/responses"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/validators"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/capi"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	pkgerrors "github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/errors"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

// MetaCAPIForwarder wraps a single conversion payload in the Graph API
// batch envelope and posts it to the pixel's events edge. The access token
// stays server side so the browser never sees it.
type MetaCAPIForwarder struct {
	cfg  config.PixelConfig
	http *http.Client
	logg *logger.Logger
}

func NewMetaCAPIForwarder(cfg config.PixelConfig, logg *logger.Logger) *MetaCAPIForwarder {
	return &MetaCAPIForwarder{
		cfg:  cfg,
		http: &http.Client{Timeout: 5 * time.Second},
		logg: logg,
	}
}

type graphEnvelope struct {
	Data []capi.Payload `json:"data"`
}

type graphResponse struct {
	EventsReceived int    `json:"events_received"`
	FBTraceID      string `json:"fbtrace_id"`
}

func (f *MetaCAPIForwarder) Handle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload capi.Payload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, f.logg, w, err)
			return
		}
		if payload.EventName == "" {
			responses.WriteError(ctx, f.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event_name is required"))
			return
		}
		if payload.EventTime == 0 {
			payload.EventTime = time.Now().Unix()
		}
		if payload.ActionSource == "" {
			payload.ActionSource = capi.ActionSource
		}

		if f.cfg.PixelID == "" || f.cfg.MetaAccessToken == "" {
			// No credentials provisioned, accept and drop so the
			// frontend does not retry.
			f.logg.Debug(f.logg.WithEventName(ctx, payload.EventName), "meta credentials missing, payload dropped")
			responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "skipped"})
			return
		}

		body, err := json.Marshal(graphEnvelope{Data: []capi.Payload{payload}})
		if err != nil {
			responses.WriteError(ctx, f.logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode graph payload"))
			return
		}

		url := fmt.Sprintf("%s/%s/events?access_token=%s", f.cfg.GraphBaseURL, f.cfg.PixelID, f.cfg.MetaAccessToken)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			responses.WriteError(ctx, f.logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build graph request"))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := f.http.Do(req)
		if err != nil {
			responses.WriteError(ctx, f.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "forward conversion event"))
			return
		}
		defer resp.Body.Close()

		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			warnCtx := f.logg.WithFields(f.logg.WithEventName(ctx, payload.EventName), map[string]any{
				"status": resp.StatusCode,
				"body":   string(raw),
			})
			f.logg.Warn(warnCtx, "graph api rejected conversion event")
			responses.WriteError(ctx, f.logg, w, pkgerrors.New(pkgerrors.CodeDependency,
				fmt.Sprintf("graph api returned status %d", resp.StatusCode)))
			return
		}

		var parsed graphResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			parsed = graphResponse{}
		}
		responses.WriteSuccess(w, map[string]any{
			"status":          "forwarded",
			"events_received": parsed.EventsReceived,
			"fbtrace_id":      parsed.FBTraceID,
		})
	}
}
