// Package tracking is the single call surface the funnel endpoints use.
// Every tracked action lands in the local event log; pixel and relay
// delivery additionally require consent.
package tracking

import (
	"context"
	"fmt"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/attribution"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/capi"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/consent"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/eventlog"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	pkgerrors "github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/errors"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

// Dispatcher fans events out to the pixel and the tag queue.
// Satisfied by dispatch.Dispatcher.
type Dispatcher interface {
	Publish(ctx context.Context, eventName string, data map[string]any)
	PushRaw(ctx context.Context, record map[string]any)
	AnnounceAttribution(ctx context.Context)
}

// Relay delivers conversion events server-side. Satisfied by capi.Client.
type Relay interface {
	Send(ctx context.Context, eventName string, custom map[string]any, page capi.PageContext)
}

// QuizProfile is the quiz outcome attached to a completion event.
type QuizProfile struct {
	TempoEspiritual string `json:"tempo_espiritual"`
	PerfilAmor      string `json:"perfil_amor"`
}

// Service coordinates the tracking collaborators.
type Service struct {
	cfg        config.TrackingConfig
	store      *attribution.Store
	gate       *consent.Gate
	dispatcher Dispatcher
	relay      Relay
	log        *eventlog.Service
	logg       *logger.Logger
}

// Options wires the facade. Store, Gate, and Log are required.
type Options struct {
	Config     config.TrackingConfig
	Store      *attribution.Store
	Gate       *consent.Gate
	Dispatcher Dispatcher
	Relay      Relay
	Log        *eventlog.Service
	Logger     *logger.Logger
}

// NewService builds the tracking facade.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "attribution store required")
	}
	if opts.Gate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "consent gate required")
	}
	if opts.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event log required")
	}
	cfg := opts.Config
	if cfg.Currency == "" {
		cfg.Currency = "BRL"
	}
	if cfg.TimerMinutes <= 0 {
		cfg.TimerMinutes = 15
	}
	return &Service{
		cfg:        cfg,
		store:      opts.Store,
		gate:       opts.Gate,
		dispatcher: opts.Dispatcher,
		relay:      opts.Relay,
		log:        opts.Log,
		logg:       opts.Logger,
	}, nil
}

// Capture folds a landing URL into the attribution record and announces the
// refreshed snapshot to the tag queue.
func (s *Service) Capture(ctx context.Context, rawURL string) attribution.Record {
	rec := s.store.CaptureFromURL(ctx, rawURL)
	if s.dispatcher != nil {
		s.dispatcher.AnnounceAttribution(ctx)
	}
	return rec
}

// SetConsent records the decision; accepting re-announces attribution so the
// tag manager can catch up on what it missed.
func (s *Service) SetConsent(ctx context.Context, accepted bool) {
	s.gate.SetConsent(ctx, accepted)
	if accepted && s.dispatcher != nil {
		s.dispatcher.AnnounceAttribution(ctx)
	}
}

// ConsentState exposes the gate for the consent endpoints.
func (s *Service) ConsentState(ctx context.Context) consent.State {
	return s.gate.State(ctx)
}

// SetUserData hashes and stores contact data on the attribution record.
func (s *Service) SetUserData(ctx context.Context, email, phone string) {
	s.store.SetUserData(ctx, email, phone)
}

// Attribution returns the current record snapshot.
func (s *Service) Attribution(ctx context.Context) attribution.Record {
	return s.store.Snapshot(ctx)
}

// CheckoutURL returns the configured checkout URL with attribution params
// appended, for the redirect bridge. Errors when no checkout URL has been
// configured so the bridge never redirects to an empty destination.
func (s *Service) CheckoutURL(ctx context.Context) (string, error) {
	if s.cfg.CheckoutURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "checkout url is not configured")
	}
	return s.store.AppendTrackingParams(ctx, s.cfg.CheckoutURL), nil
}

// StartTimer anchors the urgency countdown.
func (s *Service) StartTimer(ctx context.Context) {
	s.store.StartTimer(ctx)
}

// TimerRemaining reports the remaining countdown seconds using the
// configured duration.
func (s *Service) TimerRemaining(ctx context.Context) int64 {
	return s.store.RemainingSeconds(ctx, s.cfg.TimerMinutes)
}

func (s *Service) TrackPageView(ctx context.Context, page capi.PageContext) {
	s.track(ctx, eventlog.Event{EventName: eventlog.EventPageView}, nil, page)
}

func (s *Service) TrackViewContent(ctx context.Context, page capi.PageContext, contentName, contentCategory string) {
	data := map[string]any{}
	if contentName != "" {
		data["content_name"] = contentName
	}
	if contentCategory != "" {
		data["content_category"] = contentCategory
	}
	s.track(ctx, eventlog.Event{
		EventName:   eventlog.EventViewContent,
		ContentName: contentName,
	}, data, page)
}

func (s *Service) TrackLead(ctx context.Context, page capi.PageContext) {
	s.track(ctx, eventlog.Event{EventName: eventlog.EventLead}, nil, page)
}

func (s *Service) TrackInitiateCheckout(ctx context.Context, page capi.PageContext, value *float64) {
	data := map[string]any{"currency": s.cfg.Currency}
	if value != nil {
		data["value"] = *value
	}
	s.track(ctx, eventlog.Event{
		EventName: eventlog.EventInitiateCheckout,
		Value:     value,
	}, data, page)
}

func (s *Service) TrackPurchase(ctx context.Context, page capi.PageContext, value float64, contentName string) {
	data := map[string]any{"value": value, "currency": s.cfg.Currency}
	if contentName != "" {
		data["content_name"] = contentName
	}
	s.track(ctx, eventlog.Event{
		EventName:   eventlog.EventPurchase,
		Value:       &value,
		ContentName: contentName,
	}, data, page)
}

func (s *Service) TrackQuizStart(ctx context.Context, page capi.PageContext) {
	s.track(ctx, eventlog.Event{EventName: eventlog.EventQuizStart}, nil, page)
}

// TrackQuizStep records one quiz answer. The tag queue receives the step
// record regardless of consent; historical behavior, see DESIGN.md.
func (s *Service) TrackQuizStep(ctx context.Context, page capi.PageContext, step int, answer string) {
	data := map[string]any{"step": step}
	if answer != "" {
		data["answer"] = answer
	}
	s.track(ctx, eventlog.Event{
		EventName: eventlog.EventQuizStep,
		Step:      &step,
		Answer:    answer,
	}, data, page)

	if s.dispatcher != nil {
		record := map[string]any{"event": eventlog.EventQuizStep, "step": step}
		if answer != "" {
			record["answer"] = answer
		}
		s.dispatcher.PushRaw(ctx, record)
	}
}

func (s *Service) TrackQuizComplete(ctx context.Context, page capi.PageContext, profile *QuizProfile) {
	event := eventlog.Event{EventName: eventlog.EventQuizComplete}
	data := map[string]any{}
	if profile != nil {
		event.PerfilSintese = fmt.Sprintf("%s | %s", profile.TempoEspiritual, profile.PerfilAmor)
		event.TempoEspiritual = profile.TempoEspiritual
		event.PerfilAmor = profile.PerfilAmor
		data["tempo_espiritual"] = profile.TempoEspiritual
		data["perfil_amor"] = profile.PerfilAmor
	}
	s.track(ctx, event, data, page)
}

// track appends to the event log unconditionally, then fans out to the pixel
// and relay when consent allows.
func (s *Service) track(ctx context.Context, event eventlog.Event, data map[string]any, page capi.PageContext) {
	rec := s.store.EnsureIdentifiers(ctx)
	event.UTMSource = rec.UTMSource
	event.UTMMedium = rec.UTMMedium
	event.UTMCampaign = rec.UTMCampaign
	event.UTMContent = rec.UTMContent
	event.UTMTerm = rec.UTMTerm
	event.FBP = rec.FBP
	event.FBC = rec.FBC
	event.DedupEventID = rec.EventID

	s.log.Record(ctx, event)

	if !s.gate.HasConsent(ctx) {
		return
	}
	if s.dispatcher != nil {
		s.dispatcher.Publish(ctx, event.EventName, data)
	}
	if s.relay != nil {
		s.relay.Send(ctx, event.EventName, data, page)
	}
}
