package controllers

import (
	"net/http"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/responses"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/tracking"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

type checkoutURLResponse struct {
	URL string `json:"url"`
}

// CheckoutURL returns the configured checkout link decorated with the
// visitor's attribution parameters.
func CheckoutURL(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		url, err := service.CheckoutURL(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutURLResponse{URL: url})
	}
}

type timerResponse struct {
	RemainingSeconds int64 `json:"remaining_seconds"`
}

// TimerStart anchors the scarcity countdown for this visitor.
func TimerStart(service *tracking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		service.StartTimer(ctx)
		responses.WriteSuccess(w, timerResponse{RemainingSeconds: service.TimerRemaining(ctx)})
	}
}

// TimerRemaining reports seconds left on the countdown, anchoring it on
// first read.
func TimerRemaining(service *tracking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, timerResponse{RemainingSeconds: service.TimerRemaining(r.Context())})
	}
}
