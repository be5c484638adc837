package controllers

import (
	"net/http"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/responses"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/validators"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/tracking"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

type consentRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

type consentResponse struct {
	State string `json:"state"`
}

// ConsentState reports the stored consent decision for this visitor.
func ConsentState(service *tracking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := service.ConsentState(r.Context())
		responses.WriteSuccess(w, consentResponse{State: string(state)})
	}
}

// SetConsent records an accept or reject decision. Accepting replays the
// current attribution record onto the tag queue.
func SetConsent(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body consentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		service.SetConsent(ctx, *body.Accepted)
		responses.WriteSuccess(w, consentResponse{State: string(service.ConsentState(ctx))})
	}
}
