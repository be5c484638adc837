package controllers

import (
	"net/http"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/responses"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/validators"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/capi"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/tracking"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

// pageContext derives the event's page context from the request. The static
// frontend reports its own URL; the user agent travels on the header.
func pageContext(r *http.Request, sourceURL string) capi.PageContext {
	if sourceURL == "" {
		sourceURL = r.Referer()
	}
	return capi.PageContext{
		SourceURL: sourceURL,
		UserAgent: r.UserAgent(),
	}
}

type captureRequest struct {
	URL       string `json:"url" validate:"required"`
	SourceURL string `json:"source_url" validate:"omitempty"`
}

// TrackCapture folds a landing URL into the attribution record.
func TrackCapture(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body captureRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rec := service.Capture(ctx, body.URL)
		responses.WriteSuccess(w, rec)
	}
}

type pageViewRequest struct {
	SourceURL string `json:"source_url" validate:"omitempty"`
}

func TrackPageView(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body pageViewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		service.TrackPageView(ctx, pageContext(r, body.SourceURL))
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

type viewContentRequest struct {
	SourceURL       string `json:"source_url" validate:"omitempty"`
	ContentName     string `json:"content_name" validate:"omitempty,max=200"`
	ContentCategory string `json:"content_category" validate:"omitempty,max=200"`
}

func TrackViewContent(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body viewContentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		service.TrackViewContent(ctx, pageContext(r, body.SourceURL),
			validators.SanitizeString(body.ContentName, 200),
			validators.SanitizeString(body.ContentCategory, 200))
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

func TrackLead(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body pageViewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		service.TrackLead(ctx, pageContext(r, body.SourceURL))
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

type initiateCheckoutRequest struct {
	SourceURL string   `json:"source_url" validate:"omitempty"`
	Value     *float64 `json:"value" validate:"omitempty,min=0"`
}

func TrackInitiateCheckout(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body initiateCheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		service.TrackInitiateCheckout(ctx, pageContext(r, body.SourceURL), body.Value)
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

type purchaseRequest struct {
	SourceURL   string  `json:"source_url" validate:"omitempty"`
	Value       float64 `json:"value" validate:"min=0"`
	ContentName string  `json:"content_name" validate:"omitempty,max=200"`
}

func TrackPurchase(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body purchaseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		service.TrackPurchase(ctx, pageContext(r, body.SourceURL), body.Value,
			validators.SanitizeString(body.ContentName, 200))
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

func TrackQuizStart(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body pageViewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		service.TrackQuizStart(ctx, pageContext(r, body.SourceURL))
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

type quizStepRequest struct {
	SourceURL string `json:"source_url" validate:"omitempty"`
	Step      int    `json:"step" validate:"required,min=1,max=50"`
	Answer    string `json:"answer" validate:"omitempty,max=500"`
}

func TrackQuizStep(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body quizStepRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		service.TrackQuizStep(ctx, pageContext(r, body.SourceURL), body.Step,
			validators.SanitizeString(body.Answer, 500))
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

type quizCompleteRequest struct {
	SourceURL       string `json:"source_url" validate:"omitempty"`
	TempoEspiritual string `json:"tempo_espiritual" validate:"omitempty,max=100"`
	PerfilAmor      string `json:"perfil_amor" validate:"omitempty,max=100"`
}

func TrackQuizComplete(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body quizCompleteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var profile *tracking.QuizProfile
		if body.TempoEspiritual != "" || body.PerfilAmor != "" {
			profile = &tracking.QuizProfile{
				TempoEspiritual: validators.SanitizeString(body.TempoEspiritual, 100),
				PerfilAmor:      validators.SanitizeString(body.PerfilAmor, 100),
			}
		}
		service.TrackQuizComplete(ctx, pageContext(r, body.SourceURL), profile)
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

type userDataRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=30"`
}

// TrackUserData hashes and stores contact data on the attribution record.
// Raw values are discarded after hashing.
func TrackUserData(service *tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body userDataRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		service.SetUserData(ctx, body.Email, body.Phone)
		responses.WriteSuccess(w, map[string]string{"status": "stored"})
	}
}

// Attribution returns the current attribution snapshot, mirroring the
// tracking_data_ready record the tag queue receives.
func Attribution(service *tracking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, service.Attribution(r.Context()))
	}
}
