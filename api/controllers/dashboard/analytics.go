package dashboard

import (
	"net/http"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/responses"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/validators"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/eventlog"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/funnel"
	pkgerrors "github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/errors"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

// Funnel returns the seven stage quiz pipeline with retention and drop rates.
func Funnel(log *eventlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		events, err := log.Query(ctx, eventlog.Filters{})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, funnel.ComputeFunnelSteps(events))
	}
}

// DailyMetrics returns per day counts for the headline events over the
// requested window, oldest day first.
func DailyMetrics(log *eventlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		days, err := validators.ParseQueryInt(r, "days", 7, 1, 90)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		events, qErr := log.Query(ctx, eventlog.Filters{})
		if qErr != nil {
			responses.WriteError(ctx, logg, w, qErr)
			return
		}
		responses.WriteSuccess(w, funnel.ComputeDailyMetrics(events, days))
	}
}

// Distribution tallies a quiz result field across completed quizzes.
func Distribution(log *eventlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		field := funnel.DistributionField(r.URL.Query().Get("field"))
		if field != funnel.FieldTempoEspiritual && field != funnel.FieldPerfilAmor {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation,
				"field must be tempo_espiritual or perfil_amor"))
			return
		}
		events, err := log.Query(ctx, eventlog.Filters{EventName: eventlog.EventQuizComplete})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, funnel.ComputeDistribution(events, field))
	}
}
