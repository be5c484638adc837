package dashboard

import (
	"net/http"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/responses"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/validators"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/eventlog"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	pkgerrors "github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/errors"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

func queryFilters(r *http.Request) (eventlog.Filters, error) {
	start, err := validators.ParseQueryTime(r, "start")
	if err != nil {
		return eventlog.Filters{}, err
	}
	end, err := validators.ParseQueryTime(r, "end")
	if err != nil {
		return eventlog.Filters{}, err
	}
	return eventlog.Filters{
		Start:     start,
		End:       end,
		EventName: validators.SanitizeString(r.URL.Query().Get("event_name"), 100),
	}, nil
}

type eventsResponse struct {
	Events []eventlog.Event `json:"events"`
	Total  int              `json:"total"`
}

// Events lists logged events oldest first, optionally windowed by start,
// end and event_name.
func Events(log *eventlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		filters, err := queryFilters(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		events, qErr := log.Query(ctx, filters)
		if qErr != nil {
			responses.WriteError(ctx, logg, w, qErr)
			return
		}
		responses.WriteSuccess(w, eventsResponse{Events: events, Total: len(events)})
	}
}

type summaryResponse struct {
	EventName      string `json:"event_name"`
	Count          int    `json:"count"`
	UniqueSessions int    `json:"unique_sessions"`
}

// Summary reports total and distinct session counts for one event name.
func Summary(log *eventlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		filters, err := queryFilters(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if filters.EventName == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event_name is required"))
			return
		}
		name := filters.EventName
		filters.EventName = ""

		count, cErr := log.EventCount(ctx, name, filters)
		if cErr != nil {
			responses.WriteError(ctx, logg, w, cErr)
			return
		}
		sessions, sErr := log.UniqueSessionCount(ctx, name, filters)
		if sErr != nil {
			responses.WriteError(ctx, logg, w, sErr)
			return
		}
		responses.WriteSuccess(w, summaryResponse{EventName: name, Count: count, UniqueSessions: sessions})
	}
}

// ClearEvents wipes the event log. Disabled unless the deployment opts in.
func ClearEvents(cfg config.DashboardConfig, log *eventlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !cfg.AllowClearEvent {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "clearing events is disabled"))
			return
		}
		if err := log.Clear(ctx); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
