package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/controllers"
	dashboardcontrollers "github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/controllers/dashboard"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/controllers/webhooks"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/middleware"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/eventlog"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/tracking"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/db"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	trackingService *tracking.Service,
	logService *eventlog.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/track", func(r chi.Router) {
		r.Post("/capture", controllers.TrackCapture(trackingService, logg))
		r.Post("/page-view", controllers.TrackPageView(trackingService, logg))
		r.Post("/view-content", controllers.TrackViewContent(trackingService, logg))
		r.Post("/lead", controllers.TrackLead(trackingService, logg))
		r.Post("/initiate-checkout", controllers.TrackInitiateCheckout(trackingService, logg))
		r.Post("/purchase", controllers.TrackPurchase(trackingService, logg))
		r.Post("/quiz/start", controllers.TrackQuizStart(trackingService, logg))
		r.Post("/quiz/step", controllers.TrackQuizStep(trackingService, logg))
		r.Post("/quiz/complete", controllers.TrackQuizComplete(trackingService, logg))
		r.Post("/user-data", controllers.TrackUserData(trackingService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/attribution", controllers.Attribution(trackingService))
		r.Get("/consent", controllers.ConsentState(trackingService))
		r.Post("/consent", controllers.SetConsent(trackingService, logg))
		r.Get("/checkout-url", controllers.CheckoutURL(trackingService, logg))
		r.Post("/timer/start", controllers.TimerStart(trackingService))
		r.Get("/timer", controllers.TimerRemaining(trackingService))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		forwarder := webhooks.NewMetaCAPIForwarder(cfg.Pixel, logg)
		r.Post("/meta-capi", forwarder.Handle())
	})

	r.Route("/api/v1/dashboard", func(r chi.Router) {
		r.Post("/login", dashboardcontrollers.Login(cfg.Dashboard, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.DashboardAuth(cfg.Dashboard, logg))
			r.Get("/funnel", dashboardcontrollers.Funnel(logService, logg))
			r.Get("/daily-metrics", dashboardcontrollers.DailyMetrics(logService, logg))
			r.Get("/distribution", dashboardcontrollers.Distribution(logService, logg))
			r.Get("/events", dashboardcontrollers.Events(logService, logg))
			r.Get("/events/summary", dashboardcontrollers.Summary(logService, logg))
			r.Delete("/events", dashboardcontrollers.ClearEvents(cfg.Dashboard, logService, logg))
		})
	})

	return r
}
