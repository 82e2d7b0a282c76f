package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leasewise/leasewise-backend/api/controllers"
	"github.com/leasewise/leasewise-backend/api/middleware"
	"github.com/leasewise/leasewise-backend/internal/preferences"
	"github.com/leasewise/leasewise-backend/internal/rollback"
	"github.com/leasewise/leasewise-backend/internal/schedules"
	"github.com/leasewise/leasewise-backend/pkg/config"
	"github.com/leasewise/leasewise-backend/pkg/db"
	"github.com/leasewise/leasewise-backend/pkg/logger"
	"github.com/leasewise/leasewise-backend/pkg/redis"
)

const testSendAction = "test_send"

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Schedules   schedules.Service
	Preferences preferences.Service
	Rollback    rollback.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// a nil *redis.Client must not reach the interfaces below as a typed nil
	var redisPinger controllers.Pinger
	var limiter func(http.Handler) http.Handler
	if redisClient != nil {
		redisPinger = redisClient
		limiter = middleware.OwnerRateLimit(middleware.RateLimitPolicy{
			Action: testSendAction,
			Window: cfg.RateLimit.TestSendWindow,
			Limit:  cfg.RateLimit.TestSendLimit,
		}, redisClient, logg)
	} else {
		limiter = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", controllers.ListSchedules(svc.Schedules, logg))
			r.Post("/", controllers.CreateSchedule(svc.Schedules, logg))
			r.Route("/{scheduleId}", func(r chi.Router) {
				r.Get("/", controllers.GetSchedule(svc.Schedules, logg))
				r.Patch("/", controllers.UpdateSchedule(svc.Schedules, logg))
				r.Delete("/", controllers.DeleteSchedule(svc.Schedules, logg))
				r.Post("/pause", controllers.PauseSchedule(svc.Schedules, logg))
				r.Post("/resume", controllers.ResumeSchedule(svc.Schedules, logg))
				r.With(limiter).Post("/test-send", controllers.TestSendSchedule(svc.Schedules, logg))
				r.Get("/deliveries", controllers.ListScheduleDeliveries(svc.Schedules, logg))
			})
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", controllers.GetPreferences(svc.Preferences, logg))
			r.Put("/", controllers.SavePreferences(svc.Preferences, logg))
			r.Get("/versions", controllers.ListPreferenceVersions(svc.Preferences, logg))
			r.Post("/versions/{versionId}/restore", controllers.RestorePreferenceVersion(svc.Preferences, logg))
			r.Get("/diff", controllers.DiffPreferenceVersions(svc.Preferences, logg))
		})

		r.Route("/rollback-suggestions", func(r chi.Router) {
			r.Get("/", controllers.ListRollbackSuggestions(svc.Rollback, logg))
			r.Post("/{suggestionId}/accept", controllers.AcceptRollbackSuggestion(svc.Rollback, logg))
			r.Post("/{suggestionId}/reject", controllers.RejectRollbackSuggestion(svc.Rollback, logg))
			r.Post("/{suggestionId}/apply", controllers.ApplyRollbackSuggestion(svc.Rollback, logg))
		})
	})

	return r
}
