package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"nutritrack.io/nutritrack/internal/config"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Group(func(r chi.Router) {
			// Open access unless a signing secret is configured.
			if config.AppConfig.JWTSecret != "" {
				r.Use(apiHandler.OwnerAuthMiddleware)
			}

			r.Get("/profile", apiHandler.ProfileHandler)

			r.Get("/days/{date}", apiHandler.DayHandler)
			r.Get("/weeks/{date}", apiHandler.WeekHandler)
			r.Get("/months/{month}", apiHandler.MonthHandler)

			r.Post("/days/{date}/meals", apiHandler.LogMealHandler)
			r.Post("/days/{date}/meals/photo", apiHandler.LogMealPhotoHandler)
			r.Post("/days/{date}/workouts", apiHandler.LogWorkoutHandler)
			r.Delete("/meals/{id}", apiHandler.DeleteMealHandler)
			r.Delete("/workouts/{id}", apiHandler.DeleteWorkoutHandler)

			r.Get("/days/{date}/insight", apiHandler.InsightHandler)
			r.Get("/days/{date}/advice", apiHandler.AdviceHandler)
		})
	})

	return r
}
