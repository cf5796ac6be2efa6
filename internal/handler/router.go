package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carewell/medibot/internal/handler/appointment"
	middlewarePkg "github.com/carewell/medibot/internal/middleware"
	calendarService "github.com/carewell/medibot/internal/service/calendar"
	"github.com/carewell/medibot/pkg/utils"
)

// NewRouter wires HTTP routes to the appointment store.
func NewRouter(store *calendarService.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	appointmentHandler := appointment.New(store)

	r.Route("/api", func(api chi.Router) {
		appointmentHandler.RegisterRoutes(api)

		api.Get("/health/", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{
				"status":    "healthy",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		})
	})

	return r
}
