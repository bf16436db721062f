package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", app.DashboardHandler)
	r.Get("/ping", PingHandler)

	r.Get("/api/state", app.StateHandler)
	r.Get("/api/donations", app.ListDonationsHandler)
	r.Get("/api/donations/recent", app.RecentDonationsHandler)
	r.Get("/api/stats", app.StatsHandler)
	r.Get("/api/frame", app.FrameHandler)
	r.Get("/api/stream", app.StreamHandler)
	r.Post("/api/capture", app.CaptureHandler)

	r.Get("/api/shelters", app.ListSheltersHandler)
	r.Post("/api/shelters", app.AddShelterHandler)
	r.Put("/api/shelters/{id}/needs", app.UpdateShelterNeedsHandler)
	r.Delete("/api/shelters/{id}", app.RemoveShelterHandler)
	r.Post("/api/shelters/{id}/outreach", app.ShelterOutreachHandler)
	r.Get("/api/demand", app.ShelterDemandHandler)
	r.Get("/api/match", app.MatchHandler)

	r.Get("/images/{filename}", app.ImageHandler)

	return r
}
