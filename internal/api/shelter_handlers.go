package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/projectlend/lend/internal/models"
	"github.com/projectlend/lend/internal/vision"
)

func shelterID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func validCategories(categories []string) bool {
	for _, c := range categories {
		if !vision.Category(c).Valid() {
			return false
		}
	}
	return true
}

func (app *App) ListSheltersHandler(w http.ResponseWriter, r *http.Request) {
	shelters, err := app.Shelters.ListAll(r.Context())
	if err != nil {
		log.Printf("Failed to list shelters: %v", err)
		http.Error(w, "Error loading shelters", http.StatusInternalServerError)
		return
	}
	if shelters == nil {
		shelters = []*models.Shelter{}
	}
	writeJSON(w, shelters)
}

func (app *App) AddShelterHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name             string   `json:"name"`
		Email            string   `json:"email"`
		CategoriesNeeded []string `json:"categories_needed"`
		Notes            string   `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Name == "" || body.Email == "" {
		writeJSONError(w, http.StatusBadRequest, "Name and email are required")
		return
	}
	if !validCategories(body.CategoriesNeeded) {
		writeJSONError(w, http.StatusBadRequest, "Unknown donation category")
		return
	}

	shelter := models.NewShelter(body.Name, body.Email, body.CategoriesNeeded, body.Notes)
	if err := app.Shelters.Add(r.Context(), shelter); err != nil {
		log.Printf("Failed to add shelter: %v", err)
		http.Error(w, "Error saving shelter", http.StatusInternalServerError)
		return
	}
	log.Printf("Registered shelter #%d: %s", shelter.ID, shelter.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, shelter)
}

func (app *App) UpdateShelterNeedsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := shelterID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid shelter id")
		return
	}

	var body struct {
		CategoriesNeeded []string `json:"categories_needed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validCategories(body.CategoriesNeeded) {
		writeJSONError(w, http.StatusBadRequest, "Unknown donation category")
		return
	}

	if err := app.Shelters.UpdateNeeds(r.Context(), id, body.CategoriesNeeded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "Shelter not found")
			return
		}
		log.Printf("Failed to update shelter needs: %v", err)
		http.Error(w, "Error updating shelter", http.StatusInternalServerError)
		return
	}

	shelter, err := app.Shelters.Get(r.Context(), id)
	if err != nil {
		log.Printf("Failed to reload shelter: %v", err)
		http.Error(w, "Error loading shelter", http.StatusInternalServerError)
		return
	}
	writeJSON(w, shelter)
}

func (app *App) RemoveShelterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := shelterID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid shelter id")
		return
	}

	if err := app.Shelters.Remove(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "Shelter not found")
			return
		}
		log.Printf("Failed to remove shelter: %v", err)
		http.Error(w, "Error removing shelter", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) ShelterDemandHandler(w http.ResponseWriter, r *http.Request) {
	demand, err := app.Shelters.DemandSummary(r.Context())
	if err != nil {
		log.Printf("Failed to aggregate demand: %v", err)
		http.Error(w, "Error computing demand", http.StatusInternalServerError)
		return
	}
	writeJSON(w, demand)
}

// MatchHandler lines up the donation inventory against shelter demand, one
// row per category seen on either side.
func (app *App) MatchHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := app.Donations.Stats(r.Context())
	if err != nil {
		log.Printf("Failed to compute stats: %v", err)
		http.Error(w, "Error computing match", http.StatusInternalServerError)
		return
	}
	demand, err := app.Shelters.DemandSummary(r.Context())
	if err != nil {
		log.Printf("Failed to aggregate demand: %v", err)
		http.Error(w, "Error computing match", http.StatusInternalServerError)
		return
	}

	categories := make(map[string]bool)
	for c := range stats.ByCategory {
		categories[c] = true
	}
	for c := range demand {
		categories[c] = true
	}

	matches := make([]models.CategoryMatch, 0, len(categories))
	for c := range categories {
		matches = append(matches, models.CategoryMatch{
			Category: c,
			Supply:   stats.ByCategory[c],
			Demand:   demand[c],
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Category < matches[j].Category })
	writeJSON(w, matches)
}

func (app *App) ShelterOutreachHandler(w http.ResponseWriter, r *http.Request) {
	id, err := shelterID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid shelter id")
		return
	}
	if app.Outreach == nil || !app.Outreach.Configured() {
		writeJSONError(w, http.StatusServiceUnavailable, "Email outreach not configured")
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	shelter, err := app.Shelters.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "Shelter not found")
			return
		}
		log.Printf("Failed to load shelter: %v", err)
		http.Error(w, "Error loading shelter", http.StatusInternalServerError)
		return
	}

	if err := app.Outreach.SendOutreach(shelter.Name, shelter.Email, body.Message); err != nil {
		log.Printf("Outreach to shelter #%d failed: %v", id, err)
		writeJSONError(w, http.StatusBadGateway, "Failed to send outreach email")
		return
	}
	if err := app.Shelters.MarkContacted(r.Context(), id, time.Now().UTC()); err != nil {
		log.Printf("[WARN] Failed to stamp last_contacted for shelter #%d: %v", id, err)
	}
	log.Printf("Outreach sent to shelter #%d (%s)", id, shelter.Email)

	writeJSON(w, map[string]string{"status": "sent", "to": shelter.Email, "shelter": shelter.Name})
}
