package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/projectlend/lend/internal/database"
	"github.com/projectlend/lend/internal/outreach"
	"github.com/projectlend/lend/internal/pipeline"
	"github.com/projectlend/lend/internal/storage"
	"github.com/projectlend/lend/internal/vision"
)

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// App serves the donation log, the published status snapshot, the live
// camera frames, and on-demand capture. Frames and Classifier are nil in
// serve-only mode; the camera-backed endpoints then report no camera.
type App struct {
	Donations  *database.DonationRepository
	Shelters   *database.ShelterRepository
	Status     *pipeline.StatusPublisher
	Frames     pipeline.FrameProvider
	Images     storage.Storage
	Classifier vision.Classifier
	Outreach   *outreach.Mailer

	captureMu sync.Mutex
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// StateHandler never errors: with the camera offline the snapshot itself
// carries the degraded indicators.
func (app *App) StateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, app.Status.Snapshot())
}

func (app *App) ListDonationsHandler(w http.ResponseWriter, r *http.Request) {
	donations, err := app.Donations.ListAll(r.Context())
	if err != nil {
		log.Printf("Failed to list donations: %v", err)
		http.Error(w, "Error loading donations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, donations)
}

func (app *App) RecentDonationsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	donations, err := app.Donations.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to list recent donations: %v", err)
		http.Error(w, "Error loading donations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, donations)
}

func (app *App) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := app.Donations.Stats(r.Context())
	if err != nil {
		log.Printf("Failed to compute stats: %v", err)
		http.Error(w, "Error computing stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (app *App) FrameHandler(w http.ResponseWriter, r *http.Request) {
	if app.Frames == nil {
		http.Error(w, "No camera attached", http.StatusNotFound)
		return
	}
	frame := app.Frames.Latest()
	if frame == nil || len(frame.Data) == 0 {
		http.Error(w, "No frame available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame.Data)))
	w.Write(frame.Data)
}

// StreamHandler serves MJPEG over multipart/x-mixed-replace. It reads the
// frame slot on its own cadence, independent of the pipeline tick, and only
// emits a part when a new frame has landed.
func (app *App) StreamHandler(w http.ResponseWriter, r *http.Request) {
	if app.Frames == nil {
		http.Error(w, "No camera attached", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			frame := app.Frames.Latest()
			if frame == nil || frame.Seq == lastSeq {
				continue
			}
			lastSeq = frame.Seq

			_, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame.Data))
			if err != nil {
				return
			}
			if _, err := w.Write(frame.Data); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (app *App) ImageHandler(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" {
		http.NotFound(w, r)
		return
	}

	file, err := app.Images.OpenFile(filename)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	// Not every Storage hands back an *os.File; without a mod time,
	// ServeContent just skips If-Modified-Since handling.
	var modTime time.Time
	if statter, ok := file.(interface{ Stat() (os.FileInfo, error) }); ok {
		if stat, err := statter.Stat(); err == nil {
			modTime = stat.ModTime()
		}
	}

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeContent(w, r, filename, modTime, file)
}
