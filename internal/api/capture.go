package api

import (
	"log"
	"net/http"

	"github.com/projectlend/lend/internal/models"
	"github.com/projectlend/lend/internal/pipeline"
)

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": message})
}

// CaptureHandler classifies the latest frame on demand and logs the result,
// bypassing motion detection. One capture at a time: the guard is
// non-blocking, a concurrent request gets 409 instead of queueing behind a
// vision call.
func (app *App) CaptureHandler(w http.ResponseWriter, r *http.Request) {
	if app.Frames == nil || app.Classifier == nil {
		writeJSONError(w, http.StatusNotFound, "No camera attached")
		return
	}

	if !app.captureMu.TryLock() {
		writeJSONError(w, http.StatusConflict, "Capture already in progress")
		return
	}
	defer app.captureMu.Unlock()

	frame := app.Frames.Latest()
	if frame == nil || len(frame.Data) == 0 {
		writeJSONError(w, http.StatusNotFound, "No frame available")
		return
	}

	app.Status.Publish(pipeline.Snapshot{
		State:      "classifying",
		StatusText: "Classifying with Claude",
	})

	result, err := app.Classifier.ClassifyDetailed(r.Context(), frame.Data)
	if err != nil {
		log.Printf("Capture classification error: %v", err)
		app.Status.Publish(pipeline.Snapshot{
			State:      "watching",
			StatusText: "Classification failed",
		})
		writeJSONError(w, http.StatusInternalServerError, "Classification failed")
		return
	}

	imagePath, err := app.Images.SaveImage(frame.Data)
	if err != nil {
		log.Printf("[WARN] Failed to save capture image: %v", err)
	}

	var expiry *string
	if result.EstimatedExpiry != "" {
		expiry = &result.EstimatedExpiry
	}
	donation := models.NewDonation(string(result.Category), result.ItemName,
		result.EstimatedWeightLbs, expiry, imagePath)

	if err := app.Donations.Append(r.Context(), donation); err != nil {
		log.Printf("Failed to log captured donation: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to log donation")
		return
	}
	log.Printf("Captured donation #%d: %s (%s)", donation.ID, donation.ItemName, donation.Category)

	app.Status.Publish(pipeline.Snapshot{
		State:      "watching",
		StatusText: "Classified: " + donation.ItemName + " (" + donation.Category + ")",
		LastResult: &pipeline.LastResult{
			DonationID: donation.ID,
			Category:   donation.Category,
			ItemName:   donation.ItemName,
		},
	})

	writeJSON(w, donation)
}
