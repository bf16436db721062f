package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/projectlend/lend/internal/camera"
	"github.com/projectlend/lend/internal/database"
	"github.com/projectlend/lend/internal/models"
	"github.com/projectlend/lend/internal/pipeline"
	"github.com/projectlend/lend/internal/storage"
)

type fakeFrames struct {
	frame  *camera.Frame
	active bool
}

func (f *fakeFrames) Latest() *camera.Frame { return f.frame }
func (f *fakeFrames) Active() bool          { return f.active }

func setupTestApp(t *testing.T) (*App, *database.DonationRepository) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDB(database.Config{Path: dbPath})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	images, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}

	repo := database.NewDonationRepository(db)
	app := &App{
		Donations: repo,
		Shelters:  database.NewShelterRepository(db),
		Status:    pipeline.NewStatusPublisher(),
		Frames:    &fakeFrames{},
		Images:    images,
	}
	return app, repo
}

func appendTestDonation(t *testing.T, repo *database.DonationRepository, itemName, category string) *models.Donation {
	t.Helper()
	d := models.NewDonation(category, itemName, nil, nil, "test.jpg")
	if err := repo.Append(context.Background(), d); err != nil {
		t.Fatalf("failed to append donation: %v", err)
	}
	return d
}

func TestPingHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	PingHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "pong" {
		t.Errorf("expected body 'pong', got %q", rec.Body.String())
	}
}

func TestStateHandler(t *testing.T) {
	app, _ := setupTestApp(t)
	app.Status.Publish(pipeline.Snapshot{
		State:        "watching",
		StatusText:   "Watching for item",
		CameraActive: true,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	app.StateHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var snap pipeline.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.State != "watching" || !snap.CameraActive {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestStateHandlerBeforePipelineStarts(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	app.StateHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 before pipeline starts, got %d", rec.Code)
	}
	var snap pipeline.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.State != "idle" {
		t.Errorf("expected idle state, got %q", snap.State)
	}
}

func TestListDonationsHandler(t *testing.T) {
	app, repo := setupTestApp(t)
	appendTestDonation(t, repo, "Apple", "fruit")
	appendTestDonation(t, repo, "Chips", "snack")

	req := httptest.NewRequest(http.MethodGet, "/api/donations", nil)
	rec := httptest.NewRecorder()
	app.ListDonationsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var donations []*models.Donation
	if err := json.NewDecoder(rec.Body).Decode(&donations); err != nil {
		t.Fatalf("failed to decode donations: %v", err)
	}
	if len(donations) != 2 {
		t.Fatalf("expected 2 donations, got %d", len(donations))
	}
	if donations[0].ItemName != "Apple" || donations[1].ItemName != "Chips" {
		t.Errorf("expected log order, got %q then %q", donations[0].ItemName, donations[1].ItemName)
	}
}

func TestRecentDonationsHandlerLimit(t *testing.T) {
	app, repo := setupTestApp(t)
	for _, name := range []string{"Apple", "Chips", "Soda"} {
		appendTestDonation(t, repo, name, "snack")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/donations/recent?limit=2", nil)
	rec := httptest.NewRecorder()
	app.RecentDonationsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var donations []*models.Donation
	if err := json.NewDecoder(rec.Body).Decode(&donations); err != nil {
		t.Fatalf("failed to decode donations: %v", err)
	}
	if len(donations) != 2 {
		t.Fatalf("expected 2 donations, got %d", len(donations))
	}
	if donations[0].ItemName != "Chips" || donations[1].ItemName != "Soda" {
		t.Errorf("expected last two oldest-first, got %q then %q", donations[0].ItemName, donations[1].ItemName)
	}
}

func TestRecentDonationsHandlerInvalidLimit(t *testing.T) {
	app, _ := setupTestApp(t)

	for _, raw := range []string{"abc", "-1", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/api/donations/recent?limit="+raw, nil)
		rec := httptest.NewRecorder()
		app.RecentDonationsHandler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected status 400, got %d", raw, rec.Code)
		}
	}
}

func TestStatsHandler(t *testing.T) {
	app, repo := setupTestApp(t)
	appendTestDonation(t, repo, "Apple", "fruit")
	appendTestDonation(t, repo, "Banana", "fruit")
	appendTestDonation(t, repo, "Soda", "drink")

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	app.StatsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var stats models.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.TotalItems != 3 {
		t.Errorf("expected 3 total items, got %d", stats.TotalItems)
	}
	if stats.ByCategory["fruit"] != 2 || stats.ByCategory["drink"] != 1 {
		t.Errorf("unexpected category counts: %v", stats.ByCategory)
	}
}

func TestFrameHandler(t *testing.T) {
	app, _ := setupTestApp(t)
	frameData := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	app.Frames = &fakeFrames{frame: &camera.Frame{Data: frameData, Seq: 1}, active: true}

	req := httptest.NewRequest(http.MethodGet, "/api/frame", nil)
	rec := httptest.NewRecorder()
	app.FrameHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
	if rec.Body.Len() != len(frameData) {
		t.Errorf("expected %d body bytes, got %d", len(frameData), rec.Body.Len())
	}
}

func TestFrameHandlerNoFrame(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/frame", nil)
	rec := httptest.NewRecorder()
	app.FrameHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 with no frame, got %d", rec.Code)
	}
}

func TestFrameHandlerNoCamera(t *testing.T) {
	app, _ := setupTestApp(t)
	app.Frames = nil

	req := httptest.NewRequest(http.MethodGet, "/api/frame", nil)
	rec := httptest.NewRecorder()
	app.FrameHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 in serve-only mode, got %d", rec.Code)
	}
}

func TestImageHandlerServesSavedImage(t *testing.T) {
	app, _ := setupTestApp(t)
	data := []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9}
	filename, err := app.Images.SaveImage(data)
	if err != nil {
		t.Fatalf("failed to save image: %v", err)
	}

	router := NewRouter(app)
	req := httptest.NewRequest(http.MethodGet, "/images/"+filename, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.Len() != len(data) {
		t.Errorf("expected %d body bytes, got %d", len(data), rec.Body.Len())
	}
}

func TestImageHandlerMissingFile(t *testing.T) {
	app, _ := setupTestApp(t)

	router := NewRouter(app)
	req := httptest.NewRequest(http.MethodGet, "/images/nope.jpg", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for missing image, got %d", rec.Code)
	}
}

func TestRouterWiresEndpoints(t *testing.T) {
	app, repo := setupTestApp(t)
	appendTestDonation(t, repo, "Apple", "fruit")
	router := NewRouter(app)

	for _, path := range []string{"/", "/ping", "/api/state", "/api/donations", "/api/donations/recent", "/api/stats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected status 200, got %d", path, rec.Code)
		}
	}
}
