package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/projectlend/lend/internal/camera"
	"github.com/projectlend/lend/internal/models"
	"github.com/projectlend/lend/internal/vision"
)

type fakeClassifier struct {
	mu      sync.Mutex
	calls   int
	release chan struct{} // when non-nil, calls block until closed
	result  *vision.Classification
	err     error
}

func (f *fakeClassifier) ClassifyDetailed(ctx context.Context, imageData []byte) (*vision.Classification, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func captureTestApp(t *testing.T) (*App, *fakeClassifier) {
	t.Helper()
	app, _ := setupTestApp(t)
	classifier := &fakeClassifier{result: &vision.Classification{
		Category: vision.CategoryFruit,
		ItemName: "Banana",
	}}
	app.Classifier = classifier
	app.Frames = &fakeFrames{
		frame:  &camera.Frame{Data: []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9}, Seq: 1},
		active: true,
	}
	return app, classifier
}

func TestCaptureHandlerLogsDonation(t *testing.T) {
	app, _ := captureTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/capture", nil)
	rec := httptest.NewRecorder()
	app.CaptureHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var donation models.Donation
	if err := json.NewDecoder(rec.Body).Decode(&donation); err != nil {
		t.Fatalf("failed to decode donation: %v", err)
	}
	if donation.ID == 0 {
		t.Error("expected an assigned donation id")
	}
	if donation.Category != "fruit" || donation.ItemName != "Banana" {
		t.Errorf("unexpected donation: %+v", donation)
	}

	all, err := app.Donations.ListAll(context.Background())
	if err != nil {
		t.Fatalf("failed to list donations: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(all))
	}

	snap := app.Status.Snapshot()
	if snap.LastResult == nil || snap.LastResult.DonationID != donation.ID {
		t.Errorf("expected published last result, got %+v", snap.LastResult)
	}
}

func TestCaptureHandlerBusyReturns409(t *testing.T) {
	app, classifier := captureTestApp(t)
	classifier.release = make(chan struct{})

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		req := httptest.NewRequest(http.MethodPost, "/api/capture", nil)
		app.CaptureHandler(httptest.NewRecorder(), req)
	}()

	// Wait for the first capture to take the guard.
	deadline := time.Now().Add(2 * time.Second)
	for {
		classifier.mu.Lock()
		started := classifier.calls > 0
		classifier.mu.Unlock()
		if started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for first capture to start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/capture", nil)
	rec := httptest.NewRecorder()
	app.CaptureHandler(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409 while capture in progress, got %d", rec.Code)
	}

	close(classifier.release)
	<-firstDone
}

func TestCaptureHandlerNoFrame(t *testing.T) {
	app, _ := captureTestApp(t)
	app.Frames = &fakeFrames{}

	req := httptest.NewRequest(http.MethodPost, "/api/capture", nil)
	rec := httptest.NewRecorder()
	app.CaptureHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 with no frame, got %d", rec.Code)
	}
}

func TestCaptureHandlerServeOnlyMode(t *testing.T) {
	app, _ := setupTestApp(t)
	app.Frames = nil

	req := httptest.NewRequest(http.MethodPost, "/api/capture", nil)
	rec := httptest.NewRecorder()
	app.CaptureHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 in serve-only mode, got %d", rec.Code)
	}
}

func TestCaptureHandlerClassificationFailure(t *testing.T) {
	app, classifier := captureTestApp(t)
	classifier.result = nil
	classifier.err = context.DeadlineExceeded

	req := httptest.NewRequest(http.MethodPost, "/api/capture", nil)
	rec := httptest.NewRecorder()
	app.CaptureHandler(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	all, err := app.Donations.ListAll(context.Background())
	if err != nil {
		t.Fatalf("failed to list donations: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no record on classification failure, got %d", len(all))
	}
}

// byteStorage serves images from memory; its handles are not *os.File.
type byteStorage struct {
	files map[string][]byte
}

type byteHandle struct {
	*bytes.Reader
}

func (byteHandle) Close() error { return nil }

func (s *byteStorage) SaveImage(data []byte) (string, error) {
	s.files["saved.jpg"] = data
	return "saved.jpg", nil
}

func (s *byteStorage) OpenFile(path string) (io.ReadSeekCloser, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return byteHandle{bytes.NewReader(data)}, nil
}

func (s *byteStorage) DeleteFile(path string) error { return nil }

func TestImageHandlerStorageWithoutStat(t *testing.T) {
	app, _ := setupTestApp(t)
	data := []byte{0xFF, 0xD8, 0xAB, 0xFF, 0xD9}
	app.Images = &byteStorage{files: map[string][]byte{"mem.jpg": data}}

	router := NewRouter(app)
	req := httptest.NewRequest(http.MethodGet, "/images/mem.jpg", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 from non-file storage, got %d", rec.Code)
	}
	if rec.Body.Len() != len(data) {
		t.Errorf("expected %d body bytes, got %d", len(data), rec.Body.Len())
	}
}
