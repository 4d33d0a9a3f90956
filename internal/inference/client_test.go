package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// newDetectorServer serves the detections in byName for the uploaded file
// name and answers /health with 200.
func newDetectorServer(t *testing.T, byName map[string][]Detection) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if data, _ := io.ReadAll(file); len(data) == 0 {
			http.Error(w, "empty upload", http.StatusBadRequest)
			return
		}
		dets, ok := byName[header.Filename]
		if !ok {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"detections": dets})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake image bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewClient(ClientConfig{InferenceURL: "not a url"}); err == nil {
		t.Error("expected error for relative URL")
	}

	c, err := NewClient(ClientConfig{InferenceURL: "http://detector:5000/predict"})
	if err != nil {
		t.Fatal(err)
	}
	if c.cfg.HealthURL != "http://detector:5000/health" {
		t.Errorf("health URL: got %q", c.cfg.HealthURL)
	}
	if c.cfg.Confidence != 0.5 || c.cfg.HighConfidence != 0.64 {
		t.Errorf("defaults: %+v", c.cfg)
	}
}

func TestDetect(t *testing.T) {
	srv := newDetectorServer(t, map[string][]Detection{
		"high.png": {
			{X: 1, Y: 2, Width: 30, Height: 40, Class: "mass", Confidence: 0.91},
			{X: 5, Y: 5, Width: 10, Height: 10, Class: "mass", Confidence: 0.3},
		},
		"medium.png": {{Class: "mass", Confidence: 0.55}},
		"low.png":    {},
	})
	c, err := NewClient(ClientConfig{InferenceURL: srv.URL + "/predict"})
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	tests := []struct {
		name     string
		priority Priority
		kept     int
		high     int
	}{
		{"high.png", PriorityHigh, 1, 1},
		{"medium.png", PriorityMedium, 1, 0},
		{"low.png", PriorityLow, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := c.Detect(context.Background(), writeFile(t, dir, tt.name))
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if r.Priority != tt.priority || len(r.Detections) != tt.kept || r.HighCount != tt.high {
				t.Errorf("got priority %s kept %d high %d", r.Priority, len(r.Detections), r.HighCount)
			}
		})
	}
}

func TestDetect_ServiceError(t *testing.T) {
	srv := newDetectorServer(t, nil)
	c, _ := NewClient(ClientConfig{InferenceURL: srv.URL + "/predict"})

	_, err := c.Detect(context.Background(), writeFile(t, t.TempDir(), "x.png"))
	if !errors.Is(err, ErrService) {
		t.Errorf("expected ErrService, got %v", err)
	}
}

func TestDetectFolder(t *testing.T) {
	srv := newDetectorServer(t, map[string][]Detection{
		"a.png":  {{Confidence: 0.7}, {Confidence: 0.6}},
		"b.JPG":  {{Confidence: 0.52}},
		"c.tiff": {},
	})
	c, _ := NewClient(ClientConfig{InferenceURL: srv.URL + "/predict"})

	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.JPG", "c.tiff", "d.bmp", "notes.txt"} {
		writeFile(t, dir, name)
	}

	report, err := c.DetectFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("DetectFolder: %v", err)
	}
	if len(report.Images) != 3 {
		t.Errorf("images: got %d, want 3", len(report.Images))
	}
	if report.TotalDetections != 3 || report.TotalHigh != 1 {
		t.Errorf("totals: detections %d high %d", report.TotalDetections, report.TotalHigh)
	}
	if len(report.Failed) != 1 || filepath.Base(report.Failed[0]) != "d.bmp" {
		t.Errorf("failed: %v", report.Failed)
	}
}

func TestDetectFolder_NoImages(t *testing.T) {
	c, _ := NewClient(ClientConfig{InferenceURL: "http://localhost/predict"})
	if _, err := c.DetectFolder(context.Background(), t.TempDir()); !errors.Is(err, ErrNoImages) {
		t.Errorf("expected ErrNoImages, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := newDetectorServer(t, nil)
	c, _ := NewClient(ClientConfig{InferenceURL: srv.URL + "/predict"})
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}

	bad, _ := NewClient(ClientConfig{InferenceURL: srv.URL + "/predict", HealthURL: srv.URL + "/missing"})
	if err := bad.Health(context.Background()); !errors.Is(err, ErrService) {
		t.Errorf("expected ErrService, got %v", err)
	}
}
