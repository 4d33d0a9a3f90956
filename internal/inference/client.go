package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultConfidence is the minimum confidence a detection must reach to be kept.
const DefaultConfidence = 0.5

// ImageExtensions lists the file types DetectFolder picks up.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
}

// Detection is one box returned by the inference service.
type Detection struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// ImageReport is the triaged detection result for one image.
type ImageReport struct {
	Image      string      `json:"image"`
	Detections []Detection `json:"detections"`
	HighCount  int         `json:"high_confidence"`
	Priority   Priority    `json:"priority"`
}

// FolderReport aggregates ImageReports for a folder.
type FolderReport struct {
	Images          []ImageReport `json:"images"`
	TotalDetections int           `json:"total_detections"`
	TotalHigh       int           `json:"total_high_confidence"`
	Failed          []string      `json:"failed,omitempty"`
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// InferenceURL receives the multipart upload.
	InferenceURL string

	// HealthURL is probed by Health. Empty derives <scheme>://<host>/health
	// from InferenceURL.
	HealthURL string

	Confidence     float64
	HighConfidence float64

	// Timeout bounds one request. Zero means no limit.
	Timeout time.Duration
}

// Client calls the external mass detector.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient creates a Client. Zero thresholds select the defaults.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.InferenceURL == "" {
		return nil, fmt.Errorf("inference URL is required")
	}
	u, err := url.Parse(cfg.InferenceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid inference URL %q", cfg.InferenceURL)
	}
	if cfg.HealthURL == "" {
		cfg.HealthURL = (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/health"}).String()
	}
	if cfg.Confidence == 0 {
		cfg.Confidence = DefaultConfidence
	}
	if cfg.HighConfidence == 0 {
		cfg.HighConfidence = DefaultHighConfidence
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Predict uploads imageData as the multipart field "file" and returns every
// detection the service reports, unfiltered.
func (c *Client) Predict(ctx context.Context, filename string, imageData []byte) ([]Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(imageData)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.InferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrService, resp.StatusCode)
	}

	var result struct {
		Detections []Detection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Detections, nil
}

// Detect reads the image at path, runs Predict, drops detections below the
// confidence threshold and triages the rest.
func (c *Client) Detect(ctx context.Context, path string) (*ImageReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	all, err := c.Predict(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, err
	}

	kept := make([]Detection, 0, len(all))
	for _, d := range all {
		if d.Confidence >= c.cfg.Confidence {
			kept = append(kept, d)
		}
	}

	priority, high := Triage(kept, c.cfg.HighConfidence)
	return &ImageReport{
		Image:      path,
		Detections: kept,
		HighCount:  high,
		Priority:   priority,
	}, nil
}

// DetectFolder runs Detect on every supported image directly inside dir, in
// file name order. A failing image is recorded in Failed and does not stop
// the folder.
func (c *Client) DetectFolder(ctx context.Context, dir string) (*FolderReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !ImageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	sort.Strings(paths)

	report := &FolderReport{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r, err := c.Detect(ctx, p)
		if err != nil {
			report.Failed = append(report.Failed, p)
			continue
		}
		report.Images = append(report.Images, *r)
		report.TotalDetections += len(r.Detections)
		report.TotalHigh += r.HighCount
	}
	return report, nil
}

// Health checks that the inference service is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.HealthURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ml service unhealthy: %d", ErrService, resp.StatusCode)
	}
	return nil
}
