package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/mass-tools/internal/detection"
	"github.com/ironsheep/mass-tools/internal/imaging"
)

// COCO is a COCO object-detection annotation document.
type COCO struct {
	Info        Info         `json:"info"`
	Licenses    []License    `json:"licenses"`
	Categories  []Category   `json:"categories"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
}

// Info describes the document.
type Info struct {
	Year        int    `json:"year"`
	Version     string `json:"version"`
	Description string `json:"description"`
	DateCreated string `json:"date_created"`
}

// License is a COCO license entry.
type License struct {
	URL  string `json:"url"`
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Category is a COCO category.
type Category struct {
	Supercategory string `json:"supercategory"`
	ID            int    `json:"id"`
	Name          string `json:"name"`
}

// Image is a COCO image entry.
type Image struct {
	ID           int    `json:"id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileName     string `json:"file_name"`
	License      int    `json:"license"`
	DateCaptured string `json:"date_captured"`
}

// Annotation is a COCO bounding-box annotation.
type Annotation struct {
	ID         int        `json:"id"`
	ImageID    int        `json:"image_id"`
	CategoryID int        `json:"category_id"`
	BBox       [4]float64 `json:"bbox"`
	Area       float64    `json:"area"`
	IsCrowd    int        `json:"iscrowd"`
}

// dateFormat is the COCO date layout.
const dateFormat = "2006-01-02"

// GenerateOptions configures GenerateCOCO.
type GenerateOptions struct {
	Boxes  detection.BoxParams
	Finder detection.ContourFinder

	Description string
	Version     string
	Category    string

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger defaults to the standard logger.
	Logger *log.Logger
}

// DefaultGenerateOptions returns the CBIS-DDSM bootstrap settings.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Boxes:       detection.DefaultBoxParams(),
		Description: "Generated COCO from CBIS-DDSM mammogram images",
		Version:     "1.0.1",
		Category:    "cancer",
	}
}

// GenerateCOCO proposes boxes for every *.png file in dir, in file name order.
//
// Image ids follow the position of the file in that order starting at 1, so
// an unreadable file leaves a gap; it is logged and skipped. Annotation ids
// are consecutive from 1. Every box is assigned category 0.
func GenerateCOCO(ctx context.Context, dir string, opts GenerateOptions) (*COCO, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Boxes == (detection.BoxParams{}) {
		opts.Boxes = detection.DefaultBoxParams()
	}

	paths, err := listPNGs(dir)
	if err != nil {
		return nil, err
	}

	now := opts.Now()
	doc := &COCO{
		Info: Info{
			Year:        now.Year(),
			Version:     opts.Version,
			Description: opts.Description,
			DateCreated: now.Format(dateFormat),
		},
		Licenses:    []License{{URL: "None", ID: 1, Name: "None"}},
		Categories:  []Category{{Supercategory: "none", ID: 0, Name: opts.Category}},
		Images:      make([]Image, 0, len(paths)),
		Annotations: make([]Annotation, 0),
	}

	annID := 1
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		gray, err := imaging.LoadGray(path)
		if err != nil {
			opts.Logger.Printf("Error processing %s: %v", path, err)
			continue
		}

		imageID := i + 1
		b := gray.Bounds()
		doc.Images = append(doc.Images, Image{
			ID:           imageID,
			Width:        b.Dx(),
			Height:       b.Dy(),
			FileName:     filepath.Base(path),
			License:      1,
			DateCaptured: opts.Now().Format(dateFormat),
		})

		for _, box := range detection.DetectBoxes(gray, opts.Boxes, opts.Finder) {
			w, h := box.Dx(), box.Dy()
			doc.Annotations = append(doc.Annotations, Annotation{
				ID:         annID,
				ImageID:    imageID,
				CategoryID: 0,
				BBox:       [4]float64{float64(box.Min.X), float64(box.Min.Y), float64(w), float64(h)},
				Area:       float64(w * h),
			})
			annID++
		}
	}

	return doc, nil
}

func listPNGs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// WriteCOCO writes doc as indented JSON, creating the parent directory.
func WriteCOCO(doc *COCO, path string) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding COCO: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadCOCO reads a COCO JSON file.
func ReadCOCO(path string) (*COCO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc COCO
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &doc, nil
}

// AnnotationsFor returns the annotations of one image in document order.
func (c *COCO) AnnotationsFor(imageID int) []Annotation {
	var out []Annotation
	for _, a := range c.Annotations {
		if a.ImageID == imageID {
			out = append(out, a)
		}
	}
	return out
}

// BoxStats summarizes annotation areas.
type BoxStats struct {
	Images      int     `json:"images"`
	Annotations int     `json:"annotations"`
	MeanArea    float64 `json:"mean_area"`
	StdDevArea  float64 `json:"std_dev_area"`
	PerImage    float64 `json:"per_image"`
}

// Stats returns BoxStats for the document.
func (c *COCO) Stats() BoxStats {
	s := BoxStats{Images: len(c.Images), Annotations: len(c.Annotations)}
	if len(c.Annotations) == 0 {
		return s
	}
	areas := make([]float64, len(c.Annotations))
	for i, a := range c.Annotations {
		areas[i] = a.Area
	}
	s.MeanArea, s.StdDevArea = stat.MeanStdDev(areas, nil)
	if len(areas) < 2 {
		s.StdDevArea = 0
	}
	if s.Images > 0 {
		s.PerImage = float64(s.Annotations) / float64(s.Images)
	}
	return s
}
