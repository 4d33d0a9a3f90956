package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/ironsheep/mass-tools/internal/detection"
)

// CaseRecord identifies one case: a full image and its ordered masks.
type CaseRecord struct {
	UID           string   `json:"uid"`
	FullImagePath string   `json:"full_image_path"`
	MaskPaths     []string `json:"mask_paths"`
}

// MaskStatus is the outcome of one mask within a case.
type MaskStatus string

const (
	// MaskApplied means a region was drawn.
	MaskApplied MaskStatus = "applied"

	// MaskLoadFailed means the mask file was missing or undecodable.
	MaskLoadFailed MaskStatus = "load-failed"

	// MaskNormalizeFailed means the decoded mask could not be resized.
	MaskNormalizeFailed MaskStatus = "normalize-failed"

	// MaskNoRegion means the mask produced no acceptable region.
	MaskNoRegion MaskStatus = "no-region"
)

// MaskOutcome records what happened to one mask.
type MaskOutcome struct {
	Path   string            `json:"path"`
	Status MaskStatus        `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Region *detection.Region `json:"region,omitempty"`
}

// Result is the processing record for one case.
type Result struct {
	UID     string `json:"uid"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// OutputPath is set when the annotated image was written.
	OutputPath string `json:"output_path,omitempty"`

	// Masks holds one entry per mask path, in input order.
	Masks []MaskOutcome `json:"masks,omitempty"`

	Duration time.Duration `json:"duration_ns"`
}

// RegionsDrawn counts the masks that produced a drawn region.
func (r Result) RegionsDrawn() int {
	n := 0
	for _, m := range r.Masks {
		if m.Status == MaskApplied {
			n++
		}
	}
	return n
}

// Decoder reads an image from a path.
type Decoder interface {
	Decode(path string) (image.Image, error)
}

// Encoder writes an image to a path.
type Encoder interface {
	Encode(img image.Image, path string) error
}

// CaseSource supplies the cases of a batch run.
type CaseSource interface {
	Cases(ctx context.Context) ([]CaseRecord, error)
}

// StaticSource is a CaseSource over a fixed slice.
type StaticSource []CaseRecord

// Cases returns the slice.
func (s StaticSource) Cases(context.Context) ([]CaseRecord, error) {
	return s, nil
}
