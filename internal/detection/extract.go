package detection

import (
	"image"

	"github.com/ironsheep/mass-tools/internal/imaging"
)

// DefaultMinArea is the smallest contour area, in square pixels, accepted as
// a region.
const DefaultMinArea = 100

// Reason explains why a mask produced no region.
type Reason string

const (
	// ReasonAccepted means a region was produced.
	ReasonAccepted Reason = ""

	// ReasonEmpty means the mask has no foreground pixels.
	ReasonEmpty Reason = "empty"

	// ReasonNoContours means the contour finder reported nothing.
	ReasonNoContours Reason = "no-contours"

	// ReasonTooSmall means the dominant contour is below the area threshold.
	ReasonTooSmall Reason = "too-small"
)

// Region is the bounding box of the dominant foreground region of a mask.
type Region struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Area   float64 `json:"area"`
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Extraction is the full outcome of running an Extractor on one mask.
type Extraction struct {
	// Region is nil unless Reason is ReasonAccepted.
	Region *Region `json:"region,omitempty"`

	// Reason explains a rejection.
	Reason Reason `json:"reason,omitempty"`

	// Foreground is the number of non-zero pixels after thresholding.
	Foreground int `json:"foreground"`

	// Contours is the number of external contours found.
	Contours int `json:"contours"`

	// LargestArea is the area of the dominant contour, 0 if none.
	LargestArea float64 `json:"largest_area"`
}

// Extractor reduces a grayscale mask to the bounding box of its largest
// external contour.
type Extractor struct {
	finder  ContourFinder
	minArea float64
}

// NewExtractor creates an Extractor. A nil finder selects DefaultFinder.
func NewExtractor(finder ContourFinder, minArea float64) *Extractor {
	if finder == nil {
		finder = DefaultFinder()
	}
	return &Extractor{finder: finder, minArea: minArea}
}

// MinArea returns the configured area threshold.
func (e *Extractor) MinArea() float64 {
	return e.minArea
}

// Extract thresholds mask at level 1 and returns the bounding box of the
// dominant contour.
//
// A mask is rejected when it has no foreground pixels, when no contours are
// found, or when the largest contour's area is below the threshold. The
// returned box always lies within the mask bounds. Extract does not modify
// mask.
func (e *Extractor) Extract(mask *image.Gray) Extraction {
	bin := imaging.Binarize(mask)

	var out Extraction
	out.Foreground = imaging.CountNonZero(bin)
	if out.Foreground == 0 {
		out.Reason = ReasonEmpty
		return out
	}

	contours := e.finder.FindExternal(bin)
	out.Contours = len(contours)
	if len(contours) == 0 {
		out.Reason = ReasonNoContours
		return out
	}

	best := contours[Largest(contours)]
	out.LargestArea = best.Area
	if best.Area < e.minArea {
		out.Reason = ReasonTooSmall
		return out
	}

	box := best.Bounds.Intersect(bin.Bounds())
	if box.Empty() {
		out.Reason = ReasonNoContours
		return out
	}

	mb := mask.Bounds().Min
	out.Region = &Region{
		X:      box.Min.X + mb.X,
		Y:      box.Min.Y + mb.Y,
		Width:  box.Dx(),
		Height: box.Dy(),
		Area:   best.Area,
	}
	return out
}

// ExtractRegion is a convenience wrapper using the default contour backend.
// It returns nil when the mask yields no acceptable region.
func ExtractRegion(mask *image.Gray, minArea float64) *Region {
	return NewExtractor(nil, minArea).Extract(mask).Region
}
