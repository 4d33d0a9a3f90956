package detection

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/ironsheep/mass-tools/internal/imaging"
)

// stubFinder returns a fixed contour list.
type stubFinder struct {
	contours []Contour
}

func (s stubFinder) FindExternal(*image.Gray) []Contour {
	return s.contours
}

func TestExtract_EmptyMask(t *testing.T) {
	mask := createBinaryImage(64, 64)

	got := NewExtractor(nil, DefaultMinArea).Extract(mask)
	if got.Region != nil {
		t.Errorf("empty mask produced region %+v", got.Region)
	}
	if got.Reason != ReasonEmpty {
		t.Errorf("reason: got %q, want %q", got.Reason, ReasonEmpty)
	}
}

func TestExtract_TooSmall(t *testing.T) {
	mask := createBinaryImage(64, 64, image.Rect(10, 10, 15, 15))

	got := NewExtractor(nil, DefaultMinArea).Extract(mask)
	if got.Region != nil || got.Reason != ReasonTooSmall {
		t.Errorf("got %+v, want too-small rejection", got)
	}
	if got.LargestArea != 25 {
		t.Errorf("LargestArea: got %v, want 25", got.LargestArea)
	}
}

func TestExtract_HollowOutlineAccepted(t *testing.T) {
	// 76 outline pixels enclose a 20x20 square
	mask := createOutline(50, 50, image.Rect(15, 15, 35, 35))

	got := NewExtractor(ComponentFinder{}, DefaultMinArea).Extract(mask)
	if got.Region == nil {
		t.Fatalf("outline rejected: reason %q, largest area %v", got.Reason, got.LargestArea)
	}
	if got.Region.Rect() != image.Rect(15, 15, 35, 35) {
		t.Errorf("region: got %+v", got.Region)
	}
	if got.LargestArea != 400 {
		t.Errorf("LargestArea: got %v, want 400", got.LargestArea)
	}
}

func TestExtract_NoContours(t *testing.T) {
	mask := createBinaryImage(20, 20, image.Rect(0, 0, 5, 5))

	got := NewExtractor(stubFinder{}, DefaultMinArea).Extract(mask)
	if got.Region != nil || got.Reason != ReasonNoContours {
		t.Errorf("got %+v, want no-contours rejection", got)
	}
	if got.Foreground != 25 {
		t.Errorf("Foreground: got %d, want 25", got.Foreground)
	}
}

func TestExtract_PicksLargestRegion(t *testing.T) {
	mask := createBinaryImage(200, 200,
		image.Rect(5, 5, 25, 25),     // 400
		image.Rect(100, 80, 160, 140), // 3600
		image.Rect(170, 10, 190, 30),  // 400
	)

	got := NewExtractor(nil, DefaultMinArea).Extract(mask)
	if got.Region == nil {
		t.Fatalf("no region: %+v", got)
	}
	want := Region{X: 100, Y: 80, Width: 60, Height: 60, Area: 3600}
	if *got.Region != want {
		t.Errorf("got %+v, want %+v", *got.Region, want)
	}
	if got.Contours != 3 {
		t.Errorf("Contours: got %d, want 3", got.Contours)
	}
}

func TestExtract_AnyNonZeroIsForeground(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 50, 50))
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			mask.SetGray(x, y, color.Gray{Y: 1})
		}
	}

	r := ExtractRegion(mask, DefaultMinArea)
	if r == nil {
		t.Fatal("faint mask should still produce a region")
	}
	if r.Rect() != image.Rect(10, 10, 30, 30) {
		t.Errorf("got %v", r.Rect())
	}
}

func TestExtract_ClipsOutOfBoundsContours(t *testing.T) {
	mask := createBinaryImage(50, 40, image.Rect(0, 0, 50, 40))
	finder := stubFinder{contours: []Contour{{Bounds: image.Rect(-5, -5, 70, 70), Area: 5000}}}

	got := NewExtractor(finder, DefaultMinArea).Extract(mask)
	if got.Region == nil || got.Region.Rect() != image.Rect(0, 0, 50, 40) {
		t.Errorf("got %+v, want box clipped to mask bounds", got.Region)
	}
}

func TestExtract_ConfigurableThreshold(t *testing.T) {
	mask := createBinaryImage(64, 64, image.Rect(10, 10, 15, 15))

	if r := ExtractRegion(mask, 10); r == nil {
		t.Error("25 px region should pass a 10 px threshold")
	}
	if r := ExtractRegion(mask, 26); r != nil {
		t.Error("25 px region should fail a 26 px threshold")
	}
}

func TestExtract_BoxWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	extractor := NewExtractor(nil, DefaultMinArea)

	for i := 0; i < 50; i++ {
		w, h := 20+rng.Intn(100), 20+rng.Intn(100)
		mask := image.NewGray(image.Rect(0, 0, w, h))
		for j := range mask.Pix {
			if rng.Intn(3) == 0 {
				mask.Pix[j] = uint8(1 + rng.Intn(255))
			}
		}

		got := extractor.Extract(mask)
		if got.Region == nil {
			continue
		}
		r := got.Region
		if r.X < 0 || r.Y < 0 || r.X+r.Width > w || r.Y+r.Height > h {
			t.Fatalf("mask %dx%d: region %+v outside bounds", w, h, *r)
		}
		if r.Area < DefaultMinArea {
			t.Fatalf("region area %v below threshold", r.Area)
		}
	}
}

func TestExtract_DoesNotModifyMask(t *testing.T) {
	mask := createBinaryImage(30, 30, image.Rect(5, 5, 25, 25))
	mask.SetGray(6, 6, color.Gray{Y: 3})
	before := append([]uint8(nil), mask.Pix...)

	NewExtractor(nil, DefaultMinArea).Extract(mask)

	for i := range before {
		if before[i] != mask.Pix[i] {
			t.Fatal("Extract modified its input")
		}
	}
}

func TestExtract_ScaledMaskScenario(t *testing.T) {
	// 400x300 mask with a 100x100 square, normalized onto an 800x600 image
	mask := createBinaryImage(400, 300, image.Rect(50, 50, 150, 150))

	normalized, err := imaging.NormalizeMask(mask, 800, 600)
	if err != nil {
		t.Fatalf("NormalizeMask failed: %v", err)
	}

	r := ExtractRegion(normalized, DefaultMinArea)
	if r == nil {
		t.Fatal("expected a region")
	}

	if abs(r.X-100) > 1 || abs(r.Y-100) > 1 || abs(r.Width-200) > 1 || abs(r.Height-200) > 1 {
		t.Errorf("box: got %+v, want ~(100,100,200,200)", *r)
	}

	maskArea := 100.0 * 100.0
	ratio := float64(r.Width*r.Height) / maskArea
	if ratio < 3.9 || ratio > 4.1 {
		t.Errorf("box area ratio: got %.3f, want ~4", ratio)
	}
	if r.Area < DefaultMinArea {
		t.Errorf("area %v below threshold", r.Area)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
