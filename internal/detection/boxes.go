package detection

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/mass-tools/internal/imaging"
)

// BoxParams controls DetectBoxes.
type BoxParams struct {
	// BlockSize is the side of the neighbourhood used for the local
	// Gaussian-weighted mean. Typical: 101.
	BlockSize int `json:"block_size" yaml:"blockSize"`

	// C is subtracted from the local mean to form the per-pixel threshold.
	C float64 `json:"c" yaml:"c"`

	// KernelSize is the side of the structuring element used for the
	// morphological close and open passes. Typical: 5.
	KernelSize int `json:"kernel_size" yaml:"kernelSize"`

	// MinSide and MaxSide bound box width and height (both exclusive).
	MinSide int `json:"min_side" yaml:"minSide"`
	MaxSide int `json:"max_side" yaml:"maxSide"`
}

// DefaultBoxParams returns the parameters used to bootstrap COCO annotations
// from CBIS-DDSM full mammograms.
func DefaultBoxParams() BoxParams {
	return BoxParams{
		BlockSize:  101,
		C:          5,
		KernelSize: 5,
		MinSide:    50,
		MaxSide:    2000,
	}
}

// DetectBoxes finds candidate mass bounding boxes in a grayscale mammogram.
//
// # Algorithm
//
//  1. Adaptive threshold (inverted): a pixel is foreground when its value is
//     at or below the Gaussian-weighted mean of its BlockSize neighbourhood
//     minus C
//  2. Morphological close, then open, with a KernelSize structuring element
//     to fill pin holes and drop speckle
//  3. External contours via finder (nil selects DefaultFinder)
//  4. Keep boxes with MinSide < width < MaxSide and MinSide < height < MaxSide
//
// Boxes are returned in the finder's order.
func DetectBoxes(gray *image.Gray, p BoxParams, finder ContourFinder) []image.Rectangle {
	if finder == nil {
		finder = DefaultFinder()
	}

	src := imaging.ToGray(gray)
	if src.Bounds().Empty() {
		return nil
	}

	bin := AdaptiveThresholdInv(src, p.BlockSize, p.C)
	cleaned := morphologyCleanup(bin, p.KernelSize)

	boxes := make([]image.Rectangle, 0)
	for _, c := range finder.FindExternal(cleaned) {
		w, h := c.Bounds.Dx(), c.Bounds.Dy()
		if w > p.MinSide && w < p.MaxSide && h > p.MinSide && h < p.MaxSide {
			boxes = append(boxes, c.Bounds)
		}
	}
	return boxes
}

// AdaptiveThresholdInv marks pixels at or below (local mean - c) as 255.
// The local mean is a Gaussian-weighted average over a blockSize window.
func AdaptiveThresholdInv(gray *image.Gray, blockSize int, c float64) *image.Gray {
	b := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	radius := float64(blockSize / 2)
	if radius < 1 {
		radius = 1
	}
	mean := blur.Gaussian(gray, radius)

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := float64(gray.Pix[gray.PixOffset(b.Min.X+x, b.Min.Y+y)])
			m := float64(mean.Pix[mean.PixOffset(mean.Rect.Min.X+x, mean.Rect.Min.Y+y)])
			if v <= m-c {
				out.Pix[y*out.Stride+x] = 0xff
			}
		}
	}
	return out
}

// morphologyCleanup applies a close (dilate, erode) followed by an open
// (erode, dilate) and re-binarizes the result.
func morphologyCleanup(bin *image.Gray, kernelSize int) *image.Gray {
	radius := float64(kernelSize / 2)
	if radius < 1 {
		return bin
	}

	closed := effect.Erode(effect.Dilate(bin, radius), radius)
	opened := effect.Dilate(effect.Erode(closed, radius), radius)
	return imaging.Threshold(opened, 128)
}
