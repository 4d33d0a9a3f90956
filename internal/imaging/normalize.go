package imaging

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// NormalizeMask resizes an ROI mask to width x height with nearest-neighbour
// sampling and converts it to grayscale. The input is not modified
func NormalizeMask(mask image.Image, width, height int) (*image.Gray, error) {
	if mask == nil {
		return nil, fmt.Errorf("%w: nil mask", ErrDecode)
	}
	if mask.Bounds().Empty() {
		return nil, fmt.Errorf("%w: mask has no pixels", ErrDecode)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	resized := imaging.Resize(mask, width, height, imaging.NearestNeighbor)
	return ToGray(resized), nil
}

// ToGray converts img to 8-bit BT.601 grayscale with a (0,0) origin
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		out := image.NewGray(g.Rect)
		copy(out.Pix, g.Pix)
		return out
	}

	lum := imaging.Grayscale(img)
	out := image.NewGray(lum.Rect)
	for i := range out.Pix {
		out.Pix[i] = lum.Pix[i*4]
	}
	return out
}

// Binarize maps every non-zero pixel to 255
func Binarize(gray *image.Gray) *image.Gray {
	b := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := gray.Pix[gray.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			if src[x] != 0 {
				dst[x] = 0xff
			}
		}
	}
	return out
}

// Threshold sets pixels at or above level to 255 and the rest to 0
func Threshold(img image.Image, level uint8) *image.Gray {
	return segment.Threshold(img, level)
}

// CountNonZero counts the non-zero pixels in gray
func CountNonZero(gray *image.Gray) int {
	n := 0
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y) : gray.PixOffset(b.Min.X, y)+b.Dx()]
		for _, v := range row {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

// Canvas returns an opaque copy of img with a (0,0) origin for drawing
func Canvas(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}
