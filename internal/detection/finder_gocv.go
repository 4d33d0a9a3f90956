//go:build gocv

package detection

import (
	"image"
	"log"

	"gocv.io/x/gocv"
)

// DefaultFinder returns the contour backend compiled into this binary.
func DefaultFinder() ContourFinder {
	return OpenCVFinder{}
}

// FinderName identifies the compiled-in contour backend in logs.
const FinderName = "opencv"

// OpenCVFinder implements ContourFinder with OpenCV's findContours
// (external retrieval, simple chain approximation). Areas are polygon areas
// from contourArea, which are slightly smaller than pixel counts.
type OpenCVFinder struct{}

// FindExternal returns the external contours of bin.
func (OpenCVFinder) FindExternal(bin *image.Gray) []Contour {
	b := bin.Bounds()
	if b.Empty() {
		return nil
	}

	src := bin
	if b.Min != (image.Point{}) {
		src = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(src.Pix[y*src.Stride:y*src.Stride+b.Dx()], bin.Pix[bin.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	}

	mat, err := gocv.ImageGrayToMatGray(src)
	if err != nil {
		log.Printf("opencv: failed to convert mask: %v", err)
		return nil
	}
	defer mat.Close()

	points := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer points.Close()

	contours := make([]Contour, 0, points.Size())
	for i := 0; i < points.Size(); i++ {
		pv := points.At(i)
		contours = append(contours, Contour{
			Bounds: gocv.BoundingRect(pv).Add(b.Min),
			Area:   gocv.ContourArea(pv),
		})
	}
	return contours
}
