//go:build !gocv

package detection

// DefaultFinder returns the contour backend compiled into this binary.
func DefaultFinder() ContourFinder {
	return ComponentFinder{}
}

// FinderName identifies the compiled-in contour backend in logs.
const FinderName = "components"
