package detection

import (
	"image"
)

// Contour is the external boundary of one connected foreground region.
type Contour struct {
	// Bounds is the smallest axis-aligned rectangle enclosing the region.
	Bounds image.Rectangle

	// Area is the enclosed area in square pixels.
	Area float64
}

// ContourFinder finds the external contours of a binary image. Pixels with a
// non-zero value are foreground. Holes inside a region are not reported.
type ContourFinder interface {
	FindExternal(bin *image.Gray) []Contour
}

// ComponentFinder implements ContourFinder with 8-connected component
// labelling. Each component yields one contour whose Area is the number of
// pixels enclosed by its outer boundary: the component's own pixels plus any
// holes inside it.
//
// Components are reported in row-major order of their first pixel, which
// makes the output deterministic for a given image.
type ComponentFinder struct{}

// FindExternal labels the foreground components of bin.
func (ComponentFinder) FindExternal(bin *image.Gray) []Contour {
	b := bin.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	fg := func(x, y int) bool {
		return bin.Pix[y*bin.Stride+x] != 0
	}

	// labels holds the 1-based component id of each foreground pixel
	labels := make([]int32, width*height)
	contours := make([]Contour, 0)
	stack := make([]int, 0, 1024)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if labels[y*width+x] != 0 || !fg(x, y) {
				continue
			}

			id := int32(len(contours) + 1)
			minX, minY, maxX, maxY := x, y, x, y
			count := 0

			labels[y*width+x] = id
			stack = append(stack[:0], y*width+x)

			for len(stack) > 0 {
				idx := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				px, py := idx%width, idx/width
				count++

				if px < minX {
					minX = px
				}
				if px > maxX {
					maxX = px
				}
				if py < minY {
					minY = py
				}
				if py > maxY {
					maxY = py
				}

				// 8-connected neighbors
				for dy := -1; dy <= 1; dy++ {
					ny := py + dy
					if ny < 0 || ny >= height {
						continue
					}
					for dx := -1; dx <= 1; dx++ {
						nx := px + dx
						if (dx == 0 && dy == 0) || nx < 0 || nx >= width {
							continue
						}
						n := ny*width + nx
						if labels[n] != 0 || !fg(nx, ny) {
							continue
						}
						labels[n] = id
						stack = append(stack, n)
					}
				}
			}

			local := image.Rect(minX, minY, maxX+1, maxY+1)
			contours = append(contours, Contour{
				Bounds: local.Add(b.Min),
				Area:   float64(count + holeArea(labels, width, local, id)),
			})
		}
	}

	return contours
}

// holeArea counts the pixels inside r that do not belong to component id and
// cannot be reached from outside r without crossing it. The background walk
// is 4-connected, the dual of the 8-connected foreground.
func holeArea(labels []int32, width int, r image.Rectangle, id int32) int {
	w, h := r.Dx(), r.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	outside := make([]bool, w*h)
	stack := make([]int, 0, 2*(w+h))
	member := func(x, y int) bool {
		return labels[(r.Min.Y+y)*width+r.Min.X+x] == id
	}
	seed := func(x, y int) {
		i := y*w + x
		if !outside[i] && !member(x, y) {
			outside[i] = true
			stack = append(stack, i)
		}
	}

	for x := 0; x < w; x++ {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := 1; y < h-1; y++ {
		seed(0, y)
		seed(w-1, y)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		if x > 0 {
			seed(x-1, y)
		}
		if x < w-1 {
			seed(x+1, y)
		}
		if y > 0 {
			seed(x, y-1)
		}
		if y < h-1 {
			seed(x, y+1)
		}
	}

	inside := 0
	for i, out := range outside {
		if !out && !member(i%w, i/w) {
			inside++
		}
	}
	return inside
}

// Largest returns the index of the contour with the greatest area, or -1 if
// contours is empty.
//
// Ties are broken by the lexicographically smallest bounding box
// (X, then Y, then width, then height), so the choice does not depend on the
// order in which a ContourFinder happens to report contours.
func Largest(contours []Contour) int {
	best := -1
	for i, c := range contours {
		if best < 0 || c.Area > contours[best].Area ||
			(c.Area == contours[best].Area && boxLess(c.Bounds, contours[best].Bounds)) {
			best = i
		}
	}
	return best
}

func boxLess(a, b image.Rectangle) bool {
	ka := [4]int{a.Min.X, a.Min.Y, a.Dx(), a.Dy()}
	kb := [4]int{b.Min.X, b.Min.Y, b.Dx(), b.Dy()}
	for i := range ka {
		if ka[i] != kb[i] {
			return ka[i] < kb[i]
		}
	}
	return false
}
