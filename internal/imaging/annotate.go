package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultOutlineColor is red
const DefaultOutlineColor = "#FF0000"

// DefaultOutlineThickness is the outline stroke width in pixels.
const DefaultOutlineThickness = 15

// Style controls how region outlines are drawn
type Style struct {
	Color     color.NRGBA // alpha is ignored
	Thickness int
}

// DefaultStyle returns the red 15 px outline
func DefaultStyle() Style {
	return Style{
		Color:     color.NRGBA{R: 0xff, A: 0xff},
		Thickness: DefaultOutlineThickness,
	}
}

// NewStyle builds a Style from a hex color and a stroke width
func NewStyle(hex string, thickness int) (Style, error) {
	c, err := ParseColor(hex)
	if err != nil {
		return Style{}, err
	}
	if thickness < 1 {
		return Style{}, fmt.Errorf("outline thickness must be >= 1, got %d", thickness)
	}
	return Style{Color: c, Thickness: thickness}, nil
}

// ParseColor parses a hex color string like "#FF0000"
func ParseColor(hex string) (color.NRGBA, error) {
	if hex == "" {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// DrawRegion draws an unfilled rectangle outline onto dst. The stroke is
// centred on the lines through rect.Min and rect.Max and clipped to dst.
func DrawRegion(dst draw.Image, rect image.Rectangle, style Style) {
	t := style.Thickness
	if t < 1 {
		t = 1
	}
	half := t / 2

	outer := image.Rect(
		rect.Min.X-half, rect.Min.Y-half,
		rect.Max.X-half+t, rect.Max.Y-half+t,
	)

	col := style.Color
	col.A = 0xff
	src := image.NewUniform(col)

	bands := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, outer.Min.Y+t), // top
		image.Rect(outer.Min.X, outer.Max.Y-t, outer.Max.X, outer.Max.Y), // bottom
		image.Rect(outer.Min.X, outer.Min.Y, outer.Min.X+t, outer.Max.Y), // left
		image.Rect(outer.Max.X-t, outer.Min.Y, outer.Max.X, outer.Max.Y), // right
	}

	bounds := dst.Bounds()
	for _, band := range bands {
		clipped := band.Intersect(bounds)
		if clipped.Empty() {
			continue
		}
		draw.Draw(dst, clipped, src, image.Point{}, draw.Src)
	}
}
