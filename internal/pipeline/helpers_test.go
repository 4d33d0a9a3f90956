package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ironsheep/mass-tools/internal/imaging"
)

// writePNG encodes img to dir/name and returns the path.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
	return path
}

// createFullImage creates an opaque gradient so pixel comparisons are meaningful.
func createFullImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 200), G: uint8(y % 200), B: 90, A: 255})
		}
	}
	return img
}

// createMask creates a black mask with a white filled rectangle.
func createMask(width, height int, fg image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := fg.Min.Y; y < fg.Max.Y; y++ {
		for x := fg.Min.X; x < fg.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return img
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r>>8 == 0xff && g>>8 == 0 && b>>8 == 0
}

// memCodec serves images from memory and records encoded outputs.
type memCodec struct {
	mu      sync.Mutex
	images  map[string]image.Image
	written map[string]image.Image
	failOn  map[string]bool
}

func newMemCodec() *memCodec {
	return &memCodec{
		images:  make(map[string]image.Image),
		written: make(map[string]image.Image),
		failOn:  make(map[string]bool),
	}
}

func (m *memCodec) Decode(path string) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", imaging.ErrNotFound, path)
	}
	return img, nil
}

func (m *memCodec) Encode(img image.Image, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[filepath.Base(path)] {
		return fmt.Errorf("%w: %s: disk full", imaging.ErrWrite, path)
	}
	m.written[path] = img
	return nil
}

func (m *memCodec) writtenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.written)
}
