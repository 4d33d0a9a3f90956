package imaging

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// Load decodes the image file at path.
//
// Supported formats are those registered by github.com/disintegration/imaging:
// PNG, JPEG, GIF, BMP and TIFF.
//
// # Errors
//
//   - ErrNotFound if the path does not exist or is a directory
//   - ErrDecode if the file cannot be parsed as a raster
func Load(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrNotFound)
	}

	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrDecode, path)
	}

	return img, nil
}

// LoadGray decodes the image at path and converts it to 8-bit grayscale.
func LoadGray(path string) (*image.Gray, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return ToGray(img), nil
}

// SavePNG writes img to path as PNG, creating the parent directory if needed.
//
// Opaque images are written as 3-channel truecolor PNGs.
func SavePNG(img image.Image, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".png") {
		return fmt.Errorf("%w: %s: output must have a .png extension", ErrWrite, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return nil
}

// FileCodec reads and writes images on the local filesystem.
type FileCodec struct{}

// Decode implements the pipeline's decoder capability.
func (FileCodec) Decode(path string) (image.Image, error) {
	return Load(path)
}

// Encode implements the pipeline's encoder capability.
func (FileCodec) Encode(img image.Image, path string) error {
	return SavePNG(img, path)
}

// ImageCache provides thread-safe caching of loaded images to avoid redundant disk reads.
//
// The cache stores decoded image.Image objects keyed by their file path. It is
// used by long-running callers (the MCP server) that touch the same full image
// repeatedly; the batch pipeline reads every file exactly once and does not
// use it.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Failed loads are not cached.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len reports the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image, loading it through cache.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
