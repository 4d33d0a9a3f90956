package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createTestImage creates a solid color PNG in a temp dir and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := createInMemoryImage(width, height, c)

	path := filepath.Join(t.TempDir(), "test-image.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// createInMemoryImage creates a solid color RGBA image.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestLoad(t *testing.T) {
	path := createTestImage(t, 120, 80, color.RGBA{10, 20, 30, 255})

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
		t.Errorf("dimensions: got %dx%d, want 120x80", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing file", filepath.Join(dir, "missing.png"), ErrNotFound},
		{"empty path", "", ErrNotFound},
		{"directory", dir, ErrNotFound},
		{"corrupt file", garbage, ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load(%q): got %v, want %v", tt.path, err, tt.want)
			}
		})
	}
}

func TestLoadGray(t *testing.T) {
	path := createTestImage(t, 10, 10, color.RGBA{255, 255, 255, 255})

	gray, err := LoadGray(path)
	if err != nil {
		t.Fatalf("LoadGray failed: %v", err)
	}
	if gray.GrayAt(5, 5).Y != 255 {
		t.Errorf("white pixel: got %d, want 255", gray.GrayAt(5, 5).Y)
	}
}

func TestSavePNG(t *testing.T) {
	img := createInMemoryImage(30, 20, color.RGBA{1, 2, 3, 255})
	path := filepath.Join(t.TempDir(), "nested", "out.png")

	if err := SavePNG(img, path); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	r, g, b, _ := loaded.At(0, 0).RGBA()
	if r>>8 != 1 || g>>8 != 2 || b>>8 != 3 {
		t.Errorf("pixel: got (%d,%d,%d), want (1,2,3)", r>>8, g>>8, b>>8)
	}
}

func TestSavePNG_Errors(t *testing.T) {
	img := createInMemoryImage(4, 4, color.Black)
	dir := t.TempDir()

	// A regular file where a directory is expected
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"wrong extension", filepath.Join(dir, "out.jpg")},
		{"parent is a file", filepath.Join(blocker, "out.png")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SavePNG(img, tt.path)
			if !errors.Is(err, ErrWrite) {
				t.Errorf("SavePNG(%q): got %v, want ErrWrite", tt.path, err)
			}
		})
	}
}

func TestFileCodec_RoundTrip(t *testing.T) {
	var codec FileCodec
	path := filepath.Join(t.TempDir(), "codec.png")

	if err := codec.Encode(createInMemoryImage(8, 6, color.White), path); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	img, err := codec.Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Errorf("dimensions: got %v", img.Bounds())
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 100, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Second load should return cached image
	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	_, err := cache.Load("/nonexistent/path/to/image.png")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if cache.Len() != 0 {
		t.Error("failed load should not be cached")
	}
}

func TestImageCache_Evict(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{0, 0, 255, 255})

	if _, err := cache.Load(imgPath); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cache.Evict(imgPath)
	if cache.Len() != 0 {
		t.Error("Evict did not remove image from cache")
	}

	// Should not panic
	cache.Evict("/nonexistent/path")
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestGetDimensions(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 300, 200, color.RGBA{100, 100, 100, 255})

	dims, err := GetDimensions(cache, imgPath)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("got %dx%d, want 300x200", dims.Width, dims.Height)
	}
}
