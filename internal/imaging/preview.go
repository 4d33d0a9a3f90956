package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// PreviewResult contains a downscaled rendering of an image
type PreviewResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Preview encodes img as a base64 PNG whose longest side is at most maxSide.
// Images already within the limit are encoded at full size.
func Preview(img image.Image, maxSide int) (*PreviewResult, error) {
	if maxSide <= 0 {
		return nil, fmt.Errorf("invalid preview size: %d", maxSide)
	}

	out := img
	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		out = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &PreviewResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
