package imaging

import "errors"

var (
	// ErrNotFound is returned when an image path does not resolve to a file
	ErrNotFound = errors.New("image not found")

	// ErrDecode is returned when a file exists but is not a decodable raster
	ErrDecode = errors.New("image decode failed")

	// ErrWrite is returned when an output image cannot be written
	ErrWrite = errors.New("image write failed")
)
