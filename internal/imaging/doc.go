// Package imaging provides the raster primitives used by the mass-region
// pipeline: decoding and encoding image files, normalizing ROI masks to the
// geometry of a full mammogram, binarizing masks, and drawing region outlines.
//
// All operations work with standard Go image.Image types and use a coordinate system
// where (0,0) is at the top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive (top-left), Max is exclusive (bottom-right)
//
// # Mask Normalization
//
// Masks are resized with nearest-neighbour sampling only. Interpolating
// filters blend foreground and background along region edges and would
// create spurious boundary pixels once the mask is thresholded.
//
// # Error Handling
//
// File operations classify their failures with the sentinel errors
// ErrNotFound, ErrDecode and ErrWrite. Callers use errors.Is to decide
// whether a failure is fatal for the image being processed.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images. DrawRegion
// mutates its destination and must not be called concurrently on the same image.
package imaging
