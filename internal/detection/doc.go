// Package detection locates foreground regions in binary and grayscale
// mammography images.
//
// Two entry points are provided:
//
//   - Extractor reduces a normalized ROI mask to the bounding box of its
//     dominant region, or rejects the mask (empty, no contours, too small).
//   - DetectBoxes finds candidate mass boxes directly in a full mammogram
//     using adaptive thresholding and morphology, for bootstrapping COCO
//     annotations when no masks exist.
//
// # Contour Capability
//
// Both entry points depend only on the ContourFinder interface, which returns
// the external contours of a binary image as bounding boxes with enclosed
// areas. The default implementation is pure Go connected-component labelling
// (8-connectivity); building with the "gocv" tag swaps in OpenCV's
// findContours/contourArea.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
package detection
