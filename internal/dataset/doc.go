// Package dataset builds detector training data from annotated mammograms.
//
// The flow mirrors how the training set is assembled:
//
//  1. GenerateCOCO scans a directory of PNG mammograms, proposes candidate
//     mass boxes with detection.DetectBoxes and returns a COCO document.
//  2. ConvertCOCOToYOLO writes one YOLO label file per image.
//  3. Split copies image/label pairs into images/{train,val} and
//     labels/{train,val} and writes dataset.yaml.
//
// # Coordinates
//
// COCO boxes are [x, y, width, height] in pixels from the top-left corner.
// YOLO lines are "class x_center y_center width height", each normalized by
// the image width or height.
package dataset
