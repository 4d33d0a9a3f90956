// Package inference connects mass-tools to the mass detector model.
//
// The model runs in an external service. Client uploads an image to it and
// triages the returned detections; Trainer launches the detector's training
// command line on a prepared dataset.
package inference
