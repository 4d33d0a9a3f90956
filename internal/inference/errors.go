package inference

import "errors"

var (
	// ErrService is returned when the inference service answers with a non-200 status
	ErrService = errors.New("inference service error")

	// ErrNoImages is returned when a folder contains no supported image files
	ErrNoImages = errors.New("no image files found")

	// ErrDataset is returned when the training dataset is missing
	ErrDataset = errors.New("dataset not found")
)
