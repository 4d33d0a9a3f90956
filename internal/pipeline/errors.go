package pipeline

import "errors"

var (
	// ErrInvalidCase is returned for a case record that cannot be processed,
	// such as one without a UID or a full image path
	ErrInvalidCase = errors.New("invalid case record")

	// ErrSink is returned when a result sink cannot persist the ledger
	ErrSink = errors.New("result sink failed")
)
