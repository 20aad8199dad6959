package serializer

import "errors"

var (
	// ErrEmptySubmission indicates a snapshot with no nodes. Nothing is queued.
	ErrEmptySubmission = errors.New("empty submission")

	// ErrDrainFailure indicates that a merge failed while draining the queue.
	// The canonical document keeps its last merged value.
	ErrDrainFailure = errors.New("drain failed")
)
