package risk

import "errors"

var (
	// ErrUnavailable signals a transient infrastructure failure on a
	// required dependency. The engine does not retry; callers may.
	ErrUnavailable = errors.New("risk engine dependency unavailable")

	// ErrInvalidWeights is returned when fusion weights do not sum to 1
	ErrInvalidWeights = errors.New("rule and model weights must sum to 1")
)
