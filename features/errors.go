package features

import (
	"errors"
	"fmt"
)

// ErrEmptySignal is wrapped when there are no samples to analyze.
var ErrEmptySignal = errors.New("empty audio signal")

// ProcessingError reports a failure inside the feature pipeline.
type ProcessingError struct {
	Stage   string // pipeline stage, e.g. "time_domain"
	Feature string // feature key, empty when the whole stage failed
	Err     error
}

func (e *ProcessingError) Error() string {
	if e.Feature != "" {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Feature, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for the HTTP layer.
func (e *ProcessingError) ErrorKind() string { return "processing" }

func errNotFinite(v float64) error {
	return fmt.Errorf("value %v is not finite", v)
}
