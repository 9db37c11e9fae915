package model

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned when no classifier is loaded. Enrichment
// recovers from it with the utilization heuristic.
var ErrModelUnavailable = errors.New("risk model unavailable")

// DataLoadError reports a historical source that could not be loaded. It is
// fatal at startup.
type DataLoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *DataLoadError) Error() string {
	msg := fmt.Sprintf("load %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// NotFoundError reports a station id absent from the active table.
type NotFoundError struct {
	StationID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("station %s not found", e.StationID)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// FeaturizationError reports a station row that cannot be turned into a
// feature vector.
type FeaturizationError struct {
	StationID string
	Column    string
}

func (e *FeaturizationError) Error() string {
	return fmt.Sprintf("station %s: column %s is not a finite number", e.StationID, e.Column)
}

// EncodingError reports a categorical value unknown to its encoder.
type EncodingError struct {
	Column string
	Value  string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("column %s: unseen category %q", e.Column, e.Value)
}
