package services

import "errors"

var (
	// ErrInvalidThreshold is returned for a threshold outside [floor, 1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrMatcherUnavailable is returned when no entity of a run could be
	// matched because every lookup failed.
	ErrMatcherUnavailable = errors.New("terminology matcher unavailable")

	// ErrModelUnavailable is returned when the NER model cannot be loaded.
	ErrModelUnavailable = errors.New("NER model unavailable")

	// ErrAnnotationNotFound is returned when an annotation ID is unknown.
	ErrAnnotationNotFound = errors.New("annotation not found")
)
