package domain

import "errors"

var (
	// ErrInvalidGrid is returned when a field's axes or values are inconsistent.
	ErrInvalidGrid = errors.New("invalid grid")

	// ErrNoData is returned when an input source holds nothing usable.
	ErrNoData = errors.New("no data")

	// ErrMalformedBlock marks a spectrum block that could not be decoded.
	ErrMalformedBlock = errors.New("malformed spectrum block")
)

// Outcome classifies the result of a batch operation.
type Outcome string

const (
	// OutcomeMatched means at least one record was produced.
	OutcomeMatched Outcome = "matched"
	// OutcomeEmpty means the inputs were valid but nothing satisfied the thresholds.
	OutcomeEmpty Outcome = "empty"
	// OutcomeSkipped means the input was missing or malformed and was not processed.
	OutcomeSkipped Outcome = "skipped"
)
