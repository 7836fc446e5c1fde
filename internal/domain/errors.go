package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects caller input with a human-readable reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateError reports a submission judged to duplicate an existing problem.
type DuplicateError struct {
	Verdict SimilarityVerdict
}

func (e *DuplicateError) Error() string {
	if e.Verdict.NearestID == "" {
		return "problem duplicates an existing submission"
	}
	return fmt.Sprintf("problem duplicates %s", e.Verdict.NearestID)
}
