package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the retrieval core.
var (
	ErrMissingField        = errors.New("missing field")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	ErrInvalidInput        = errors.New("invalid embedding input")
	ErrEmptyQuery          = errors.New("empty query")
	ErrCollectionNotFound  = errors.New("collection not found")
	ErrBatchAborted        = errors.New("ingestion batch aborted")
)

// MissingFieldError reports a raw record that cannot be normalized. It is
// fatal to the whole ingestion batch.
type MissingFieldError struct {
	Field string
	Index int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d: missing field %q", e.Index, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// DimensionMismatchError reports a provider/collection vector-size mismatch.
// Vectors are never truncated or padded to fit.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: collection expects %d, provider produced %d", e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// Retryable reports whether err is a transient failure worth retrying.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
