package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry marks a polygon that cannot become a territory
	ErrInvalidGeometry = errors.New("invalid territory geometry")

	// ErrNotFound is returned when a territory or user does not exist
	ErrNotFound = errors.New("not found")

	// ErrStorageFailure wraps transport or persistence errors
	ErrStorageFailure = errors.New("storage failure")

	// ErrStatUpdateSkipped is a non-fatal condition: the user record to credit or debit is missing
	ErrStatUpdateSkipped = errors.New("user stat update skipped")

	// ErrAlreadyOwner rejects conquering your own territory
	ErrAlreadyOwner = errors.New("territory already owned by user")
)

// Geometry rejection reasons
const (
	ReasonTooFewPoints  = "too_few_points"
	ReasonAreaTooSmall  = "area_too_small"
	ReasonAreaTooLarge  = "area_too_large"
	ReasonEmptyRoute    = "empty_route"
	ReasonBadCoordinate = "bad_coordinate"
)

// GeometryError is the typed rejection for invalid territories
type GeometryError struct {
	Reason string
	Points int
	Area   float64
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("invalid territory geometry: %s (points=%d, area=%.1fm²)", e.Reason, e.Points, e.Area)
}

// Is lets errors.Is(err, ErrInvalidGeometry) match
func (e *GeometryError) Is(target error) bool { return target == ErrInvalidGeometry }

// StorageError wraps a failed repository operation
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorageFailure) match
func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }

// WrapStorage wraps err as a StorageError unless it is nil or ErrNotFound
func WrapStorage(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
