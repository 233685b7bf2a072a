package marker

import "errors"

var (
	// ErrNotFound indicates no record exists for the item.
	ErrNotFound = errors.New("marker not found")

	// ErrConstraint indicates a check or foreign key constraint violation.
	ErrConstraint = errors.New("constraint violation")
)
