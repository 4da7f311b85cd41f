package manager

import "errors"

var (
	// ErrSchedulingConflict means the item's interval intersects another
	// stored item. The store is left unchanged.
	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrNotFound           = errors.New("not found")
	// ErrInvalidReference covers a subtask naming a missing epic and items
	// that reference themselves.
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidItem      = errors.New("invalid item")
	ErrDuplicateID      = errors.New("id already in use")
	// ErrPersist wraps sink failures. The in-memory change it follows has
	// already been applied.
	ErrPersist = errors.New("persist snapshot")
)
