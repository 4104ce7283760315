package store

// Store defines the interface for solve-result persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if a result doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResult atomically saves a solve result under the given id,
	// overwriting any existing result. Implementations should use an
	// atomic write strategy (temp file + rename) so a crash never
	// leaves a corrupt document.
	SaveResult(id string, doc *ResultDoc) error

	// LoadResult retrieves the result for the given id.
	// Returns ErrNotFound if none exists.
	LoadResult(id string) (*ResultDoc, error)

	// ListResults returns metadata for all stored results, without the
	// matrix payloads.
	ListResults() ([]ResultInfo, error)

	// DeleteResult removes the stored result for the given id.
	// Returns ErrNotFound if none exists.
	DeleteResult(id string) error
}

// ErrNotFound is returned when a requested result does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing result error.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "result not found: " + e.ID
	}
	return "result not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
