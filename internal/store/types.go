package store

import (
	"fmt"
	"time"

	"github.com/cwbudde/distortfit/internal/sdp"
)

// ResultDoc is the persisted form of one distortion solve.
// All fields are serialized to JSON.
//
// D, G and Delta follow the solver contract: they carry data only when
// Status is optimal. For non-optimal outcomes D is stored as zero and
// the matrices are omitted, since JSON cannot represent NaN.
type ResultDoc struct {
	// ID is the unique identifier for this result
	ID string `json:"id"`

	// N is the number of vertices of the solved problem
	N int `json:"n"`

	// Status is the solver outcome (optimal, infeasible, ...)
	Status sdp.Status `json:"status"`

	// D is the distortion bound, meaningful only when Status is optimal
	D float64 `json:"d"`

	// G is the (n-1)*(n-1) Gram matrix, row-major
	G []float64 `json:"g,omitempty"`

	// Delta is the n*n slack matrix, row-major
	Delta []float64 `json:"delta,omitempty"`

	// Backend names the solver backend that produced the result
	Backend string `json:"backend"`

	// ElapsedSeconds is the wall-clock solve duration
	ElapsedSeconds float64 `json:"elapsedSeconds"`

	// Timestamp records when this result was saved
	Timestamp time.Time `json:"timestamp"`
}

// ResultInfo contains metadata about a stored result without the
// matrix payloads. Used for listing efficiently.
type ResultInfo struct {
	ID        string     `json:"id"`
	N         int        `json:"n"`
	Status    sdp.Status `json:"status"`
	D         float64    `json:"d"`
	Backend   string     `json:"backend"`
	Timestamp time.Time  `json:"timestamp"`
}

// ToInfo converts a full ResultDoc to its metadata.
func (d *ResultDoc) ToInfo() ResultInfo {
	return ResultInfo{
		ID:        d.ID,
		N:         d.N,
		Status:    d.Status,
		D:         d.D,
		Backend:   d.Backend,
		Timestamp: d.Timestamp,
	}
}

// Validate checks that the document is internally consistent.
func (d *ResultDoc) Validate() error {
	if d.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if d.N < 1 {
		return &ValidationError{Field: "N", Reason: "must be at least 1"}
	}
	if d.Status == "" {
		return &ValidationError{Field: "Status", Reason: "cannot be empty"}
	}
	if d.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if d.Status == sdp.StatusOptimal {
		if d.D < 0 {
			return &ValidationError{Field: "D", Reason: "cannot be negative"}
		}
		m := d.N - 1
		if d.G != nil && len(d.G) != m*m {
			return &ValidationError{
				Field:  "G",
				Reason: fmt.Sprintf("length mismatch: got %d values for n=%d", len(d.G), d.N),
			}
		}
		if d.Delta != nil && len(d.Delta) != d.N*d.N {
			return &ValidationError{
				Field:  "Delta",
				Reason: fmt.Sprintf("length mismatch: got %d values for n=%d", len(d.Delta), d.N),
			}
		}
	}
	return nil
}

// ValidationError represents a result document validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
