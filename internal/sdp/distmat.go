package sdp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SquaredDistances evaluates the oracle over every ordered pair in
// [0,n) x [0,n), including the diagonal, and assembles the n x n matrix
// of squared distances. The oracle is called exactly n*n times.
//
// Symmetry is not enforced: an asymmetric oracle yields an asymmetric
// matrix and downstream constraints use whichever entries they index,
// which may produce an inconsistent or infeasible program.
func SquaredDistances(n int, dist DistFunc) (*mat.Dense, error) {
	if n < 1 {
		return nil, fmt.Errorf("sdp: vertex count must be at least 1, got %d", n)
	}
	if dist == nil {
		return nil, fmt.Errorf("sdp: distance oracle must not be nil")
	}

	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d, err := dist(i, j)
			if err != nil {
				// Oracle errors propagate unchanged; no partial result.
				return nil, err
			}
			m.Set(i, j, d*d)
		}
	}
	return m, nil
}
