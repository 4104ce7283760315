package sdp

import "gonum.org/v1/gonum/mat"

// DistFunc supplies the pairwise distance between vertices i and j.
// Any state the oracle needs (a precomputed table, a graph) is captured
// by closure. Errors abort the solve and surface to the caller unchanged.
type DistFunc func(i, j int) (float64, error)

// Status reports the outcome of a solver invocation
type Status string

const (
	StatusOptimal     Status = "optimal"
	StatusInfeasible  Status = "infeasible"
	StatusUnbounded   Status = "unbounded"
	StatusSolverError Status = "solver_error"
)

// Result holds the output of a distortion solve.
//
// D, G and Delta are meaningful only when Status is StatusOptimal;
// callers must branch on Status before reading them. For any other
// status D is NaN and G/Delta are nil.
type Result struct {
	Status Status

	// D is the minimum distortion bound, sqrt of the optimal D2.
	D float64

	// G is the (n-1)x(n-1) Gram matrix of the embedded points with
	// vertex 0 translated to the origin. Nil when n == 1 (the Gram
	// matrix is degenerate 0x0).
	G *mat.SymDense

	// Delta is the n x n matrix of optimal squared-distance slacks.
	Delta *mat.Dense
}
