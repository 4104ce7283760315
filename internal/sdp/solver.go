package sdp

// Solution is the raw output of a solver backend. Values are row-major
// and only populated when Status is StatusOptimal.
type Solution struct {
	Status Status

	// D2 is the optimal objective value (the squared distortion bound).
	D2 float64

	// G is the (n-1)*(n-1) Gram matrix values, row-major.
	G []float64

	// Delta is the n*n slack matrix values, row-major.
	Delta []float64
}

// Solver is the external convex-optimization capability. Backends
// consume a fully formulated Problem and report the outcome through
// Solution.Status; numerical failures (ill-conditioning, iteration
// limits) are a StatusSolverError outcome, not an error. The error
// return is reserved for malformed problems.
//
// Implementations must be safe for concurrent use by independent
// solves; each Solve call carries all of its own state.
type Solver interface {
	Solve(p *Problem) (*Solution, error)
}
