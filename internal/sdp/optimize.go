package sdp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// negD2Tol is how far below zero the reported D2 may drift due to
// solver tolerance before the solve is declared a solver error instead
// of being clamped to zero.
const negD2Tol = 1e-6

// Optimize computes the minimum-distortion Euclidean embedding bound
// for n vertices under the given distance oracle.
//
// The oracle is evaluated n*n times to build the squared-distance
// matrix, the distortion SDP is formulated and handed to the solver,
// and the optimal objective is square-rooted to recover D. Non-optimal
// solver outcomes (infeasible, unbounded, numerical failure) are
// reported through Result.Status, not as an error; input and oracle
// errors abort the solve with no result.
//
// n == 1 is a trivial success: no pair constraints exist, so the
// embedding is vacuously isometric. The result is StatusOptimal with
// D = 1, a nil (degenerate 0x0) Gram matrix and a 1x1 slack matrix
// holding the squared self-distance.
func Optimize(n int, dist DistFunc, solver Solver, verbose bool) (*Result, error) {
	distSq, err := SquaredDistances(n, dist)
	if err != nil {
		return nil, err
	}

	if n == 1 {
		delta := mat.NewDense(1, 1, []float64{distSq.At(0, 0)})
		return &Result{Status: StatusOptimal, D: 1, Delta: delta}, nil
	}

	if solver == nil {
		return nil, fmt.Errorf("sdp: solver must not be nil")
	}

	prob, err := Formulate(n, distSq, verbose)
	if err != nil {
		return nil, err
	}

	sol, err := solver.Solve(prob)
	if err != nil {
		return &Result{Status: StatusSolverError, D: math.NaN()}, fmt.Errorf("sdp: solve failed: %w", err)
	}

	if sol.Status != StatusOptimal {
		return &Result{Status: sol.Status, D: math.NaN()}, nil
	}

	d2 := sol.D2
	if d2 < -negD2Tol || math.IsNaN(d2) {
		// Would be a sqrt domain failure; report it as a solver
		// outcome instead.
		return &Result{Status: StatusSolverError, D: math.NaN()}, nil
	}
	if d2 < 0 {
		d2 = 0
	}

	g, err := packGram(n-1, sol.G)
	if err != nil {
		return &Result{Status: StatusSolverError, D: math.NaN()}, err
	}
	if len(sol.Delta) != n*n {
		return &Result{Status: StatusSolverError, D: math.NaN()},
			fmt.Errorf("sdp: solver returned %d delta values, want %d", len(sol.Delta), n*n)
	}

	return &Result{
		Status: StatusOptimal,
		D:      math.Sqrt(d2),
		G:      g,
		Delta:  mat.NewDense(n, n, sol.Delta),
	}, nil
}

// packGram symmetrizes row-major Gram values into a SymDense. The
// averaging absorbs the i<j / i>j round-off difference a numerical
// backend leaves behind.
func packGram(m int, vals []float64) (*mat.SymDense, error) {
	if len(vals) != m*m {
		return nil, fmt.Errorf("sdp: solver returned %d gram values, want %d", len(vals), m*m)
	}
	g := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			g.SetSym(i, j, (vals[i*m+j]+vals[j*m+i])/2)
		}
	}
	return g, nil
}
