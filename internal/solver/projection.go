package solver

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/distortfit/internal/sdp"
)

// Default knobs for the projection backend. The iteration cap is per
// feasibility test; stall detection ends most tests far earlier, so
// only levels hugging the optimum pay anything close to the cap.
const (
	DefaultMaxIters = 1000000
	DefaultTol      = 1e-7
)

// bracketCap bounds the objective-value search; a problem still
// infeasible at this value is reported infeasible.
const bracketCap = 1e12

// objResolution is the relative width at which objective bisection stops.
const objResolution = 1e-5

// A feasibility test is abandoned as infeasible when the best
// violation seen improves by less than 0.01% across a window of
// sweeps. Projections onto a nonempty intersection keep making
// progress; against a genuinely empty level set the iterate settles
// into a cycle and the improvement rate collapses to zero.
const (
	stallWindow = 1000
	stallFactor = 0.9999
)

// Projection is the default solver backend. It bisects the objective
// value and tests feasibility of each level set with cyclic projections:
// closed-form halfspace/hyperplane projections for the linear
// constraints and eigenvalue clipping for the PSD block. It consumes
// the problem's constraint list generically and carries no distortion
// semantics of its own.
type Projection struct {
	maxIters int     // projection sweeps per feasibility test
	tol      float64 // feasibility violation tolerance
}

// NewProjection creates a projection backend. Non-positive arguments
// fall back to DefaultMaxIters / DefaultTol.
func NewProjection(maxIters int, tol float64) sdp.Solver {
	if maxIters <= 0 {
		maxIters = DefaultMaxIters
	}
	if tol <= 0 {
		tol = DefaultTol
	}
	return &Projection{maxIters: maxIters, tol: tol}
}

// layout flattens the problem variables into one vector:
// delta (n*n), then G ((n-1)*(n-1)), then the D2 scalar.
type layout struct {
	n        int
	offDelta int
	offG     int
	offD2    int
	total    int
}

func newLayout(n int) layout {
	m := n - 1
	return layout{
		n:        n,
		offDelta: 0,
		offG:     n * n,
		offD2:    n*n + m*m,
		total:    n*n + m*m + 1,
	}
}

func (l layout) index(r sdp.Ref) (int, error) {
	switch r.Var {
	case sdp.VarDelta:
		if r.I < 0 || r.I >= l.n || r.J < 0 || r.J >= l.n {
			return 0, fmt.Errorf("solver: delta index (%d,%d) out of range for n=%d", r.I, r.J, l.n)
		}
		return l.offDelta + r.I*l.n + r.J, nil
	case sdp.VarG:
		m := l.n - 1
		if r.I < 0 || r.I >= m || r.J < 0 || r.J >= m {
			return 0, fmt.Errorf("solver: gram index (%d,%d) out of range for n=%d", r.I, r.J, l.n)
		}
		return l.offG + r.I*m + r.J, nil
	case sdp.VarD2:
		return l.offD2, nil
	}
	return 0, fmt.Errorf("solver: unknown variable %v", r.Var)
}

// row is a compiled linear constraint: sum(coef*x[idx]) >= rhs, or
// == rhs when eq is set.
type row struct {
	idx   []int
	coef  []float64
	rhs   float64
	eq    bool
	norm2 float64
}

// feasOutcome is the verdict of one level-set feasibility test.
type feasOutcome int

const (
	// feasYes: the iterate settled inside the constraint set.
	feasYes feasOutcome = iota
	// feasNo: progress stalled short of the set; the level is empty.
	feasNo
	// feasUnresolved: the sweep budget ran out while the violation was
	// still shrinking. The level cannot be classified either way.
	feasUnresolved
)

func (p *Projection) Solve(prob *sdp.Problem) (*sdp.Solution, error) {
	if prob == nil {
		return nil, fmt.Errorf("solver: nil problem")
	}
	lay := newLayout(prob.N)

	rows, hasPSD, err := compile(prob, lay)
	if err != nil {
		return nil, err
	}
	objIdx, err := lay.index(prob.Objective)
	if err != nil {
		return nil, err
	}

	// Violations are judged relative to the constraint data's magnitude.
	scale := 1.0
	for _, r := range rows {
		if a := math.Abs(r.rhs); a > scale {
			scale = a
		}
	}

	// Each feasibility test starts from a clean seed: the last point
	// accepted at a larger objective level, or the pristine initial
	// point. Iterates deformed by a failed (infeasible) test are
	// discarded so they cannot poison later tests.
	seed := initialPoint(prob, lay)
	x := make([]float64, lay.total)
	xFeas := make([]float64, lay.total)
	haveFeas := false

	feasibleAt := func(t float64) feasOutcome {
		if haveFeas {
			copy(x, xFeas)
		} else {
			copy(x, seed)
		}
		out := p.project(x, rows, hasPSD, lay, objIdx, t, scale)
		if out == feasYes {
			copy(xFeas, x)
			haveFeas = true
		}
		return out
	}

	// Bracket the optimum, then bisect.
	var lo, hi float64
	switch feasibleAt(0) {
	case feasYes:
		lo, hi = 0, 0
	default:
		hi = 1
		for feasibleAt(hi) != feasYes {
			lo = hi
			hi *= 2
			if hi > bracketCap {
				return &sdp.Solution{Status: sdp.StatusInfeasible}, nil
			}
		}
	}

bisect:
	for hi-lo > objResolution*math.Max(1, hi) {
		mid := lo + (hi-lo)/2
		switch feasibleAt(mid) {
		case feasYes:
			hi = mid
		case feasNo:
			lo = mid
		default:
			// The budget cannot separate mid from the optimum; keep
			// the incumbent upper bound rather than guess.
			break bisect
		}
		if prob.Verbose {
			slog.Info("bisection step", "lo", lo, "hi", hi)
		}
	}

	// xFeas holds the last point accepted at some t >= optimum.
	m := prob.N - 1
	sol := &sdp.Solution{
		Status: sdp.StatusOptimal,
		D2:     xFeas[objIdx],
		G:      append([]float64(nil), xFeas[lay.offG:lay.offG+m*m]...),
		Delta:  append([]float64(nil), xFeas[lay.offDelta:lay.offDelta+prob.N*prob.N]...),
	}
	if math.IsNaN(sol.D2) || math.IsInf(sol.D2, 0) {
		return &sdp.Solution{Status: sdp.StatusSolverError}, nil
	}
	if prob.Verbose {
		slog.Info("projection solve finished", "d2", sol.D2, "constraints", len(rows))
	}
	return sol, nil
}

// compile turns the typed constraint list into projection-ready rows.
func compile(prob *sdp.Problem, lay layout) ([]row, bool, error) {
	rows := make([]row, 0, len(prob.Constraints))
	hasPSD := false
	for _, c := range prob.Constraints {
		switch con := c.(type) {
		case sdp.LinearConstraint:
			r := row{rhs: con.RHS, eq: con.Rel == sdp.RelEQ}
			for _, term := range con.Terms {
				i, err := lay.index(term.Ref)
				if err != nil {
					return nil, false, err
				}
				if math.IsNaN(term.Coeff) || math.IsInf(term.Coeff, 0) {
					return nil, false, fmt.Errorf("solver: non-finite coefficient on %v", term.Ref)
				}
				r.idx = append(r.idx, i)
				r.coef = append(r.coef, term.Coeff)
				r.norm2 += term.Coeff * term.Coeff
			}
			if r.norm2 == 0 {
				return nil, false, fmt.Errorf("solver: constraint with no variable terms")
			}
			rows = append(rows, r)
		case sdp.PSDConstraint:
			if con.Var != sdp.VarG {
				return nil, false, fmt.Errorf("solver: PSD constraint on non-matrix variable %v", con.Var)
			}
			hasPSD = true
		default:
			return nil, false, fmt.Errorf("solver: unknown constraint type %T", c)
		}
	}
	return rows, hasPSD, nil
}

// initialPoint seeds the iterate with the natural candidate: slacks at
// their lower bounds, the Gram block from the inner-product identity
// and D2 at 1. For a metric that already embeds isometrically this
// point is exactly feasible and bisection converges immediately.
func initialPoint(prob *sdp.Problem, lay layout) []float64 {
	n := prob.N
	x := make([]float64, lay.total)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x[lay.offDelta+i*n+j] = prob.DistSq.At(i, j)
		}
	}
	m := n - 1
	for i := 1; i < n; i++ {
		for j := 1; j < n; j++ {
			x[lay.offG+(i-1)*m+(j-1)] = (prob.DistSq.At(0, i) + prob.DistSq.At(0, j) - prob.DistSq.At(i, j)) / 2
		}
	}
	x[lay.offD2] = 1
	return x
}

// project runs cyclic projection sweeps at objective level t. The
// sweep budget is adaptive: it keeps going while the best violation
// still improves, declares the level empty when progress stalls, and
// reports an unresolved verdict if the hard cap runs out first.
func (p *Projection) project(x []float64, rows []row, hasPSD bool, lay layout, objIdx int, t, scale float64) feasOutcome {
	tol := p.tol * scale
	best := math.Inf(1)
	checkpoint := math.Inf(1)
	for it := 0; it < p.maxIters; it++ {
		v := violation(x, rows, hasPSD, lay, objIdx, t)
		if v < tol {
			return feasYes
		}
		if v < best {
			best = v
		}
		if it%stallWindow == stallWindow-1 {
			if best > stallFactor*checkpoint {
				return feasNo
			}
			checkpoint = best
		}
		for _, r := range rows {
			v := 0.0
			for k, i := range r.idx {
				v += r.coef[k] * x[i]
			}
			if r.eq || v < r.rhs {
				step := (r.rhs - v) / r.norm2
				for k, i := range r.idx {
					x[i] += step * r.coef[k]
				}
			}
		}
		if x[objIdx] > t {
			x[objIdx] = t
		}
		if hasPSD {
			projectPSD(x, lay.offG, lay.n-1)
		}
	}
	if violation(x, rows, hasPSD, lay, objIdx, t) < tol {
		return feasYes
	}
	return feasUnresolved
}

func violation(x []float64, rows []row, hasPSD bool, lay layout, objIdx int, t float64) float64 {
	worst := 0.0
	for _, r := range rows {
		v := 0.0
		for k, i := range r.idx {
			v += r.coef[k] * x[i]
		}
		d := r.rhs - v
		if r.eq {
			d = math.Abs(d)
		}
		if d > worst {
			worst = d
		}
	}
	if d := x[objIdx] - t; d > worst {
		worst = d
	}
	if hasPSD {
		if d := -minEigenvalue(x, lay.offG, lay.n-1); d > worst {
			worst = d
		}
	}
	return worst
}

// projectPSD replaces the Gram block with its nearest PSD matrix:
// symmetrize, then clip negative eigenvalues to zero.
func projectPSD(x []float64, off, m int) {
	if m == 0 {
		return
	}
	buf := make([]float64, m*m)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			buf[i*m+j] = (x[off+i*m+j] + x[off+j*m+i]) / 2
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(m, buf), true) {
		return
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			sum := 0.0
			for k := 0; k < m; k++ {
				if vals[k] > 0 {
					sum += vals[k] * vecs.At(i, k) * vecs.At(j, k)
				}
			}
			x[off+i*m+j] = sum
		}
	}
}

func minEigenvalue(x []float64, off, m int) float64 {
	if m == 0 {
		return 0
	}
	buf := make([]float64, m*m)
	asym := 0.0
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			buf[i*m+j] = (x[off+i*m+j] + x[off+j*m+i]) / 2
			if d := math.Abs(x[off+i*m+j] - x[off+j*m+i]); d > asym {
				asym = d
			}
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(m, buf), false) {
		return math.Inf(-1)
	}
	vals := eig.Values(nil)
	// Eigenvalues come back in ascending order; an asymmetric block is
	// itself a violation.
	return vals[0] - asym
}
