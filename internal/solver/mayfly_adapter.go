package solver

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/distortfit/internal/sdp"
)

// infeasibleCost flags point configurations that cannot satisfy the
// constraints at any scale (coincident points at positive distance).
const infeasibleCost = 1e18

// penaltyWeight drives pairs with zero required distance toward
// coincident embedded points.
const penaltyWeight = 1e6

// MayflyAdapter is a derivative-free backend wrapping the external
// Mayfly library. Unlike the projection backend it is specialized to
// this problem family: it searches directly over point configurations
// x_1..x_{n-1} (vertex 0 pinned at the origin), scales the best
// configuration up until no pair is contracted, and scores D2 as the
// worst remaining expansion ratio. The search is scale-invariant, so
// unit box bounds suffice.
//
// The geometric parameterization assumes a symmetric oracle with zero
// diagonal; asymmetric entries are averaged. Accuracy is coarse by
// nature; use the projection backend when tight optima matter.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly backend adapter.
func NewMayfly(maxIters, popSize int, seed int64) sdp.Solver {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

func (m *MayflyAdapter) Solve(prob *sdp.Problem) (*sdp.Solution, error) {
	if prob == nil {
		return nil, fmt.Errorf("solver: nil problem")
	}
	n := prob.N
	if n < 2 {
		return nil, fmt.Errorf("solver: mayfly backend requires at least 2 vertices, got %d", n)
	}

	// Symmetrized squared distances; the embedding search cannot
	// represent an asymmetric program.
	d2 := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d2[i*n+j] = (prob.DistSq.At(i, j) + prob.DistSq.At(j, i)) / 2
		}
	}

	allZero := true
	for _, v := range d2 {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		// Every vertex collapses onto the origin: isometric at D2 = 0.
		m := n - 1
		return &sdp.Solution{
			Status: sdp.StatusOptimal,
			G:      make([]float64, m*m),
			Delta:  make([]float64, n*n),
		}, nil
	}

	dim := (n - 1) * (n - 1)
	eval := func(params []float64) float64 {
		cost, _, _ := score(params, n, d2)
		return cost
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = -1
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return &sdp.Solution{Status: sdp.StatusSolverError}, nil
	}

	best := result.GlobalBest.Position
	cost, alpha2, expansion := score(best, n, d2)
	if cost >= infeasibleCost {
		return &sdp.Solution{Status: sdp.StatusSolverError}, nil
	}

	// Report the clean objective value, without the penalty term.
	return packEmbedding(best, n, d2, alpha2*expansion, alpha2), nil
}

// score evaluates a point configuration. It returns the penalized
// objective, the squared scale factor that lifts the configuration
// onto the no-contraction boundary, and the post-scale worst-case
// expansion ratio.
func score(params []float64, n int, d2 []float64) (cost, alpha2, expansion float64) {
	m := n - 1
	sq := func(i, j int) float64 { // squared embedded distance, vertex 0 at origin
		var s float64
		for k := 0; k < m; k++ {
			var a, b float64
			if i > 0 {
				a = params[(i-1)*m+k]
			}
			if j > 0 {
				b = params[(j-1)*m+k]
			}
			s += (a - b) * (a - b)
		}
		return s
	}

	var penalty float64
	alpha2 = 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := sq(i, j)
			want := d2[i*n+j]
			if want == 0 {
				penalty += s
				continue
			}
			if s < 1e-12 {
				return infeasibleCost, 0, 0
			}
			if r := want / s; r > alpha2 {
				alpha2 = r
			}
		}
	}

	for i := 1; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if want := d2[i*n+j]; want > 0 {
				if r := sq(i, j) / want; r > expansion {
					expansion = r
				}
			}
		}
	}

	return alpha2*expansion + penaltyWeight*penalty, alpha2, expansion
}

// packEmbedding converts the best configuration, scaled by alpha, back
// into the SDP's variable values.
func packEmbedding(params []float64, n int, d2 []float64, d2val, alpha2 float64) *sdp.Solution {
	m := n - 1
	pts := make([][]float64, m)
	for i := range pts {
		pts[i] = make([]float64, m)
		for k := 0; k < m; k++ {
			pts[i][k] = params[i*m+k]
		}
	}
	if alpha2 > 0 {
		a := math.Sqrt(alpha2)
		for i := range pts {
			for k := range pts[i] {
				pts[i][k] *= a
			}
		}
	}

	dot := func(a, b []float64) float64 {
		var s float64
		for k := range a {
			s += a[k] * b[k]
		}
		return s
	}

	g := make([]float64, m*m)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			g[i*m+j] = dot(pts[i], pts[j])
		}
	}

	delta := make([]float64, n*n)
	delta[0] = d2[0]
	for i := 1; i < n; i++ {
		norm := dot(pts[i-1], pts[i-1])
		delta[i] = norm
		delta[i*n] = norm
		for j := 1; j < n; j++ {
			// |x_i - x_j|^2 via the inner-product identity.
			delta[i*n+j] = dot(pts[i-1], pts[i-1]) + dot(pts[j-1], pts[j-1]) - 2*g[(i-1)*m+(j-1)]
		}
	}

	return &sdp.Solution{
		Status: sdp.StatusOptimal,
		D2:     d2val,
		G:      g,
		Delta:  delta,
	}
}
