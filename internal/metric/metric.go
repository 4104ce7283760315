// Package metric builds distance oracles for the distortion solver:
// explicit distance matrices, Euclidean point sets, and shortest-path
// metrics over weighted graphs.
package metric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/distortfit/internal/sdp"
)

// FromMatrix returns an oracle reading distances from an explicit
// matrix. Out-of-range indices are oracle errors at call time.
func FromMatrix(m *mat.Dense) sdp.DistFunc {
	r, c := m.Dims()
	return func(i, j int) (float64, error) {
		if i < 0 || i >= r || j < 0 || j >= c {
			return 0, fmt.Errorf("metric: index (%d,%d) out of range for %dx%d matrix", i, j, r, c)
		}
		return m.At(i, j), nil
	}
}

// Euclidean returns an oracle over the pairwise L2 distances of the
// given coordinate rows. All rows must share one dimension.
func Euclidean(points [][]float64) (sdp.DistFunc, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("metric: no points")
	}
	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("metric: point %d has dimension %d, want %d", i, len(p), dim)
		}
	}
	return func(i, j int) (float64, error) {
		if i < 0 || i >= len(points) || j < 0 || j >= len(points) {
			return 0, fmt.Errorf("metric: index (%d,%d) out of range for %d points", i, j, len(points))
		}
		return floats.Distance(points[i], points[j], 2), nil
	}, nil
}

// Edge is one weighted undirected edge of a graph metric.
type Edge struct {
	U, V int
	W    float64
}

// GraphShortestPath precomputes the all-pairs shortest-path metric of a
// weighted undirected graph with n vertices via Floyd-Warshall and
// returns an oracle over it. Weights must be nonnegative and the graph
// must be connected; both are checked up front so the oracle itself
// never fails on an in-range pair.
func GraphShortestPath(n int, edges []Edge) (sdp.DistFunc, error) {
	if n < 1 {
		return nil, fmt.Errorf("metric: vertex count must be at least 1, got %d", n)
	}

	d := make([]float64, n*n)
	for i := range d {
		d[i] = math.Inf(1)
	}
	for i := 0; i < n; i++ {
		d[i*n+i] = 0
	}
	for _, e := range edges {
		if e.U < 0 || e.U >= n || e.V < 0 || e.V >= n {
			return nil, fmt.Errorf("metric: edge (%d,%d) out of range for %d vertices", e.U, e.V, n)
		}
		if e.W < 0 {
			return nil, fmt.Errorf("metric: negative weight %g on edge (%d,%d)", e.W, e.U, e.V)
		}
		if e.W < d[e.U*n+e.V] {
			d[e.U*n+e.V] = e.W
			d[e.V*n+e.U] = e.W
		}
	}

	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			ik := d[i*n+k]
			if math.IsInf(ik, 1) {
				continue
			}
			for j := 0; j < n; j++ {
				if via := ik + d[k*n+j]; via < d[i*n+j] {
					d[i*n+j] = via
				}
			}
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.IsInf(d[i*n+j], 1) {
				return nil, fmt.Errorf("metric: graph is disconnected, no path from %d to %d", i, j)
			}
		}
	}

	return func(i, j int) (float64, error) {
		if i < 0 || i >= n || j < 0 || j >= n {
			return 0, fmt.Errorf("metric: index (%d,%d) out of range for %d vertices", i, j, n)
		}
		return d[i*n+j], nil
	}, nil
}
