package metric

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestFromMatrix(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0, 3, 3, 0})
	dist := FromMatrix(m)

	d, err := dist(0, 1)
	if err != nil {
		t.Fatalf("dist failed: %v", err)
	}
	if d != 3 {
		t.Errorf("Expected distance 3, got %v", d)
	}

	if _, err := dist(0, 2); err == nil {
		t.Error("Expected error for out-of-range index")
	}
	if _, err := dist(-1, 0); err == nil {
		t.Error("Expected error for negative index")
	}
}

func TestEuclidean(t *testing.T) {
	points := [][]float64{{0, 0}, {3, 4}}
	dist, err := Euclidean(points)
	if err != nil {
		t.Fatalf("Euclidean failed: %v", err)
	}

	d, err := dist(0, 1)
	if err != nil {
		t.Fatalf("dist failed: %v", err)
	}
	if math.Abs(d-5) > 1e-12 {
		t.Errorf("Expected distance 5, got %v", d)
	}

	if _, err := dist(0, 5); err == nil {
		t.Error("Expected error for out-of-range index")
	}
}

func TestEuclideanRejectsBadInput(t *testing.T) {
	if _, err := Euclidean(nil); err == nil {
		t.Error("Expected error for empty point set")
	}
	if _, err := Euclidean([][]float64{{0, 0}, {1}}); err == nil {
		t.Error("Expected error for mismatched dimensions")
	}
}

func TestGraphShortestPath(t *testing.T) {
	// Path graph 0-1-2-3 with unit weights plus a shortcut 0-3.
	edges := []Edge{
		{U: 0, V: 1, W: 1},
		{U: 1, V: 2, W: 1},
		{U: 2, V: 3, W: 1},
		{U: 0, V: 3, W: 1.5},
	}
	dist, err := GraphShortestPath(4, edges)
	if err != nil {
		t.Fatalf("GraphShortestPath failed: %v", err)
	}

	cases := []struct {
		i, j int
		want float64
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0, 2, 2},
		{0, 3, 1.5},  // shortcut beats the path
		{1, 3, 2},    // 1-2-3
		{3, 1, 2},    // symmetric
	}
	for _, c := range cases {
		got, err := dist(c.i, c.j)
		if err != nil {
			t.Fatalf("dist(%d,%d) failed: %v", c.i, c.j, err)
		}
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("dist(%d,%d) = %v, want %v", c.i, c.j, got, c.want)
		}
	}

	if _, err := dist(0, 4); err == nil {
		t.Error("Expected error for out-of-range index")
	}
}

func TestGraphShortestPathParallelEdgesKeepMin(t *testing.T) {
	edges := []Edge{
		{U: 0, V: 1, W: 5},
		{U: 0, V: 1, W: 2},
	}
	dist, err := GraphShortestPath(2, edges)
	if err != nil {
		t.Fatalf("GraphShortestPath failed: %v", err)
	}
	if d, _ := dist(0, 1); d != 2 {
		t.Errorf("Expected minimum parallel edge weight 2, got %v", d)
	}
}

func TestGraphShortestPathRejectsBadInput(t *testing.T) {
	if _, err := GraphShortestPath(0, nil); err == nil {
		t.Error("Expected error for zero vertices")
	}
	if _, err := GraphShortestPath(2, []Edge{{U: 0, V: 5, W: 1}}); err == nil {
		t.Error("Expected error for out-of-range edge")
	}
	if _, err := GraphShortestPath(2, []Edge{{U: 0, V: 1, W: -1}}); err == nil {
		t.Error("Expected error for negative weight")
	}
	if _, err := GraphShortestPath(3, []Edge{{U: 0, V: 1, W: 1}}); err == nil {
		t.Error("Expected error for disconnected graph")
	}
}
