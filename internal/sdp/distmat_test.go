package sdp

import (
	"errors"
	"math"
	"testing"
)

func TestSquaredDistancesCallCount(t *testing.T) {
	calls := 0
	dist := func(i, j int) (float64, error) {
		calls++
		return float64(i + j), nil
	}

	m, err := SquaredDistances(4, dist)
	if err != nil {
		t.Fatalf("SquaredDistances failed: %v", err)
	}

	if calls != 16 {
		t.Errorf("Expected 16 oracle calls, got %d", calls)
	}

	// Entries are the squared oracle outputs.
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := float64((i + j) * (i + j))
			if got := m.At(i, j); got != want {
				t.Errorf("Entry (%d,%d) = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestSquaredDistancesOracleErrorPropagates(t *testing.T) {
	oracleErr := errors.New("distance table lookup failed")
	dist := func(i, j int) (float64, error) {
		if i == 2 && j == 1 {
			return 0, oracleErr
		}
		return 1, nil
	}

	_, err := SquaredDistances(3, dist)
	if err == nil {
		t.Fatal("Expected error from failing oracle")
	}
	// The oracle's error surfaces unchanged, not wrapped.
	if err != oracleErr {
		t.Errorf("Expected the oracle error itself, got %v", err)
	}
}

func TestSquaredDistancesBadInput(t *testing.T) {
	dist := func(i, j int) (float64, error) { return 0, nil }

	if _, err := SquaredDistances(0, dist); err == nil {
		t.Error("Expected error for n=0")
	}
	if _, err := SquaredDistances(-3, dist); err == nil {
		t.Error("Expected error for negative n")
	}
	if _, err := SquaredDistances(2, nil); err == nil {
		t.Error("Expected error for nil oracle")
	}
}

func TestSquaredDistancesAsymmetryPreserved(t *testing.T) {
	// Symmetry is not enforced; the matrix records whatever the
	// oracle returns for each ordered pair.
	dist := func(i, j int) (float64, error) {
		if i < j {
			return 2, nil
		}
		if i > j {
			return 3, nil
		}
		return 0, nil
	}

	m, err := SquaredDistances(2, dist)
	if err != nil {
		t.Fatalf("SquaredDistances failed: %v", err)
	}
	if math.Abs(m.At(0, 1)-4) > 1e-15 || math.Abs(m.At(1, 0)-9) > 1e-15 {
		t.Errorf("Asymmetric entries not preserved: got (%v, %v)", m.At(0, 1), m.At(1, 0))
	}
}
