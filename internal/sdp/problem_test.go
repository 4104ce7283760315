package sdp

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func equilateralSq(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				m.Set(i, j, 1)
			}
		}
	}
	return m
}

func TestFormulateConstraintCount(t *testing.T) {
	n := 4
	prob, err := Formulate(n, equilateralSq(n), false)
	if err != nil {
		t.Fatalf("Formulate failed: %v", err)
	}

	// PSD + nonnegativity + n*n lower bounds + 2*(n-1)^2 pair constraints.
	want := 2 + n*n + 2*(n-1)*(n-1)
	if len(prob.Constraints) != want {
		t.Fatalf("Expected %d constraints, got %d", want, len(prob.Constraints))
	}

	psd, ok := prob.Constraints[0].(PSDConstraint)
	if !ok || psd.Var != VarG {
		t.Errorf("First constraint should be PSD on G, got %#v", prob.Constraints[0])
	}

	nonneg, ok := prob.Constraints[1].(LinearConstraint)
	if !ok || nonneg.Rel != RelGE || nonneg.RHS != 0 ||
		len(nonneg.Terms) != 1 || nonneg.Terms[0].Ref.Var != VarD2 {
		t.Errorf("Second constraint should be D2 >= 0, got %#v", prob.Constraints[1])
	}

	if prob.Objective.Var != VarD2 {
		t.Errorf("Objective should be D2, got %v", prob.Objective.Var)
	}
}

func TestFormulateGramIdentity(t *testing.T) {
	n := 4
	prob, err := Formulate(n, equilateralSq(n), false)
	if err != nil {
		t.Fatalf("Formulate failed: %v", err)
	}

	// Find the equality tying G[1,2] to the slacks for the pair (2,3).
	var found *LinearConstraint
	for _, c := range prob.Constraints {
		lc, ok := c.(LinearConstraint)
		if !ok || lc.Rel != RelEQ {
			continue
		}
		if lc.Terms[0].Ref == (Ref{Var: VarG, I: 1, J: 2}) {
			found = &lc
			break
		}
	}
	if found == nil {
		t.Fatal("No Gram equality found for G[1,2]")
	}

	want := []Term{
		{Coeff: 1, Ref: Ref{Var: VarG, I: 1, J: 2}},
		{Coeff: -0.5, Ref: Ref{Var: VarDelta, I: 0, J: 2}},
		{Coeff: -0.5, Ref: Ref{Var: VarDelta, I: 0, J: 3}},
		{Coeff: 0.5, Ref: Ref{Var: VarDelta, I: 2, J: 3}},
	}
	if len(found.Terms) != len(want) {
		t.Fatalf("Expected %d terms, got %d", len(want), len(found.Terms))
	}
	for k, term := range found.Terms {
		if term != want[k] {
			t.Errorf("Term %d = %+v, want %+v", k, term, want[k])
		}
	}
	if found.RHS != 0 {
		t.Errorf("Gram equality RHS = %v, want 0", found.RHS)
	}
}

func TestFormulateExpansionConstraintSkipsVertexZero(t *testing.T) {
	// Only pairs in [1,n) x [1,n) get the D2 upper bound; distances
	// from vertex 0 are bounded below only.
	prob, err := Formulate(3, equilateralSq(3), false)
	if err != nil {
		t.Fatalf("Formulate failed: %v", err)
	}

	for _, c := range prob.Constraints {
		lc, ok := c.(LinearConstraint)
		if !ok || lc.Rel != RelGE || len(lc.Terms) != 2 {
			continue
		}
		for _, term := range lc.Terms {
			if term.Ref.Var == VarDelta && (term.Ref.I == 0 || term.Ref.J == 0) {
				t.Errorf("Pair constraint references vertex 0: %+v", lc)
			}
		}
	}
}

func TestFormulateRejectsBadInput(t *testing.T) {
	if _, err := Formulate(1, mat.NewDense(1, 1, nil), false); err == nil {
		t.Error("Expected error for n=1")
	}
	if _, err := Formulate(3, mat.NewDense(2, 2, nil), false); err == nil {
		t.Error("Expected error for mismatched matrix dimensions")
	}
}
