package sdp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// VarID identifies one of the three optimization variables.
type VarID int

const (
	// VarDelta is the n x n slack matrix upper-bounding each squared
	// pairwise distance.
	VarDelta VarID = iota
	// VarG is the (n-1) x (n-1) Gram matrix of the embedded points,
	// constrained positive semidefinite.
	VarG
	// VarD2 is the scalar squared-distortion bound.
	VarD2
)

func (v VarID) String() string {
	switch v {
	case VarDelta:
		return "delta"
	case VarG:
		return "G"
	case VarD2:
		return "D2"
	}
	return fmt.Sprintf("VarID(%d)", int(v))
}

// Ref addresses a scalar entry of an optimization variable.
// For the scalar VarD2, I and J are zero.
type Ref struct {
	Var  VarID
	I, J int
}

// Term is a constant coefficient applied to a single variable entry.
type Term struct {
	Coeff float64
	Ref   Ref
}

// Relation is the sense of a linear constraint.
type Relation int

const (
	// RelGE means sum of terms >= RHS.
	RelGE Relation = iota
	// RelEQ means sum of terms == RHS.
	RelEQ
)

// Constraint is a tagged constraint variant: either a linear
// (in)equality over variable entries or membership of a matrix
// variable in the PSD cone.
type Constraint interface {
	isConstraint()
}

// LinearConstraint is sum(Terms) Rel RHS.
type LinearConstraint struct {
	Terms []Term
	Rel   Relation
	RHS   float64
}

// PSDConstraint requires the named matrix variable to be positive
// semidefinite.
type PSDConstraint struct {
	Var VarID
}

func (LinearConstraint) isConstraint() {}
func (PSDConstraint) isConstraint()    {}

// Problem is a fully formulated distortion SDP, ready to hand to a
// Solver. Immutable once built.
type Problem struct {
	// N is the number of vertices.
	N int

	// DistSq is the n x n squared-distance matrix the constraints
	// reference.
	DistSq *mat.Dense

	// Constraints is the complete constraint set, in declaration order.
	Constraints []Constraint

	// Objective is the variable entry to minimize (always D2 here, but
	// carried explicitly so backends need no domain knowledge).
	Objective Ref

	// Verbose asks the backend to report progress on its own channel.
	Verbose bool
}

// Formulate builds the distortion SDP for the given squared-distance
// matrix:
//
//	minimize  D2
//	s.t.      G is PSD
//	          D2 >= 0
//	          distSq[i,j] <= delta[i,j]              for i,j in [0,n)
//	          D2*distSq[i,j] >= delta[i,j]           for i,j in [1,n)
//	          G[i-1,j-1] = (delta[0,i]+delta[0,j]-delta[i,j])/2
//	                                                 for i,j in [1,n)
//
// The explicit PSD constraint is redundant with VarG's own cone
// membership but kept so the constraint set is self-describing.
// Requires n >= 2; n == 1 degenerates to an empty Gram matrix and is
// handled by the caller before formulation.
func Formulate(n int, distSq *mat.Dense, verbose bool) (*Problem, error) {
	if n < 2 {
		return nil, fmt.Errorf("sdp: formulation requires at least 2 vertices, got %d", n)
	}
	r, c := distSq.Dims()
	if r != n || c != n {
		return nil, fmt.Errorf("sdp: squared-distance matrix is %dx%d, want %dx%d", r, c, n, n)
	}

	cons := make([]Constraint, 0, 2+n*n+2*(n-1)*(n-1))

	cons = append(cons,
		PSDConstraint{Var: VarG},
		LinearConstraint{
			Terms: []Term{{Coeff: 1, Ref: Ref{Var: VarD2}}},
			Rel:   RelGE,
		},
	)

	// delta[i,j] >= distSq[i,j] for every ordered pair.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cons = append(cons, LinearConstraint{
				Terms: []Term{{Coeff: 1, Ref: Ref{Var: VarDelta, I: i, J: j}}},
				Rel:   RelGE,
				RHS:   distSq.At(i, j),
			})
		}
	}

	for i := 1; i < n; i++ {
		for j := 1; j < n; j++ {
			// D2*distSq[i,j] - delta[i,j] >= 0
			cons = append(cons, LinearConstraint{
				Terms: []Term{
					{Coeff: distSq.At(i, j), Ref: Ref{Var: VarD2}},
					{Coeff: -1, Ref: Ref{Var: VarDelta, I: i, J: j}},
				},
				Rel: RelGE,
			})
			// G[i-1,j-1] - delta[0,i]/2 - delta[0,j]/2 + delta[i,j]/2 == 0
			cons = append(cons, LinearConstraint{
				Terms: []Term{
					{Coeff: 1, Ref: Ref{Var: VarG, I: i - 1, J: j - 1}},
					{Coeff: -0.5, Ref: Ref{Var: VarDelta, I: 0, J: i}},
					{Coeff: -0.5, Ref: Ref{Var: VarDelta, I: 0, J: j}},
					{Coeff: 0.5, Ref: Ref{Var: VarDelta, I: i, J: j}},
				},
				Rel: RelEQ,
			})
		}
	}

	return &Problem{
		N:           n,
		DistSq:      distSq,
		Constraints: cons,
		Objective:   Ref{Var: VarD2},
		Verbose:     verbose,
	}, nil
}
