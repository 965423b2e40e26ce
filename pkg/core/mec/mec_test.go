package mec

import (
	"errors"
	"testing"
)

// chainDAG builds 0→1→…→n-1.
func chainDAG(n int) *DAG {
	d := NewDAG(n)
	for i := 0; i < n-1; i++ {
		d.AddEdge(i, i+1)
	}
	return d
}

func TestValidate_Acyclic(t *testing.T) {
	d := chainDAG(4)
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Cycle(t *testing.T) {
	d := NewDAG(3)
	d.AddEdge(0, 1)
	d.AddEdge(1, 2)
	d.AddEdge(2, 0)
	if err := d.Validate(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("Validate() = %v, want ErrGraphHasCycle", err)
	}
}

func TestSkeletonAndColliders_Chain(t *testing.T) {
	// A pure chain has no unshielded colliders: complete ambiguity.
	d := chainDAG(4)
	c := SkeletonAndColliders(d)
	if got := c.Score(); got != 0 {
		t.Errorf("Score() = %d, want 0", got)
	}
	for i := 0; i < 3; i++ {
		if c.At(i, i+1) != Undirected || c.At(i+1, i) != Undirected {
			t.Errorf("edge %d–%d not undirected", i, i+1)
		}
	}
}

func TestSkeletonAndColliders_Collider(t *testing.T) {
	// 0→1←2 with 0,2 non-adjacent: both edges orient from the skeleton
	// alone, no closure needed.
	d := NewDAG(3)
	d.AddEdge(0, 1)
	d.AddEdge(2, 1)
	c := SkeletonAndColliders(d)
	if got := c.Score(); got != 2 {
		t.Errorf("Score() = %d, want 2", got)
	}
	if c.At(0, 1) != Directed || c.At(2, 1) != Directed {
		t.Errorf("collider edges not oriented into child: At(0,1)=%d At(2,1)=%d", c.At(0, 1), c.At(2, 1))
	}
}

func TestObservational_ChainStaysAmbiguous(t *testing.T) {
	c := Observational(chainDAG(4))
	if got := c.Score(); got != 0 {
		t.Errorf("Score() = %d, want 0", got)
	}
}

func TestObservational_YStructure(t *testing.T) {
	// 0→2←1 plus 2→3: the collider orients 0→2, 1→2, then R1 propagates
	// 2→3 (otherwise 3→2 would create a new unshielded collider).
	d := NewDAG(4)
	d.AddEdge(0, 2)
	d.AddEdge(1, 2)
	d.AddEdge(2, 3)
	c := Observational(d)
	if got := c.Score(); got != 3 {
		t.Errorf("Score() = %d, want 3", got)
	}
	if c.At(2, 3) != Directed {
		t.Errorf("At(2,3) = %d, want Directed", c.At(2, 3))
	}
}

func TestClosure_Idempotent(t *testing.T) {
	d := NewDAG(5)
	d.AddEdge(0, 2)
	d.AddEdge(1, 2)
	d.AddEdge(2, 3)
	d.AddEdge(3, 4)
	d.AddEdge(1, 4)
	c := Observational(d)

	again := c.Clone()
	again.Closure(nil, CloseOptions{})
	if !c.Equal(again) {
		t.Error("second full closure changed the CPDAG")
	}
}

func TestClone_NoAliasing(t *testing.T) {
	c := Observational(chainDAG(3))
	snap := c.Clone()
	c.SetDirected(0, 1)
	if snap.At(0, 1) != Undirected {
		t.Error("Clone shares backing storage with the original")
	}
}
