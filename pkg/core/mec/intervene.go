package mec

import (
	interrors "github.com/causalkit/intervene/pkg/errors"
)

// SimulateOptions configures SimulateIntervention.
type SimulateOptions struct {
	// Hard selects hard (perfect) interventions, the only kind
	// implemented. Soft interventions return an UNSUPPORTED error.
	Hard bool

	// IsTree restricts the follow-up closure to R1 only.
	IsTree bool
}

// SimulateIntervention applies a batch of hard interventions to the CPDAG,
// mutating it in place. For every node v in every intervention, every
// still-undirected edge between v and a node outside that intervention has
// its state copied from the true DAG: a hard intervention reveals the
// orientation of every edge incident to an intervened node relative to
// non-intervened nodes.
//
// The newly oriented edges then seed an incremental closure with SkipR3
// set: interventions reveal R0-type information only and cannot create new
// unshielded colliders, so the collider-avoidance rule can never fire.
func SimulateIntervention(d *DAG, c *CPDAG, batch Batch, opts SimulateOptions) error {
	if !opts.Hard {
		return interrors.New(interrors.ErrCodeUnsupported, "soft interventions are not implemented")
	}

	n := d.n
	newEdges := make([]Edge, 0)
	for _, iv := range batch {
		for _, v := range iv {
			for i := 0; i < n; i++ {
				if iv.Contains(i) {
					continue
				}
				if c.At(v, i) != Undirected {
					continue
				}
				switch {
				case d.Has(v, i):
					c.SetDirected(v, i)
					newEdges = append(newEdges, Edge{v, i})
				case d.Has(i, v):
					c.SetDirected(i, v)
					newEdges = append(newEdges, Edge{i, v})
				default:
					// Undirected in the CPDAG but absent in the DAG:
					// inconsistent input; the edge is dropped, not repaired.
					c.SetAbsent(v, i)
				}
			}
		}
	}

	c.Closure(newEdges, CloseOptions{SkipR3: true, IsTree: opts.IsTree})
	return nil
}

// OrientFromRoot fully resolves a tree-shaped equivalence class by
// orienting every undirected edge away from the chosen root, outward until
// no undirected edge touches an oriented node. The CPDAG is mutated in
// place and the resulting DAG is returned.
//
// Outside tree MECs the result is meaningless (silently arbitrary);
// callers must gate on their IsTree knowledge.
func OrientFromRoot(c *CPDAG, root int) *DAG {
	n := c.n
	frontier := []int{root}
	for len(frontier) > 0 {
		u := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for i := 0; i < n; i++ {
			if c.At(u, i) == Undirected {
				c.SetDirected(u, i)
				frontier = append(frontier, i)
			}
		}
	}

	d := NewDAG(n)
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			if c.At(u, v) == Directed {
				d.AddEdge(u, v)
			}
		}
	}
	return d
}
