package mec

import (
	"errors"
	"slices"
)

// ErrGraphHasCycle is returned by [DAG.Validate] when a directed cycle is
// detected. Cycles are found with depth-first search using white/gray/black
// coloring.
var ErrGraphHasCycle = errors.New("graph contains a cycle")

// EdgeState is the state of an ordered node pair (i, j) in a CPDAG.
type EdgeState int8

const (
	// Absent means no relation exists between the pair.
	Absent EdgeState = 0
	// Directed means the edge i→j is oriented.
	Directed EdgeState = 1
	// Undirected means the edge is present but its orientation is unknown.
	// Undirected entries are symmetric: At(i,j) == At(j,i) == Undirected.
	Undirected EdgeState = -1
)

// Edge is a directed edge u→v.
type Edge struct {
	From int
	To   int
}

// Intervention is a set of node indices perturbed together.
type Intervention []int

// Contains reports whether node v is part of the intervention.
func (iv Intervention) Contains(v int) bool { return slices.Contains(iv, v) }

// Batch is an ordered list of interventions. Order does not affect the
// final resolved structure (orientation is commutative) but does affect
// incremental scoring.
type Batch []Intervention

// Clone returns a deep copy of the batch.
func (b Batch) Clone() Batch {
	out := make(Batch, len(b))
	for i, iv := range b {
		out[i] = slices.Clone(iv)
	}
	return out
}

// DAG is a directed acyclic relation over n indexed nodes, stored as a
// dense row-major adjacency matrix. It is the single source of truth used
// to resolve ambiguous edges during intervention simulation and is never
// mutated after construction.
type DAG struct {
	n int
	a []int8
}

// NewDAG creates an empty DAG over n nodes.
func NewDAG(n int) *DAG {
	return &DAG{n: n, a: make([]int8, n*n)}
}

// N returns the number of nodes.
func (d *DAG) N() int { return d.n }

// AddEdge adds the directed edge u→v. Acyclicity is not checked; use
// Validate after construction if the input is untrusted.
func (d *DAG) AddEdge(u, v int) { d.a[u*d.n+v] = 1 }

// Has reports whether the edge u→v exists.
func (d *DAG) Has(u, v int) bool { return d.a[u*d.n+v] == 1 }

// EdgeCount returns the number of directed edges.
func (d *DAG) EdgeCount() int {
	count := 0
	for _, x := range d.a {
		if x == 1 {
			count++
		}
	}
	return count
}

// Edges returns all directed edges in row-major order.
func (d *DAG) Edges() []Edge {
	var edges []Edge
	for u := 0; u < d.n; u++ {
		for v := 0; v < d.n; v++ {
			if d.a[u*d.n+v] == 1 {
				edges = append(edges, Edge{u, v})
			}
		}
	}
	return edges
}

// Parents returns the nodes with an edge into v, in increasing index order.
func (d *DAG) Parents(v int) []int {
	var parents []int
	for u := 0; u < d.n; u++ {
		if d.a[u*d.n+v] == 1 {
			parents = append(parents, u)
		}
	}
	return parents
}

// Clone returns a deep copy.
func (d *DAG) Clone() *DAG {
	return &DAG{n: d.n, a: slices.Clone(d.a)}
}

// Validate checks that the relation is acyclic and returns ErrGraphHasCycle
// otherwise. The orientation operations themselves never call this; it is a
// precondition the caller may enforce.
func (d *DAG) Validate() error {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, d.n)
	var hasCycle bool

	var dfs func(u int)
	dfs = func(u int) {
		color[u] = gray
		for v := 0; v < d.n; v++ {
			if d.a[u*d.n+v] != 1 {
				continue
			}
			switch color[v] {
			case white:
				dfs(v)
			case gray:
				hasCycle = true
				return
			}
		}
		color[u] = black
	}

	for u := 0; u < d.n; u++ {
		if color[u] == white {
			dfs(u)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// CPDAG is a partially directed equivalence-class graph over the same nodes
// as its source DAG, stored as a dense row-major matrix of [EdgeState].
// Directed entries are one-sided (At(i,j)==Directed implies At(j,i)==Absent);
// undirected entries are symmetric.
type CPDAG struct {
	n int
	a []int8
}

// NewCPDAG creates an empty CPDAG over n nodes.
func NewCPDAG(n int) *CPDAG {
	return &CPDAG{n: n, a: make([]int8, n*n)}
}

// N returns the number of nodes.
func (c *CPDAG) N() int { return c.n }

// At returns the state of the ordered pair (i, j).
func (c *CPDAG) At(i, j int) EdgeState { return EdgeState(c.a[i*c.n+j]) }

// SetUndirected marks the pair {i, j} as an undirected edge.
func (c *CPDAG) SetUndirected(i, j int) {
	c.a[i*c.n+j] = int8(Undirected)
	c.a[j*c.n+i] = int8(Undirected)
}

// SetDirected orients the pair as i→j, clearing the reverse entry.
func (c *CPDAG) SetDirected(i, j int) {
	c.a[i*c.n+j] = int8(Directed)
	c.a[j*c.n+i] = int8(Absent)
}

// SetAbsent removes any relation between the pair.
func (c *CPDAG) SetAbsent(i, j int) {
	c.a[i*c.n+j] = int8(Absent)
	c.a[j*c.n+i] = int8(Absent)
}

// Clone returns a deep copy. Callers must Clone before any speculative
// evaluation that mutates the graph.
func (c *CPDAG) Clone() *CPDAG {
	return &CPDAG{n: c.n, a: slices.Clone(c.a)}
}

// Equal reports whether two CPDAGs have identical edge states.
func (c *CPDAG) Equal(o *CPDAG) bool {
	return c.n == o.n && slices.Equal(c.a, o.a)
}

// Score returns the number of directed edges, the raw
// orientation-progress metric.
func (c *CPDAG) Score() int {
	count := 0
	for _, x := range c.a {
		if x == int8(Directed) {
			count++
		}
	}
	return count
}

// DirectedEdges returns every directed edge in row-major order.
func (c *CPDAG) DirectedEdges() []Edge {
	var edges []Edge
	for u := 0; u < c.n; u++ {
		for v := 0; v < c.n; v++ {
			if c.a[u*c.n+v] == int8(Directed) {
				edges = append(edges, Edge{u, v})
			}
		}
	}
	return edges
}

// UndirectedNeighbors returns all nodes with an undirected edge to v, in
// increasing index order.
func (c *CPDAG) UndirectedNeighbors(v int) []int {
	var nbrs []int
	for i := 0; i < c.n; i++ {
		if c.a[v*c.n+i] == int8(Undirected) {
			nbrs = append(nbrs, i)
		}
	}
	return nbrs
}

// AmbiguousNodes returns all nodes incident to at least one undirected
// edge. These are the nodes still worth intervening on.
func (c *CPDAG) AmbiguousNodes() []int {
	var nodes []int
	for v := 0; v < c.n; v++ {
		for i := 0; i < c.n; i++ {
			if c.a[v*c.n+i] == int8(Undirected) {
				nodes = append(nodes, v)
				break
			}
		}
	}
	return nodes
}

// UndirectedEdges returns every undirected pair {i, j} once, as i < j.
func (c *CPDAG) UndirectedEdges() []Edge {
	var edges []Edge
	for i := 0; i < c.n; i++ {
		for j := i + 1; j < c.n; j++ {
			if c.a[i*c.n+j] == int8(Undirected) {
				edges = append(edges, Edge{i, j})
			}
		}
	}
	return edges
}

// SkeletonAndColliders builds the undirected skeleton of the true DAG and
// orients every unshielded collider: for each node, every pair of parents
// with no edge between them has both edges oriented into the child.
//
// The scan is O(N³) in the naive pairwise-parent form. Orientation checks
// read the partially mutated matrix, so a pair whose connecting edge was
// already collider-oriented is treated by the same one-sided adjacency test
// the closure rules use.
func SkeletonAndColliders(d *DAG) *CPDAG {
	n := d.n
	c := NewCPDAG(n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d.Has(i, j) || d.Has(j, i) {
				c.SetUndirected(i, j)
			}
		}
	}

	for i := 0; i < n; i++ {
		parents := d.Parents(i)
		for pj := 0; pj < len(parents); pj++ {
			for pk := pj + 1; pk < len(parents); pk++ {
				j, k := parents[pj], parents[pk]
				if c.At(j, k) == Absent {
					c.SetDirected(j, i)
					c.SetDirected(k, i)
				}
			}
		}
	}

	return c
}

// Observational returns the maximally oriented CPDAG identifiable from
// observational data alone: SkeletonAndColliders followed by a full
// closure under the orientation rules.
func Observational(d *DAG) *CPDAG {
	c := SkeletonAndColliders(d)
	c.Closure(nil, CloseOptions{})
	return c
}
