package mec

// CloseOptions selects which propagation rules Closure applies. These are
// explicit per-call mode values, never global state.
type CloseOptions struct {
	// SkipR3 disables the collider-avoidance diamond rule. Valid whenever
	// the seed edges cannot create new unshielded colliders, which holds
	// for edges revealed by hard interventions.
	SkipR3 bool

	// IsTree restricts propagation to R1 only, which is sufficient and
	// necessary when the equivalence class is a tree.
	IsTree bool
}

// Closure applies the four orientation-propagation rules to a worklist of
// newly directed edges until no rule fires, mutating the CPDAG in place.
//
// A nil seed starts the worklist from every already-directed edge (full
// re-closure). A non-nil seed starts from only those edges, which is far
// cheaper after a single intervention. An empty non-nil seed is a no-op.
//
// The rules, stated on a just-oriented edge u→v:
//
//   - R1: for every d with an undirected edge to v, if u and d are
//     non-adjacent, orient v→d (avoids a new unshielded collider).
//   - R2: for every w→u, if w–v is undirected, orient w→v; for every v→w,
//     if w–u is undirected, orient u→w (avoids a directed cycle).
//   - R3: for every w→v with w ≠ u and every t with t–u, t–w, t–v all
//     undirected and u, w non-adjacent, orient t→v.
//   - R4: for every v→w and every t adjacent to v, if t–u and t–w are
//     undirected and u, w non-adjacent, orient t→w; applied symmetrically
//     with the seed edge as the bottom edge of the pattern.
//
// Each rule fires only on edges still undirected at the moment of the
// check; conditions are evaluated against the mutating matrix, so the
// first orientation wins. The loop terminates because every firing
// strictly reduces the number of undirected edges.
func (c *CPDAG) Closure(seed []Edge, opts CloseOptions) {
	n := c.n
	latest := seed
	if latest == nil {
		latest = c.DirectedEdges()
	}

	for len(latest) > 0 {
		var next []Edge
		seen := make(map[Edge]bool)
		record := func(e Edge) {
			if !seen[e] {
				seen[e] = true
				next = append(next, e)
			}
		}

		// R1: avoid new unshielded colliders.
		for _, e := range latest {
			u, v := e.From, e.To
			for _, d := range c.UndirectedNeighbors(v) {
				if c.At(v, d) != Undirected {
					continue
				}
				if c.At(d, u) == Absent && c.At(u, d) == Absent && u != d {
					c.SetDirected(v, d)
					record(Edge{v, d})
				}
			}
		}

		if !opts.IsTree {
			// R2: avoid directed cycles through the seed edge.
			for _, e := range latest {
				u, v := e.From, e.To
				for w := 0; w < n; w++ {
					if c.At(w, u) == Directed && c.At(w, v) == Undirected {
						c.SetDirected(w, v)
						record(Edge{w, v})
					}
				}
				for w := 0; w < n; w++ {
					if c.At(v, w) == Directed && c.At(w, u) == Undirected {
						c.SetDirected(u, w)
						record(Edge{u, w})
					}
				}
			}

			// R3: collider avoidance across a diamond. The diagonal t–v
			// must itself be undirected.
			if !opts.SkipR3 {
				for _, e := range latest {
					u, v := e.From, e.To
					for w := 0; w < n; w++ {
						if c.At(w, v) != Directed || w == u {
							continue
						}
						for t := 0; t < n; t++ {
							if t == u || t == w || t == v {
								continue
							}
							if c.At(t, u) == Undirected && c.At(t, w) == Undirected &&
								c.At(t, v) == Undirected &&
								c.At(u, w) == Absent && c.At(w, u) == Absent {
								c.SetDirected(t, v)
								record(Edge{t, v})
							}
						}
					}
				}
			}

			// R4, seed edge on top: u→v with a directed v→w below.
			for _, e := range latest {
				u, v := e.From, e.To
				nodesOut := c.directedFrom(v)
				if len(nodesOut) == 0 {
					continue
				}
				diags := c.diagonalCandidates(v)
				for _, w := range nodesOut {
					for _, t := range diags {
						if t == u || t == w {
							continue
						}
						if c.At(t, u) == Undirected && c.At(t, w) == Undirected &&
							c.At(u, w) == Absent && c.At(w, u) == Absent {
							c.SetDirected(t, w)
							record(Edge{t, w})
						}
					}
				}
			}

			// R4, seed edge on the bottom: v→w with a directed u→v above.
			for _, e := range latest {
				v, w := e.From, e.To
				nodesIn := c.directedInto(v)
				if len(nodesIn) == 0 {
					continue
				}
				diags := c.diagonalCandidates(v)
				for _, u := range nodesIn {
					for _, t := range diags {
						if t == u || t == w {
							continue
						}
						if c.At(t, u) == Undirected && c.At(t, w) == Undirected &&
							c.At(u, w) == Absent && c.At(w, u) == Absent {
							c.SetDirected(t, w)
							record(Edge{t, w})
						}
					}
				}
			}
		}

		latest = next
	}
}

// directedFrom returns all w with v→w directed.
func (c *CPDAG) directedFrom(v int) []int {
	var out []int
	for w := 0; w < c.n; w++ {
		if c.At(v, w) == Directed {
			out = append(out, w)
		}
	}
	return out
}

// directedInto returns all u with u→v directed.
func (c *CPDAG) directedInto(v int) []int {
	var in []int
	for u := 0; u < c.n; u++ {
		if c.At(u, v) == Directed {
			in = append(in, u)
		}
	}
	return in
}

// diagonalCandidates returns the R4 diagonal pool around v: nodes with a
// directed edge into v, then nodes v points at, then undirected neighbors
// of v, concatenated in that order.
func (c *CPDAG) diagonalCandidates(v int) []int {
	diags := c.directedInto(v)
	diags = append(diags, c.directedFrom(v)...)
	diags = append(diags, c.UndirectedNeighbors(v)...)
	return diags
}
