// Package sepsys builds separating systems: static collections of
// candidate intervention targets that together resolve every ambiguous
// edge of an equivalence class.
//
// Two constructions are provided. [Construct] is structure-agnostic: it
// assigns each node a balanced multi-digit label and emits one candidate
// per (digit position, digit value), which separates every pair of nodes.
// [Structured] is tailored to a CPDAG snapshot: it covers the residual
// undirected skeleton with an approximate minimum vertex cover, colors the
// induced subgraph, and chunks each color class into groups of at most k
// nodes. Structured systems are much smaller when ambiguity is sparse but
// must be rebuilt if the snapshot changes materially.
package sepsys

import (
	"sort"

	"github.com/causalkit/intervene/pkg/core/mec"
)

// Construct builds a structure-agnostic separating system for n nodes
// with per-intervention cap k.
//
// It forms a = ⌈n/k⌉ groups and assigns each node an l = ⌈log_a n⌉-digit
// label over alphabet size a such that in every digit position each value
// is used by at most a nodes per aligned block. Every (position, value)
// pair becomes one candidate; every pair of distinct nodes differs in some
// digit and is therefore separated by some candidate of size at most k.
//
// Degenerate inputs (n < 2, or a < 2 because k ≥ n) return nil; callers
// treat an empty system as the recoverable fallback case.
func Construct(n, k int) []mec.Intervention {
	if n < 2 || k < 1 {
		return nil
	}
	a := ceilDiv(n, k)
	if a < 2 {
		return nil
	}

	// l = smallest integer with a^l ≥ n.
	l := 0
	for p := 1; p < n; p *= a {
		l++
	}

	labels := make([][]int, n)

	for dInd := 0; dInd < l; dInd++ {
		ad := ipow(a, dInd+1)
		adInd := ipow(a, dInd)
		pD := n / ad
		rD := n % ad
		pD1 := n / adInd

		// Step one: fill aligned blocks of a^dInd nodes with a cycling
		// digit value.
		count := 0
		num := 0
		for count < pD*ad {
			amount := min(pD*ad-count, adInd)
			for t := 0; t < amount; t++ {
				labels[count] = append(labels[count], num)
				count++
			}
			num++
			if num > a-1 {
				num = 0
			}
		}

		// Step two: spread the remainder over ⌈r/a⌉-sized runs without
		// wrapping the digit value.
		num = 0
		for count < n {
			amount := min(ceilDiv(rD, a), n-count)
			if amount == 0 {
				break
			}
			for t := 0; t < amount; t++ {
				labels[count] = append(labels[count], num)
				count++
			}
			num++
		}

		// Step three: shift the tail block's newest digit by one.
		for i := adInd * pD1; i < n; i++ {
			labels[i][len(labels[i])-1]++
		}
	}

	var ss []mec.Intervention
	for pos := 0; pos < l; pos++ {
		for val := 0; val < a; val++ {
			var group mec.Intervention
			for node, label := range labels {
				if label[pos] == val {
					group = append(group, node)
				}
			}
			ss = append(ss, group)
		}
	}
	return ss
}

// Structured builds a graph-specific separating system for the current
// CPDAG snapshot: the skeleton restricted to still-undirected edges is
// covered by a 2-approximate minimum vertex cover, the induced subgraph
// on the cover is greedy-colored largest-degree-first, and each color
// class is chunked into interventions of size at most k.
func Structured(c *mec.CPDAG, k int) []mec.Intervention {
	if k < 1 {
		return nil
	}
	n := c.N()

	undirected := func(i, j int) bool { return c.At(i, j) == mec.Undirected }

	// Approximate minimum vertex cover of the residual graph: take both
	// endpoints of any uncovered edge.
	inCover := make([]bool, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if undirected(i, j) && !inCover[i] && !inCover[j] {
				inCover[i] = true
				inCover[j] = true
			}
		}
	}
	var cover []int
	for v := 0; v < n; v++ {
		if inCover[v] {
			cover = append(cover, v)
		}
	}

	// Greedy coloring of the induced subgraph, largest degree first,
	// ties by node index for determinism.
	degree := make(map[int]int, len(cover))
	for _, v := range cover {
		for _, w := range cover {
			if v != w && undirected(v, w) {
				degree[v]++
			}
		}
	}
	order := append([]int(nil), cover...)
	sort.Slice(order, func(i, j int) bool {
		if degree[order[i]] != degree[order[j]] {
			return degree[order[i]] > degree[order[j]]
		}
		return order[i] < order[j]
	})

	color := make(map[int]int, len(cover))
	maxColor := -1
	for _, v := range order {
		used := make(map[int]bool)
		for w, cw := range color {
			if undirected(v, w) {
				used[cw] = true
			}
		}
		cv := 0
		for used[cv] {
			cv++
		}
		color[v] = cv
		if cv > maxColor {
			maxColor = cv
		}
	}

	// Chunk each color class into interventions of size at most k.
	var ss []mec.Intervention
	for cv := 0; cv <= maxColor; cv++ {
		var class []int
		for _, v := range order {
			if color[v] == cv {
				class = append(class, v)
			}
		}
		for start := 0; start < len(class); start += k {
			end := min(start+k, len(class))
			ss = append(ss, mec.Intervention(class[start:end]))
		}
	}
	return ss
}

// Separates reports whether some candidate in the system contains exactly
// one of i and j.
func Separates(ss []mec.Intervention, i, j int) bool {
	for _, cand := range ss {
		if cand.Contains(i) != cand.Contains(j) {
			return true
		}
	}
	return false
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func ipow(base, exp int) int {
	out := 1
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}
