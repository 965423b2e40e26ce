package estimate

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/causalkit/intervene/pkg/cache"
	"github.com/causalkit/intervene/pkg/core/mec"
	interrors "github.com/causalkit/intervene/pkg/errors"
)

// Hessian estimates the node-space Hessian at x given the committed base
// batch. The threshold vector e selects the conditioning subset
// S = {s : e[s] < x[s]}; entry (i,j) accumulates the second difference
// f(S∪{i,j}) − f(S∪{i}) − f(S∪{j}) + f(S∖{i,j}). Only the upper triangle
// is populated; consumers multiply against iterate differences and rely on
// that shape.
func (e *Estimator) Hessian(ctx context.Context, base mec.Batch, x, thresh mat.Vector) (*mat.Dense, error) {
	n := e.CPDAG.N()
	if x.Len() != n || thresh.Len() != n {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "Hessian point has %d/%d coordinates, CPDAG has %d nodes", x.Len(), thresh.Len(), n)
	}
	dags, err := e.draw(ctx)
	if err != nil {
		return nil, err
	}

	repeats := max(1, e.Repeats)
	norm := float64(len(dags) * repeats)
	hess := mat.NewDense(n, n, nil)

	for _, dag := range dags {
		memo := cache.NewMemo()
		for r := 0; r < repeats; r++ {
			S := threshold(x, thresh)
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					second := 0.0
					for _, term := range secondDifference(S, i, j) {
						score, err := e.nodeScore(ctx, memo, dag, base, term.subset)
						if err != nil {
							return nil, err
						}
						second += term.sign * score
					}
					hess.Set(i, j, hess.At(i, j)+second/norm)
				}
			}
		}
	}
	return hess, nil
}

// HessianSS estimates the Hessian over the separating-system ground set.
func (e *Estimator) HessianSS(ctx context.Context, x, thresh mat.Vector, ss []mec.Intervention) (*mat.Dense, error) {
	nss := len(ss)
	if x.Len() != nss || thresh.Len() != nss {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "Hessian point has %d/%d coordinates, separating system has %d candidates", x.Len(), thresh.Len(), nss)
	}
	dags, err := e.draw(ctx)
	if err != nil {
		return nil, err
	}

	repeats := max(1, e.Repeats)
	norm := float64(len(dags) * repeats)
	hess := mat.NewDense(nss, nss, nil)

	for _, dag := range dags {
		memo := cache.NewMemo()
		for r := 0; r < repeats; r++ {
			S := threshold(x, thresh)
			for i := 0; i < nss; i++ {
				for j := i + 1; j < nss; j++ {
					second := 0.0
					for _, term := range secondDifference(S, i, j) {
						score, err := e.ssScore(ctx, memo, dag, term.subset, ss)
						if err != nil {
							return nil, err
						}
						second += term.sign * score
					}
					hess.Set(i, j, hess.At(i, j)+second/norm)
				}
			}
		}
	}
	return hess, nil
}

// threshold returns S = {s : e[s] < x[s]}.
func threshold(x, e mat.Vector) []int {
	var out []int
	for s := 0; s < x.Len(); s++ {
		if e.AtVec(s) < x.AtVec(s) {
			out = append(out, s)
		}
	}
	return out
}

type signedSubset struct {
	subset []int
	sign   float64
}

// secondDifference lists the four evaluation subsets of the discrete
// second difference in coordinates i and j over conditioning set S.
func secondDifference(S []int, i, j int) [4]signedSubset {
	return [4]signedSubset{
		{subset: adjust(S, i, j, true, true), sign: 1},
		{subset: adjust(S, i, j, true, false), sign: -1},
		{subset: adjust(S, i, j, false, true), sign: -1},
		{subset: adjust(S, i, j, false, false), sign: 1},
	}
}

// adjust returns S with i and j each included or excluded.
func adjust(S []int, i, j int, withI, withJ bool) []int {
	out := make([]int, 0, len(S)+2)
	for _, s := range S {
		if s == i || s == j {
			continue
		}
		out = append(out, s)
	}
	if withI {
		out = append(out, i)
	}
	if withJ {
		out = append(out, j)
	}
	return out
}
