package optimize

import (
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestPipage_IntegerInputUnchanged(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	x := []float64{1, 0, 1, 0}
	got, err := Pipage(x, 2, rng)
	if err != nil {
		t.Fatalf("Pipage() error = %v", err)
	}
	for i := range x {
		if got[i] != x[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], x[i])
		}
	}
}

func TestPipage_InputNotModified(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	x := []float64{0.3, 0.4, 0.3}
	if _, err := Pipage(x, 1, rng); err != nil {
		t.Fatalf("Pipage() error = %v", err)
	}
	if x[0] != 0.3 || x[1] != 0.4 || x[2] != 0.3 {
		t.Errorf("input mutated: %v", x)
	}
}

func TestPipage_FeasibleRounding(t *testing.T) {
	// Any fractional point with mass at most k must round to a 0/1 vector
	// with at most k ones.
	const (
		n = 6
		k = 2
	)
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 200; trial++ {
		x := make([]float64, n)
		for i := range x {
			x[i] = rng.Float64()
		}
		scale := 1.8 / floats.Sum(x)
		for i := range x {
			x[i] = min(x[i]*scale, 1)
		}

		got, err := Pipage(x, k, rng)
		if err != nil {
			t.Fatalf("Pipage() error = %v", err)
		}
		ones := 0
		for i, v := range got {
			if v != 0 && v != 1 {
				t.Fatalf("got[%d] = %v, not integral", i, v)
			}
			if v == 1 {
				ones++
			}
		}
		if ones > k {
			t.Fatalf("rounded to %d ones, cap %d (input %v, output %v)", ones, k, x, got)
		}
	}
}

func TestPipage_ForcesLowMassCoordinate(t *testing.T) {
	// With total mass at most one intervention, the last fractional
	// coordinate is committed for sure.
	rng := rand.New(rand.NewPCG(3, 3))
	got, err := Pipage([]float64{0.5, 0, 0}, 1, rng)
	if err != nil {
		t.Fatalf("Pipage() error = %v", err)
	}
	want := []float64{1, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got = %v, want %v", got, want)
			break
		}
	}
}

func TestPipage_DropsRoundingOverflow(t *testing.T) {
	// A sum just past the bound is numerical residue: the fractional
	// coordinate is dropped, never committed.
	rng := rand.New(rand.NewPCG(4, 4))
	got, err := Pipage([]float64{1, 1, 0.05}, 2, rng)
	if err != nil {
		t.Fatalf("Pipage() error = %v", err)
	}
	if got[2] != 0 {
		t.Errorf("got[2] = %v, want 0", got[2])
	}
}

func TestPipage_PreRoundsNearIntegers(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	got, err := Pipage([]float64{0.9999999999999, 0, 1}, 2, rng)
	if err != nil {
		t.Fatalf("Pipage() error = %v", err)
	}
	if got[0] != 1 {
		t.Errorf("got[0] = %v, want 1 after 10-decimal pre-round", got[0])
	}
}
