package config

import (
	"os"
	"path/filepath"
	"testing"

	interrors "github.com/causalkit/intervene/pkg/errors"
)

func TestParamsDefaults(t *testing.T) {
	p := Params{Batch: 2, K: 1}
	if err := p.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if p.Strategy != DefaultStrategy {
		t.Errorf("Strategy = %q, want %q", p.Strategy, DefaultStrategy)
	}
	if p.Samples != DefaultSamples {
		t.Errorf("Samples = %d, want %d", p.Samples, DefaultSamples)
	}
	if p.Steps != DefaultSteps {
		t.Errorf("Steps = %d, want %d", p.Steps, DefaultSteps)
	}
	if p.Trials != DefaultTrials {
		t.Errorf("Trials = %d, want %d", p.Trials, DefaultTrials)
	}
	if p.M0 != DefaultMinibatch || p.M != DefaultMinibatch {
		t.Errorf("M0, M = %d, %d, want %d", p.M0, p.M, DefaultMinibatch)
	}
	if p.Seed != DefaultSeed {
		t.Errorf("Seed = %d, want %d", p.Seed, DefaultSeed)
	}
}

func TestParamsValidation(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"zero batch", Params{K: 1}},
		{"zero k", Params{Batch: 1}},
		{"negative samples", Params{Batch: 1, K: 1, Samples: -1}},
		{"negative steps", Params{Batch: 1, K: 1, Steps: -5}},
	}
	for _, tt := range tests {
		err := tt.p.ValidateAndSetDefaults()
		if !interrors.Is(err, interrors.ErrCodeInvalidInput) {
			t.Errorf("%s: error = %v, want INVALID_INPUT", tt.name, err)
		}
	}
}

func TestParamsIdempotent(t *testing.T) {
	p := Params{Batch: 1, K: 1, Samples: 50}
	if err := p.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	if err := p.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if p.Samples != 50 {
		t.Errorf("Samples = %d, want 50 preserved", p.Samples)
	}
}

func TestLoad(t *testing.T) {
	content := `
strategy = "scg++"
batch    = 3
k        = 2
samples  = 200
smart    = true
seed     = 7
`
	path := filepath.Join(t.TempDir(), "params.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Strategy != "scg++" {
		t.Errorf("Strategy = %q, want scg++", p.Strategy)
	}
	if p.Batch != 3 || p.K != 2 {
		t.Errorf("Batch, K = %d, %d, want 3, 2", p.Batch, p.K)
	}
	if p.Samples != 200 {
		t.Errorf("Samples = %d, want 200", p.Samples)
	}
	if !p.Smart {
		t.Error("Smart = false, want true")
	}
	if p.Seed != 7 {
		t.Errorf("Seed = %d, want 7", p.Seed)
	}
	if p.Steps != DefaultSteps {
		t.Errorf("Steps = %d, want default %d", p.Steps, DefaultSteps)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !interrors.Is(err, interrors.ErrCodeInvalidInput) {
		t.Errorf("Load() error = %v, want INVALID_INPUT", err)
	}
}

func TestLoad_InvalidBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	if err := os.WriteFile(path, []byte("batch = 0\nk = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !interrors.Is(err, interrors.ErrCodeInvalidInput) {
		t.Errorf("Load() error = %v, want INVALID_INPUT", err)
	}
}
