// Package config loads experiment parameters from TOML files.
//
// A parameter file describes one design run: the strategy, the batch
// shape, Monte-Carlo sample counts, and the optimizer knobs. All fields
// are optional except the batch shape; ValidateAndSetDefaults fills the
// rest so CLI-less callers and test harnesses share one source of truth
// for defaults.
//
// Example file:
//
//	strategy = "ss-lazy"
//	batch    = 3
//	k        = 2
//	samples  = 200
//	seed     = 7
package config

import (
	"github.com/BurntSushi/toml"

	interrors "github.com/causalkit/intervene/pkg/errors"
)

// Default parameter values shared by the pipeline and the tests.
const (
	// DefaultStrategy is the design strategy used when none is named.
	DefaultStrategy = "ss-lazy"

	// DefaultSamples is the Monte-Carlo sample count per objective
	// evaluation.
	DefaultSamples = 100

	// DefaultRepeats is the number of mask redraws per gradient sample.
	DefaultRepeats = 1

	// DefaultSteps is the iteration count of the continuous ascent loop.
	DefaultSteps = 100

	// DefaultTrials is the number of extra pipage rounding trials.
	DefaultTrials = 10

	// DefaultMinibatch is the gradient/Hessian minibatch size for the
	// variance-reduced ascent.
	DefaultMinibatch = 10

	// DefaultSeed seeds the run RNG for reproducibility.
	DefaultSeed = uint64(42)
)

// Params contains all configuration for one design run.
// The struct decodes directly from a TOML parameter file.
type Params struct {
	// Strategy selects the design algorithm (see pipeline.ValidStrategies).
	Strategy string `toml:"strategy"`

	// Batch is the number of interventions to design.
	Batch int `toml:"batch"`

	// K is the per-intervention node cap.
	K int `toml:"k"`

	// Samples is the Monte-Carlo sample count per objective evaluation.
	Samples int `toml:"samples"`

	// Exact requests exhaustive MEC enumeration from the sampler.
	Exact bool `toml:"exact"`

	// IsTree enables the tree-shortcut closure on simulated interventions.
	IsTree bool `toml:"is_tree"`

	// Repeats is the number of mask redraws per gradient sample.
	Repeats int `toml:"repeats"`

	// Steps is the continuous ascent iteration count.
	Steps int `toml:"steps"`

	// Trials is the number of extra pipage rounding trials.
	Trials int `toml:"trials"`

	// M0 is the gradient minibatch at the first ascent step.
	M0 int `toml:"m0"`

	// M is the Hessian minibatch at later ascent steps.
	M int `toml:"m"`

	// Smart switches separating-system strategies to the structure-aware
	// builder.
	Smart bool `toml:"smart"`

	// AllK makes the agnostic separating-system strategies try every cap
	// size from 1 through K.
	AllK bool `toml:"all_k"`

	// Workers bounds bag evaluation parallelism (0 means serial).
	Workers int `toml:"workers"`

	// Seed seeds the run RNG.
	Seed uint64 `toml:"seed"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `toml:"-"`
}

// Load reads and validates a TOML parameter file.
func Load(path string) (*Params, error) {
	var p Params
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return nil, interrors.Wrap(interrors.ErrCodeInvalidInput, err, "decode parameter file %s", path)
	}
	if err := p.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (p *Params) ValidateAndSetDefaults() error {
	if p.validated {
		return nil
	}
	if p.Batch < 1 {
		return interrors.New(interrors.ErrCodeInvalidInput, "batch must be positive, got %d", p.Batch)
	}
	if p.K < 1 {
		return interrors.New(interrors.ErrCodeInvalidInput, "k must be positive, got %d", p.K)
	}
	if p.Samples < 0 || p.Repeats < 0 || p.Steps < 0 || p.Trials < 0 || p.M0 < 0 || p.M < 0 || p.Workers < 0 {
		return interrors.New(interrors.ErrCodeInvalidInput, "counts must be non-negative")
	}

	if p.Strategy == "" {
		p.Strategy = DefaultStrategy
	}
	if p.Samples == 0 {
		p.Samples = DefaultSamples
	}
	if p.Repeats == 0 {
		p.Repeats = DefaultRepeats
	}
	if p.Steps == 0 {
		p.Steps = DefaultSteps
	}
	if p.Trials == 0 {
		p.Trials = DefaultTrials
	}
	if p.M0 == 0 {
		p.M0 = DefaultMinibatch
	}
	if p.M == 0 {
		p.M = DefaultMinibatch
	}
	if p.Seed == 0 {
		p.Seed = DefaultSeed
	}
	p.validated = true
	return nil
}
