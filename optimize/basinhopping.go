package optimize

import (
	"math"
	"math/rand"
)

// Basin-hopping defaults matching the original analysis settings.
const (
	DefaultNIter       = 10
	DefaultStepSize    = 0.5
	DefaultTemperature = 1.0
	DefaultSeed        = 12345678
	DefaultTol         = 1e-4
	DefaultMaxIter     = 1000
)

// BasinHopping wraps a local minimizer in randomized multi-basin
// restarts with a Metropolis acceptance rule.
type BasinHopping struct {
	// Minimizer is the inner local minimizer.
	Minimizer *LBFGSB
	// NIter is the number of hops per search.
	NIter int
	// StepSize is the coordinate-wise perturbation magnitude.
	StepSize float64
	// Temperature scales the Metropolis acceptance rule.
	Temperature float64

	rng *rand.Rand
}

// NewBasinHopping creates a basin-hopping searcher with the fixed
// inner-solver settings and hop seed the analysis was calibrated
// with.
func NewBasinHopping() *BasinHopping {
	return &BasinHopping{
		Minimizer:   NewLBFGSB(DefaultTol, DefaultMaxIter),
		NIter:       DefaultNIter,
		StepSize:    DefaultStepSize,
		Temperature: DefaultTemperature,
		rng:         rand.New(rand.NewSource(DefaultSeed)),
	}
}

// Search implements Searcher. The search succeeds when the best
// basin's local minimization converged.
func (b *BasinHopping) Search(obj Objective, x0 []float64) Result {
	best := b.Minimizer.Minimize(obj, x0)
	cur := best

	for i := 0; i < b.NIter; i++ {
		trial := make([]float64, len(cur.X))
		for j, v := range cur.X {
			trial[j] = v + b.StepSize*(2*b.rng.Float64()-1)
		}
		res := b.Minimizer.Minimize(obj, trial)

		if res.F < best.F {
			best = res
		}
		// Metropolis rule decides the next hop origin.
		if res.F <= cur.F || b.rng.Float64() < math.Exp((cur.F-res.F)/b.Temperature) {
			cur = res
		}
	}
	log.Debugf("basin-hopping: best f=%v success=%v", best.F, best.Success)
	return best
}
