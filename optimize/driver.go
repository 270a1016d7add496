package optimize

import (
	"errors"
	"math/rand"
	"sort"
)

// DefaultMaxAttempts is the retry budget of the driver.
const DefaultMaxAttempts = 200

// ErrExhausted means every attempt of a driver run failed to
// converge.
var ErrExhausted = errors.New("optimize: all attempts failed")

// Driver repeatedly attempts a global search with randomized initial
// guesses until enough attempts succeed or the budget is exhausted.
type Driver struct {
	// Searcher runs a single attempt.
	Searcher Searcher
	// MaxAttempts is the attempt budget.
	MaxAttempts int
	// BestOf is the number of successful attempts to collect; the
	// attempt with the lowest objective wins. The default of 1
	// preserves the original first-success-wins behavior.
	BestOf int
	// TrailBlock is the number of trailing variables initialized
	// close to 1 instead of uniformly; it corresponds to one
	// ancestral vector block, reflecting the assumption that
	// ancestral shapes sit near a normalized reference.
	TrailBlock int
	// OnAttempt, when set, is called after every attempt with the
	// 1-based attempt number and its result.
	OnAttempt func(attempt int, res Result)

	rng *rand.Rand
}

// NewDriver creates a driver with the default budget and
// first-success-wins policy.
func NewDriver(searcher Searcher, seed int64) *Driver {
	return &Driver{
		Searcher:    searcher,
		MaxAttempts: DefaultMaxAttempts,
		BestOf:      1,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// initials builds one attempt's starting point: uniform [0,1) draws
// for every variable, with the trailing block replaced by values
// within 0.5% of 1.
func (d *Driver) initials(nVars int) []float64 {
	x0 := make([]float64, nVars)
	for i := range x0 {
		x0[i] = d.rng.Float64()
	}
	from := nVars - d.TrailBlock
	if from < 0 {
		from = 0
	}
	for i := from; i < nVars; i++ {
		x0[i] = 1 - (x0[i]-0.5)*0.01
	}
	return x0
}

// Run searches for a minimizer of obj over nVars variables. It
// returns ErrExhausted if no attempt converges within the budget.
func (d *Driver) Run(obj Objective, nVars int) (Result, error) {
	bestOf := d.BestOf
	if bestOf < 1 {
		bestOf = 1
	}
	var successes []Result

	log.Info("Searching for the best solution ..")
	for attempt := 1; attempt <= d.MaxAttempts; attempt++ {
		res := d.Searcher.Search(obj, d.initials(nVars))
		if d.OnAttempt != nil {
			d.OnAttempt(attempt, res)
		}
		if res.Success {
			log.Infof("Attempt %d converged, f=%v", attempt, res.F)
			successes = append(successes, res)
			if len(successes) >= bestOf {
				break
			}
		} else {
			log.Debugf("Attempt %d failed: %s", attempt, res.Status)
		}
	}
	if len(successes) == 0 {
		return Result{}, ErrExhausted
	}
	sort.SliceStable(successes, func(i, j int) bool {
		return successes[i].F < successes[j].F
	})
	return successes[0], nil
}
