// Package optimize provides the global search machinery used for
// maximum likelihood estimation: an L-BFGS-B local minimizer wrapped
// in basin-hopping restarts, and a bounded retry driver on top.
package optimize

import (
	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("optimize")

// Objective is a function to minimize over a flat parameter vector.
type Objective func(x []float64) float64

// Result is the outcome of one search.
type Result struct {
	// X is the best parameter vector found.
	X []float64
	// F is the objective value at X.
	F float64
	// Success reports whether the search converged.
	Success bool
	// Status is a human readable solver status.
	Status string
}

// Searcher runs one global-search attempt from a starting point.
type Searcher interface {
	Search(obj Objective, x0 []float64) Result
}
