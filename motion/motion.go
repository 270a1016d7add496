// Package motion provides statistical models of shape vector change
// along a tree branch.
package motion

import (
	"math"

	"github.com/phyloshape/phyloshape/expr"
)

// LogFunc is the logarithm used when assembling a branch term. It is
// supplied by the caller so the same formula can target different
// numeric backends.
type LogFunc func(expr.Expr) expr.Expr

// Model is a motion model. A model contributes one symbolic
// log-likelihood term per branch and owns its free parameters.
//
// Vector elements may be constants (tip vectors) or free symbols
// (ancestral vectors); branch terms must not depend on which.
type Model interface {
	// BranchLogLike returns the log-likelihood term for a single
	// branch of length blen going from the parent vector to the
	// child vector.
	BranchLogLike(blen float64, from, to []expr.Expr, logFn LogFunc) expr.Expr
	// Parameters returns the model's free parameters, in the order
	// they occupy in the flat variable vector.
	Parameters() []*expr.Symbol
}

// Brownian is a Brownian motion model: along a branch of length t
// every vector component diffuses independently around the parent
// value with variance sigma2*t. The rate sigma2 is the single free
// parameter.
type Brownian struct {
	sigma2 *expr.Symbol
}

// NewBrownian creates a new Brownian motion model.
func NewBrownian() *Brownian {
	return &Brownian{sigma2: expr.NewSymbol("sigma2")}
}

// BranchLogLike implements Model. The term is the sum over vector
// components of the Gaussian log-density with mean from[i] and
// variance sigma2*blen.
func (b *Brownian) BranchLogLike(blen float64, from, to []expr.Expr, logFn LogFunc) expr.Expr {
	if len(from) != len(to) {
		panic("motion: from/to vector length mismatch")
	}
	variance := expr.Mul(expr.Num(blen), b.sigma2)
	terms := make([]expr.Expr, 0, 2*len(from))
	for i := range from {
		// -1/2 log(2 pi sigma2 t) - (to-from)^2 / (2 sigma2 t)
		terms = append(terms,
			expr.Mul(expr.Num(-0.5), logFn(expr.Mul(expr.Num(2*math.Pi), variance))),
			expr.Neg(expr.Div(expr.Square(expr.Sub(to[i], from[i])),
				expr.Mul(expr.Num(2), variance))))
	}
	return expr.Add(terms...)
}

// Parameters implements Model.
func (b *Brownian) Parameters() []*expr.Symbol {
	return []*expr.Symbol{b.sigma2}
}
