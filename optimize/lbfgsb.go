package optimize

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// LBFGSB is the local gradient-based minimizer. Gradients are
// computed with central differences on the objective.
type LBFGSB struct {
	// Tol is the solver f/g tolerance.
	Tol float64
	// MaxIter caps the number of solver iterations; past the cap
	// the objective reports +Inf which terminates the line search
	// and the run is reported as unsuccessful.
	MaxIter int

	dH    float64
	calls int
}

// NewLBFGSB creates a new LBFGSB minimizer.
func NewLBFGSB(tol float64, maxIter int) *LBFGSB {
	return &LBFGSB{
		Tol:     tol,
		MaxIter: maxIter,
		dH:      1e-6,
	}
}

// Calls returns the number of objective calls made so far.
func (l *LBFGSB) Calls() int {
	return l.calls
}

type lbfgsbObjective struct {
	l        *LBFGSB
	obj      Objective
	grad     []float64
	iter     int
	exceeded bool
}

func (o *lbfgsbObjective) EvaluateFunction(x []float64) float64 {
	if o.exceeded {
		return math.Inf(+1)
	}
	o.l.calls++
	return o.obj(x)
}

func (o *lbfgsbObjective) EvaluateGradient(x []float64) []float64 {
	// one gradient per solver iteration
	o.iter++
	if o.iter > o.l.MaxIter {
		o.exceeded = true
	}
	if o.grad == nil {
		o.grad = make([]float64, len(x))
	}
	point := make([]float64, len(x))
	copy(point, x)
	for i := range x {
		point[i] = x[i] - o.l.dH
		l1 := o.EvaluateFunction(point)
		point[i] = x[i] + o.l.dH
		l2 := o.EvaluateFunction(point)
		point[i] = x[i]
		o.grad[i] = (l2 - l1) / 2 / o.l.dH
	}
	return o.grad
}

// Minimize runs one local minimization from x0.
func (l *LBFGSB) Minimize(obj Objective, x0 []float64) Result {
	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(l.Tol)
	opt.SetGTolerance(l.Tol)

	o := &lbfgsbObjective{l: l, obj: obj}
	minimum, exitStatus := opt.Minimize(o, x0)

	success := exitStatus.Code == lbfgsb.SUCCESS ||
		exitStatus.Code == lbfgsb.APPROXIMATE
	if o.exceeded {
		success = false
	}
	log.Debugf("lbfgsb: f=%v iters=%d status=%v", minimum.F, o.iter, exitStatus)

	x := make([]float64, len(minimum.X))
	copy(x, minimum.X)
	return Result{
		X:       x,
		F:       minimum.F,
		Success: success,
		Status:  exitStatus.Message,
	}
}
