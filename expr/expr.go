// Package expr provides a small symbolic expression tree and a
// compiler turning an expression into a numeric closure over a flat
// variable vector. It is the backend the likelihood formula is
// assembled and evaluated with.
package expr

import (
	"fmt"
	"math"
	"strings"
)

// Expr is a symbolic scalar expression.
type Expr interface {
	fmt.Stringer
	compile(c *compiler) evalFn
}

type evalFn func(x []float64) float64

// Symbol is a named free variable.
type Symbol struct {
	name string
}

// NewSymbol creates a new free variable.
func NewSymbol(name string) *Symbol {
	return &Symbol{name: name}
}

// Name returns the symbol name.
func (s *Symbol) Name() string {
	return s.name
}

func (s *Symbol) String() string {
	return s.name
}

func (s *Symbol) compile(c *compiler) evalFn {
	i, ok := c.index[s]
	if !ok {
		c.fail(fmt.Errorf("%w: %s", ErrUnboundSymbol, s.name))
		return nil
	}
	return func(x []float64) float64 { return x[i] }
}

type num float64

// Num wraps a constant.
func Num(v float64) Expr {
	return num(v)
}

func (n num) String() string {
	return fmt.Sprintf("%g", float64(n))
}

func (n num) compile(c *compiler) evalFn {
	v := float64(n)
	return func(x []float64) float64 { return v }
}

type add struct {
	terms []Expr
}

// Add returns the sum of terms. Nested sums are flattened and
// constants folded.
func Add(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	k := 0.0
	for _, t := range terms {
		switch t := t.(type) {
		case num:
			k += float64(t)
		case add:
			flat = append(flat, t.terms...)
		default:
			flat = append(flat, t)
		}
	}
	if k != 0 || len(flat) == 0 {
		flat = append(flat, num(k))
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return add{terms: flat}
}

func (a add) String() string {
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

func (a add) compile(c *compiler) evalFn {
	fns := make([]evalFn, len(a.terms))
	for i, t := range a.terms {
		fns[i] = t.compile(c)
	}
	return func(x []float64) (s float64) {
		for _, fn := range fns {
			s += fn(x)
		}
		return
	}
}

type mul struct {
	factors []Expr
}

// Mul returns the product of factors. Nested products are flattened
// and constants folded.
func Mul(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	k := 1.0
	for _, f := range factors {
		switch f := f.(type) {
		case num:
			k *= float64(f)
		case mul:
			flat = append(flat, f.factors...)
		default:
			flat = append(flat, f)
		}
	}
	if k == 0 {
		return num(0)
	}
	if k != 1 || len(flat) == 0 {
		flat = append(flat, num(k))
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return mul{factors: flat}
}

func (m mul) String() string {
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, "*") + ")"
}

func (m mul) compile(c *compiler) evalFn {
	fns := make([]evalFn, len(m.factors))
	for i, f := range m.factors {
		fns[i] = f.compile(c)
	}
	return func(x []float64) float64 {
		p := 1.0
		for _, fn := range fns {
			p *= fn(x)
		}
		return p
	}
}

// Neg returns -a.
func Neg(a Expr) Expr {
	return Mul(num(-1), a)
}

// Sub returns a - b.
func Sub(a, b Expr) Expr {
	return Add(a, Neg(b))
}

type div struct {
	a, b Expr
}

// Div returns a / b.
func Div(a, b Expr) Expr {
	return div{a: a, b: b}
}

func (d div) String() string {
	return "(" + d.a.String() + "/" + d.b.String() + ")"
}

func (d div) compile(c *compiler) evalFn {
	fa := d.a.compile(c)
	fb := d.b.compile(c)
	return func(x []float64) float64 { return fa(x) / fb(x) }
}

type square struct {
	a Expr
}

// Square returns a*a, evaluating a once.
func Square(a Expr) Expr {
	return square{a: a}
}

func (s square) String() string {
	return s.a.String() + "^2"
}

func (s square) compile(c *compiler) evalFn {
	fa := s.a.compile(c)
	return func(x []float64) float64 {
		v := fa(x)
		return v * v
	}
}

type log struct {
	a Expr
}

// Log returns the natural logarithm of a.
func Log(a Expr) Expr {
	return log{a: a}
}

func (l log) String() string {
	return "log(" + l.a.String() + ")"
}

func (l log) compile(c *compiler) evalFn {
	fa := l.a.compile(c)
	return func(x []float64) float64 { return math.Log(fa(x)) }
}
