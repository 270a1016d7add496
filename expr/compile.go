package expr

import (
	"errors"
	"fmt"
)

// ErrUnboundSymbol means the expression references a symbol missing
// from the variable order passed to Compile.
var ErrUnboundSymbol = errors.New("expr: unbound symbol")

type compiler struct {
	index map[*Symbol]int
	err   error
}

func (c *compiler) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Compile turns an expression into a numeric function of a flat
// variable vector. The value of vars[i] is read from argument
// position i; every symbol of the expression must appear in vars.
func Compile(e Expr, vars []*Symbol) (func(x []float64) float64, error) {
	index := make(map[*Symbol]int, len(vars))
	for i, s := range vars {
		if _, ok := index[s]; ok {
			return nil, fmt.Errorf("expr: duplicate variable %s", s.Name())
		}
		index[s] = i
	}
	c := &compiler{index: index}
	fn := e.compile(c)
	if c.err != nil {
		return nil, c.err
	}
	n := len(vars)
	return func(x []float64) float64 {
		if len(x) != n {
			panic(fmt.Sprintf("expr: expected %d variables, got %d", n, len(x)))
		}
		return fn(x)
	}, nil
}
