package expr

import (
	"errors"
	"math"
	"testing"
)

const smallDiff = 1e-12

func TestCompileBasic(tst *testing.T) {
	x := NewSymbol("x")
	y := NewSymbol("y")
	// x*y + 2*x - y/2
	e := Add(Mul(x, y), Mul(Num(2), x), Neg(Div(y, Num(2))))
	fn, err := Compile(e, []*Symbol{x, y})
	if err != nil {
		tst.Fatal("Error compiling:", err)
	}
	got := fn([]float64{3, 4})
	want := 3.0*4 + 2*3 - 4.0/2
	if math.Abs(got-want) > smallDiff {
		tst.Error("Expected", want, "got", got)
	}
}

func TestCompileLogSquare(tst *testing.T) {
	x := NewSymbol("x")
	e := Sub(Log(x), Square(Sub(x, Num(1))))
	fn, err := Compile(e, []*Symbol{x})
	if err != nil {
		tst.Fatal("Error compiling:", err)
	}
	got := fn([]float64{2.5})
	want := math.Log(2.5) - 1.5*1.5
	if math.Abs(got-want) > smallDiff {
		tst.Error("Expected", want, "got", got)
	}
}

func TestConstantFolding(tst *testing.T) {
	e := Add(Num(1), Num(2), Mul(Num(3), Num(4)))
	fn, err := Compile(e, nil)
	if err != nil {
		tst.Fatal("Error compiling:", err)
	}
	if got := fn(nil); got != 15 {
		tst.Error("Expected 15, got", got)
	}
}

func TestUnboundSymbol(tst *testing.T) {
	x := NewSymbol("x")
	y := NewSymbol("y")
	_, err := Compile(Add(x, y), []*Symbol{x})
	if !errors.Is(err, ErrUnboundSymbol) {
		tst.Error("Expected unbound symbol error, got", err)
	}
}

func TestSymbolsAreDistinct(tst *testing.T) {
	// two symbols with the same name are still distinct variables
	a := NewSymbol("v")
	b := NewSymbol("v")
	fn, err := Compile(Sub(a, b), []*Symbol{a, b})
	if err != nil {
		tst.Fatal("Error compiling:", err)
	}
	if got := fn([]float64{5, 3}); got != 2 {
		tst.Error("Expected 2, got", got)
	}
}

func TestDuplicateVariable(tst *testing.T) {
	x := NewSymbol("x")
	_, err := Compile(x, []*Symbol{x, x})
	if err == nil {
		tst.Error("Expected duplicate variable error")
	}
}
