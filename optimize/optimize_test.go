package optimize

import (
	"errors"
	"testing"

	"github.com/op/go-logging"
)

func init() {
	logging.SetLevel(logging.WARNING, "optimize")
}

// stubSearcher returns canned results in order, repeating the last
// one.
type stubSearcher struct {
	results []Result
	calls   int
	starts  [][]float64
}

func (s *stubSearcher) Search(obj Objective, x0 []float64) Result {
	s.starts = append(s.starts, x0)
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	res := s.results[i]
	if res.X == nil {
		res.X = x0
	}
	return res
}

func TestInitialsTrailingBlock(tst *testing.T) {
	d := NewDriver(&stubSearcher{results: []Result{{Success: true}}}, 42)
	d.TrailBlock = 4
	x0 := d.initials(10)
	if len(x0) != 10 {
		tst.Fatal("Expected 10 initials, got", len(x0))
	}
	for i := 0; i < 6; i++ {
		if x0[i] < 0 || x0[i] >= 1 {
			tst.Error("Initial", i, "out of [0,1):", x0[i])
		}
	}
	for i := 6; i < 10; i++ {
		if x0[i] < 0.995 || x0[i] > 1.005 {
			tst.Error("Trailing initial", i, "outside [0.995,1.005]:", x0[i])
		}
	}
}

func TestFirstSuccessWins(tst *testing.T) {
	s := &stubSearcher{results: []Result{
		{Success: false, F: 1},
		{Success: false, F: 2},
		{Success: true, F: 3},
		{Success: true, F: -100},
	}}
	d := NewDriver(s, 1)
	res, err := d.Run(func(x []float64) float64 { return 0 }, 2)
	if err != nil {
		tst.Fatal("Error running driver:", err)
	}
	if res.F != 3 {
		tst.Error("Expected first success (f=3), got f=", res.F)
	}
	if s.calls != 3 {
		tst.Error("Expected 3 attempts, got", s.calls)
	}
}

func TestBestOf(tst *testing.T) {
	s := &stubSearcher{results: []Result{
		{Success: true, F: 5},
		{Success: false, F: 0},
		{Success: true, F: -2},
		{Success: true, F: 7},
	}}
	d := NewDriver(s, 1)
	d.BestOf = 3
	res, err := d.Run(func(x []float64) float64 { return 0 }, 2)
	if err != nil {
		tst.Fatal("Error running driver:", err)
	}
	if res.F != -2 {
		tst.Error("Expected best of 3 successes (f=-2), got f=", res.F)
	}
	if s.calls != 4 {
		tst.Error("Expected 4 attempts, got", s.calls)
	}
}

func TestExhaustion(tst *testing.T) {
	s := &stubSearcher{results: []Result{{Success: false}}}
	d := NewDriver(s, 1)
	attempts := 0
	d.OnAttempt = func(attempt int, res Result) { attempts = attempt }
	_, err := d.Run(func(x []float64) float64 { return 0 }, 3)
	if !errors.Is(err, ErrExhausted) {
		tst.Fatal("Expected exhaustion error, got", err)
	}
	if s.calls != DefaultMaxAttempts || attempts != DefaultMaxAttempts {
		tst.Error("Expected", DefaultMaxAttempts, "attempts, got", s.calls)
	}
}

func TestDriverDeterminism(tst *testing.T) {
	run := func() [][]float64 {
		s := &stubSearcher{results: []Result{
			{Success: false},
			{Success: false},
			{Success: true},
		}}
		d := NewDriver(s, 7)
		d.TrailBlock = 2
		if _, err := d.Run(func(x []float64) float64 { return 0 }, 5); err != nil {
			tst.Fatal("Error running driver:", err)
		}
		return s.starts
	}
	a, b := run(), run()
	if len(a) != len(b) {
		tst.Fatal("Attempt counts differ")
	}
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				tst.Fatal("Initial guesses differ at attempt", i)
			}
		}
	}
}
