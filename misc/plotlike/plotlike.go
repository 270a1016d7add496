// Plotlike plots the per-attempt objective trajectory written by
// phyloshape -trajectory.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func main() {
	out := flag.String("out", "trajectory.png", "output image file")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: plotlike [-out file.png] trajectory.tsv")
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		panic(err)
	}
	defer f.Close()

	var pts plotter.XYs
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		attempt, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			panic(err)
		}
		negll, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			panic(err)
		}
		pts = append(pts, plotter.XY{X: attempt, Y: negll})
	}
	if err := scanner.Err(); err != nil {
		panic(err)
	}

	p := plot.New()
	p.X.Label.Text = "attempt"
	p.Y.Label.Text = "negative log-likelihood"

	if err := plotutil.AddLinePoints(p, "attempts", pts); err != nil {
		panic(err)
	}

	if err := p.Save(4*vg.Inch, 4*vg.Inch, *out); err != nil {
		panic(err)
	}
}
