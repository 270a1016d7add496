// Package shape provides 3-D shape samples and the shape alignment
// container binding sample labels to tree tips.
package shape

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrVertexCountMismatch is returned when samples of an alignment
// have different vertex counts.
var ErrVertexCountMismatch = errors.New("shape: samples have mismatching vertex counts")

// RGB is a per-vertex color.
type RGB [3]uint8

// Vertices stores vertex coordinates and optional per-vertex colors.
type Vertices struct {
	Coords []r3.Vec
	Colors []RGB
}

// NewVertices creates Vertices from coordinates.
func NewVertices(coords []r3.Vec) Vertices {
	return Vertices{Coords: coords}
}

// Len returns the number of vertices.
func (v Vertices) Len() int {
	return len(v.Coords)
}

// Copy returns an independent copy.
func (v Vertices) Copy() Vertices {
	nv := Vertices{Coords: make([]r3.Vec, len(v.Coords))}
	copy(nv.Coords, v.Coords)
	if v.Colors != nil {
		nv.Colors = make([]RGB, len(v.Colors))
		copy(nv.Colors, v.Colors)
	}
	return nv
}

// Sample is a labeled shape, the label is matched against tree tip
// names.
type Sample struct {
	Label    string
	Vertices Vertices
}

// Alignment stores multiple shape samples with identical vertex
// topology.
type Alignment struct {
	samples []Sample
	byLabel map[string]int
}

// NewAlignment creates an alignment from samples. All samples must
// share the same vertex count; a mismatch is a fatal precondition
// error.
func NewAlignment(samples []Sample) (*Alignment, error) {
	if len(samples) == 0 {
		return nil, errors.New("shape: empty alignment")
	}
	n := samples[0].Vertices.Len()
	byLabel := make(map[string]int, len(samples))
	for i, s := range samples {
		if s.Vertices.Len() != n {
			return nil, fmt.Errorf("%w: %s has %d vertices, want %d",
				ErrVertexCountMismatch, s.Label, s.Vertices.Len(), n)
		}
		if s.Vertices.Colors != nil && len(s.Vertices.Colors) != s.Vertices.Len() {
			return nil, fmt.Errorf("shape: %s has colors for %d of %d vertices",
				s.Label, len(s.Vertices.Colors), s.Vertices.Len())
		}
		if _, ok := byLabel[s.Label]; ok {
			return nil, fmt.Errorf("shape: duplicate label %s", s.Label)
		}
		byLabel[s.Label] = i
	}
	return &Alignment{samples: samples, byLabel: byLabel}, nil
}

// NSamples returns the number of samples.
func (ali *Alignment) NSamples() int {
	return len(ali.samples)
}

// NVertices returns the shared per-sample vertex count.
func (ali *Alignment) NVertices() int {
	return ali.samples[0].Vertices.Len()
}

// Sample returns the i-th sample.
func (ali *Alignment) Sample(i int) Sample {
	return ali.samples[i]
}

// Get returns the vertices for a label.
func (ali *Alignment) Get(label string) (Vertices, bool) {
	i, ok := ali.byLabel[label]
	if !ok {
		return Vertices{}, false
	}
	return ali.samples[i].Vertices, true
}

// Coords returns the coordinate arrays of every sample, in sample
// order.
func (ali *Alignment) Coords() [][]r3.Vec {
	coords := make([][]r3.Vec, len(ali.samples))
	for i, s := range ali.samples {
		coords[i] = s.Vertices.Coords
	}
	return coords
}

// ParseAlignment parses shape samples from a reader. The format is
// fasta-like: a ">label" line starts a sample, every following line
// holds one vertex as "x y z" with an optional "r g b" color suffix.
func ParseAlignment(rd io.Reader) (*Alignment, error) {
	var samples []Sample
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			samples = append(samples, Sample{Label: strings.TrimSpace(line[1:])})
			continue
		}
		if len(samples) == 0 {
			return nil, errors.New("shape: vertex line w/o label")
		}
		fields := strings.Fields(line)
		if len(fields) != 3 && len(fields) != 6 {
			return nil, fmt.Errorf("shape: expected 3 or 6 fields, got %d", len(fields))
		}
		var c [6]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, err
			}
			c[i] = v
		}
		s := &samples[len(samples)-1]
		s.Vertices.Coords = append(s.Vertices.Coords, r3.Vec{X: c[0], Y: c[1], Z: c[2]})
		if len(fields) == 6 {
			s.Vertices.Colors = append(s.Vertices.Colors,
				RGB{uint8(c[3]), uint8(c[4]), uint8(c[5])})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewAlignment(samples)
}

// String returns a sample in the alignment text format.
func (s Sample) String() string {
	var b strings.Builder
	b.WriteString(">" + s.Label + "\n")
	for i, v := range s.Vertices.Coords {
		fmt.Fprintf(&b, "%g %g %g", v.X, v.Y, v.Z)
		if s.Vertices.Colors != nil {
			c := s.Vertices.Colors[i]
			fmt.Fprintf(&b, " %d %d %d", c[0], c[1], c[2])
		}
		b.WriteString("\n")
	}
	return b.String()
}

// String returns the alignment in its text format.
func (ali *Alignment) String() string {
	var b strings.Builder
	for _, s := range ali.samples {
		b.WriteString(s.String())
	}
	return b.String()
}
