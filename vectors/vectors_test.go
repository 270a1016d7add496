package vectors

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const smallDiff = 1e-8

// cube is a non-degenerate 8-vertex test shape.
var cube = []r3.Vec{
	{X: 0, Y: 0, Z: 0},
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: 1, Y: 1, Z: 0},
	{X: 1, Y: 0, Z: 1},
	{X: 0, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: 1},
}

func perturbed(coords []r3.Vec, d float64) []r3.Vec {
	out := make([]r3.Vec, len(coords))
	for i, v := range coords {
		out[i] = r3.Add(v, r3.Vec{X: d * float64(i%3), Y: -d * float64(i%2), Z: d})
	}
	return out
}

func TestRoundTripLegacy(tst *testing.T) {
	// in legacy mode the reference is the first sample, so the
	// first sample must round-trip exactly (up to solver noise)
	m, err := New([][]r3.Vec{cube, perturbed(cube, 0.05)}, Legacy, 5, 2)
	if err != nil {
		tst.Fatal("Error fitting mapper:", err)
	}
	vec, err := m.ToVectors(cube)
	if err != nil {
		tst.Fatal("Error encoding:", err)
	}
	if len(vec) != m.NumDims() {
		tst.Fatal("Expected vector of length", m.NumDims(), "got", len(vec))
	}
	back, err := m.ToVertices(vec)
	if err != nil {
		tst.Fatal("Error decoding:", err)
	}
	if len(back) != len(cube) {
		tst.Fatal("Vertex count not preserved:", len(back))
	}
	for i := range cube {
		if d := r3.Norm(r3.Sub(back[i], cube[i])); d > smallDiff {
			tst.Error("Vertex", i, "off by", d)
		}
	}
}

func TestDeterminism(tst *testing.T) {
	samples := [][]r3.Vec{cube, perturbed(cube, 0.03), perturbed(cube, -0.02)}
	m1, err := New(samples, NetworkLocal, 5, 3)
	if err != nil {
		tst.Fatal("Error fitting mapper:", err)
	}
	m2, err := New(samples, NetworkLocal, 5, 3)
	if err != nil {
		tst.Fatal("Error fitting mapper:", err)
	}
	v1, err := m1.ToVectors(samples[1])
	if err != nil {
		tst.Fatal("Error encoding:", err)
	}
	v2, err := m2.ToVectors(samples[1])
	if err != nil {
		tst.Fatal("Error encoding:", err)
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			tst.Fatal("Encoding is not deterministic at", i)
		}
	}
	b1, err := m1.ToVertices(v1)
	if err != nil {
		tst.Fatal("Error decoding:", err)
	}
	b2, err := m2.ToVertices(v2)
	if err != nil {
		tst.Fatal("Error decoding:", err)
	}
	for i := range b1 {
		if b1[i] != b2[i] {
			tst.Fatal("Decoding is not deterministic at", i)
		}
	}
}

func TestVertexCountMismatch(tst *testing.T) {
	_, err := New([][]r3.Vec{cube, cube[:7]}, NetworkLocal, 4, 1)
	if !errors.Is(err, ErrVertexCountMismatch) {
		tst.Error("Expected vertex count mismatch error, got", err)
	}

	m, err := New([][]r3.Vec{cube}, NetworkLocal, 4, 1)
	if err != nil {
		tst.Fatal("Error fitting mapper:", err)
	}
	_, err = m.ToVectors(cube[:5])
	if !errors.Is(err, ErrVertexCountMismatch) {
		tst.Error("Expected vertex count mismatch error, got", err)
	}
}

func TestTooFewLandmarks(tst *testing.T) {
	if _, err := New([][]r3.Vec{cube}, NetworkLocal, 3, 1); err == nil {
		tst.Error("Expected error for 3 landmarks")
	}
	if _, err := New([][]r3.Vec{cube}, NetworkLocal, 9, 1); err == nil {
		tst.Error("Expected error for more landmarks than vertices")
	}
}

func TestLandmarksDistinct(tst *testing.T) {
	m, err := New([][]r3.Vec{cube}, NetworkLocal, 6, 4)
	if err != nil {
		tst.Fatal("Error fitting mapper:", err)
	}
	seen := make(map[int]bool)
	for _, l := range m.Landmarks() {
		if seen[l] {
			tst.Error("Duplicate landmark", l)
		}
		seen[l] = true
	}
	if m.NumLandmarks() != 6 {
		tst.Error("Expected 6 landmarks, got", m.NumLandmarks())
	}
	if m.NumDims() != 8*6 {
		tst.Error("Expected 48 dims, got", m.NumDims())
	}
}

func TestParseMode(tst *testing.T) {
	if mode, err := ParseMode("network-local"); err != nil || mode != NetworkLocal {
		tst.Error("Error parsing network-local:", mode, err)
	}
	if mode, err := ParseMode("old"); err != nil || mode != Legacy {
		tst.Error("Error parsing old:", mode, err)
	}
	if _, err := ParseMode("bogus"); err == nil {
		tst.Error("Expected error for unknown mode")
	}
}

func TestLossyRoundTripStaysFinite(tst *testing.T) {
	samples := [][]r3.Vec{cube, perturbed(cube, 0.1)}
	m, err := New(samples, NetworkLocal, 5, 2)
	if err != nil {
		tst.Fatal("Error fitting mapper:", err)
	}
	vec, err := m.ToVectors(samples[1])
	if err != nil {
		tst.Fatal("Error encoding:", err)
	}
	back, err := m.ToVertices(vec)
	if err != nil {
		tst.Fatal("Error decoding:", err)
	}
	for i, v := range back {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) {
			tst.Error("NaN in reconstructed vertex", i)
		}
	}
}
