package shape

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const ali1 = `>a
0 0 0
1 0 0
0 1 0
>b
0 0 0.5
1.1 0 0
0 0.9 0.1
`

func TestParseAlignment(tst *testing.T) {
	ali, err := ParseAlignment(bytes.NewBufferString(ali1))
	if err != nil {
		tst.Fatal("Error parsing alignment:", err)
	}
	if ali.NSamples() != 2 {
		tst.Error("Expected 2 samples, got", ali.NSamples())
	}
	if ali.NVertices() != 3 {
		tst.Error("Expected 3 vertices, got", ali.NVertices())
	}
	v, ok := ali.Get("b")
	if !ok {
		tst.Fatal("Missing sample b")
	}
	if v.Coords[0] != (r3.Vec{X: 0, Y: 0, Z: 0.5}) {
		tst.Error("Wrong coordinates for b:", v.Coords[0])
	}
}

func TestAlignmentRoundTrip(tst *testing.T) {
	ali, err := ParseAlignment(bytes.NewBufferString(ali1))
	if err != nil {
		tst.Fatal("Error parsing alignment:", err)
	}
	ali2, err := ParseAlignment(strings.NewReader(ali.String()))
	if err != nil {
		tst.Fatal("Error reparsing alignment:", err)
	}
	if ali.String() != ali2.String() {
		tst.Error("Round trip mismatch")
	}
}

func TestVertexCountMismatch(tst *testing.T) {
	_, err := NewAlignment([]Sample{
		{Label: "a", Vertices: NewVertices([]r3.Vec{{}, {X: 1}})},
		{Label: "b", Vertices: NewVertices([]r3.Vec{{}})},
	})
	if !errors.Is(err, ErrVertexCountMismatch) {
		tst.Error("Expected vertex count mismatch error, got", err)
	}
}

func TestColors(tst *testing.T) {
	const withColors = ">a\n0 0 0 255 0 0\n1 1 1 0 255 0\n"
	ali, err := ParseAlignment(strings.NewReader(withColors))
	if err != nil {
		tst.Fatal("Error parsing alignment:", err)
	}
	v, _ := ali.Get("a")
	if v.Colors[1] != (RGB{0, 255, 0}) {
		tst.Error("Wrong color:", v.Colors[1])
	}
}
