// Package vectors translates between vertex coordinates and the
// fixed-length vector representation the motion models operate on.
//
// The representation is distance-based: a fitted set of landmark
// vertices serves as a reference frame, and a shape is encoded as the
// matrix of distances from every vertex to every landmark. Decoding
// solves the multilateration problem against the fitted landmark
// positions, so the mapping is lossy whenever a sample's landmarks
// stray from the reference configuration.
package vectors

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrVertexCountMismatch is returned when a sample's vertex count
// differs from the fitted topology.
var ErrVertexCountMismatch = errors.New("vectors: vertex count mismatch")

// Mode selects how the mapper reference is fitted.
type Mode int

const (
	// NetworkLocal fits the landmark reference from all samples.
	// This is the default mode.
	NetworkLocal Mode = iota
	// Legacy fits the reference from the first sample only. Kept
	// for compatibility with earlier result sets; not the default.
	Legacy
)

// Defaults for the mapper construction parameters.
const (
	DefaultNumLandmarks = 20
	DefaultNumIter      = 5
)

// ParseMode returns a Mode from its string name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "network-local":
		return NetworkLocal, nil
	case "old":
		return Legacy, nil
	}
	return NetworkLocal, fmt.Errorf("vectors: unknown mode: %s", s)
}

// Mapper converts between vertex coordinates and vector
// representation. It is immutable after construction.
type Mapper struct {
	nVertices int
	landmarks []int
	ref       []r3.Vec
}

// New fits a mapper from the coordinate arrays of every sample.
// All samples must share the same vertex count. numLandmarks must be
// at least 4 (3-D multilateration needs four anchors) and at most the
// vertex count; numIter is the number of landmark refinement rounds.
func New(coords [][]r3.Vec, mode Mode, numLandmarks, numIter int) (*Mapper, error) {
	if len(coords) == 0 {
		return nil, errors.New("vectors: no samples")
	}
	nVertices := len(coords[0])
	for i, c := range coords {
		if len(c) != nVertices {
			return nil, fmt.Errorf("%w: sample %d has %d vertices, want %d",
				ErrVertexCountMismatch, i, len(c), nVertices)
		}
	}
	if numLandmarks < 4 {
		return nil, fmt.Errorf("vectors: need at least 4 landmarks, got %d", numLandmarks)
	}
	if numLandmarks > nVertices {
		return nil, fmt.Errorf("vectors: %d landmarks for %d vertices", numLandmarks, nVertices)
	}
	if numIter < 0 {
		return nil, fmt.Errorf("vectors: negative iteration count: %d", numIter)
	}

	var target []r3.Vec
	if mode == Legacy {
		target = coords[0]
	} else {
		target = meanShape(coords)
	}

	landmarks := selectLandmarks(target, numLandmarks)
	for i := 0; i < numIter; i++ {
		landmarks = refineLandmarks(target, landmarks)
	}

	ref := make([]r3.Vec, numLandmarks)
	for j, v := range landmarks {
		ref[j] = target[v]
	}
	return &Mapper{nVertices: nVertices, landmarks: landmarks, ref: ref}, nil
}

// meanShape returns the per-vertex mean over all samples.
func meanShape(coords [][]r3.Vec) []r3.Vec {
	mean := make([]r3.Vec, len(coords[0]))
	for _, c := range coords {
		for i, v := range c {
			mean[i] = r3.Add(mean[i], v)
		}
	}
	for i := range mean {
		mean[i] = r3.Scale(1/float64(len(coords)), mean[i])
	}
	return mean
}

// selectLandmarks picks k landmark vertices by farthest-point
// sampling, starting from the vertex farthest from the centroid.
func selectLandmarks(target []r3.Vec, k int) []int {
	centroid := r3.Vec{}
	for _, v := range target {
		centroid = r3.Add(centroid, v)
	}
	centroid = r3.Scale(1/float64(len(target)), centroid)

	first, maxD := 0, math.Inf(-1)
	for i, v := range target {
		if d := r3.Norm(r3.Sub(v, centroid)); d > maxD {
			first, maxD = i, d
		}
	}

	landmarks := []int{first}
	minDist := make([]float64, len(target))
	for i, v := range target {
		minDist[i] = r3.Norm(r3.Sub(v, target[first]))
	}
	for len(landmarks) < k {
		next, maxD := -1, math.Inf(-1)
		for i, d := range minDist {
			if d > maxD {
				next, maxD = i, d
			}
		}
		landmarks = append(landmarks, next)
		for i, v := range target {
			if d := r3.Norm(r3.Sub(v, target[next])); d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return landmarks
}

// refineLandmarks runs one medoid-update round: every vertex is
// assigned to its nearest landmark, then each landmark moves to the
// medoid of its cell.
func refineLandmarks(target []r3.Vec, landmarks []int) []int {
	cells := make([][]int, len(landmarks))
	for i, v := range target {
		best, bestD := 0, math.Inf(+1)
		for j, l := range landmarks {
			if d := r3.Norm(r3.Sub(v, target[l])); d < bestD {
				best, bestD = j, d
			}
		}
		cells[best] = append(cells[best], i)
	}
	refined := make([]int, len(landmarks))
	for j, cell := range cells {
		if len(cell) == 0 {
			refined[j] = landmarks[j]
			continue
		}
		best, bestSum := landmarks[j], math.Inf(+1)
		for _, cand := range cell {
			sum := 0.0
			for _, other := range cell {
				sum += r3.Norm(r3.Sub(target[cand], target[other]))
			}
			if sum < bestSum {
				best, bestSum = cand, sum
			}
		}
		refined[j] = best
	}
	return refined
}

// NVertices returns the fitted per-sample vertex count.
func (m *Mapper) NVertices() int {
	return m.nVertices
}

// NumLandmarks returns the number of landmark vertices.
func (m *Mapper) NumLandmarks() int {
	return len(m.landmarks)
}

// Landmarks returns the fitted landmark vertex indices.
func (m *Mapper) Landmarks() []int {
	return append([]int(nil), m.landmarks...)
}

// NumDims returns the flattened vector length. Every sample maps to
// a vector of exactly this size.
func (m *Mapper) NumDims() int {
	return m.nVertices * len(m.landmarks)
}

// ToVectors encodes a sample's coordinates into its vector
// representation: element i*k+j is the distance from vertex i to the
// sample's landmark vertex j. Pure and deterministic.
func (m *Mapper) ToVectors(coords []r3.Vec) ([]float64, error) {
	if len(coords) != m.nVertices {
		return nil, fmt.Errorf("%w: got %d vertices, want %d",
			ErrVertexCountMismatch, len(coords), m.nVertices)
	}
	k := len(m.landmarks)
	vec := make([]float64, m.NumDims())
	for i, v := range coords {
		for j, l := range m.landmarks {
			vec[i*k+j] = r3.Norm(r3.Sub(v, coords[l]))
		}
	}
	return vec, nil
}

// ToVertices decodes a vector representation back into vertex
// coordinates. Every vertex is recovered by solving the linearized
// multilateration system against the fitted landmark reference with
// least squares. The inverse is exact when the encoded landmark
// configuration matches the reference and lossy otherwise.
func (m *Mapper) ToVertices(vec []float64) ([]r3.Vec, error) {
	if len(vec) != m.NumDims() {
		return nil, fmt.Errorf("vectors: got vector of length %d, want %d",
			len(vec), m.NumDims())
	}
	k := len(m.landmarks)
	l0 := m.ref[0]
	n0 := r3.Dot(l0, l0)

	// |x-Lj|^2 = dj^2 minus the j=0 equation gives a linear system
	// 2(Lj-L0).x = d0^2 - dj^2 + |Lj|^2 - |L0|^2.
	a := mat.NewDense(k-1, 3, nil)
	for j := 1; j < k; j++ {
		d := r3.Sub(m.ref[j], l0)
		a.Set(j-1, 0, 2*d.X)
		a.Set(j-1, 1, 2*d.Y)
		a.Set(j-1, 2, 2*d.Z)
	}

	coords := make([]r3.Vec, m.nVertices)
	b := mat.NewVecDense(k-1, nil)
	var x mat.VecDense
	for i := 0; i < m.nVertices; i++ {
		d0 := vec[i*k]
		for j := 1; j < k; j++ {
			dj := vec[i*k+j]
			b.SetVec(j-1, d0*d0-dj*dj+r3.Dot(m.ref[j], m.ref[j])-n0)
		}
		if err := x.SolveVec(a, b); err != nil {
			return nil, fmt.Errorf("vectors: degenerate landmark configuration: %v", err)
		}
		coords[i] = r3.Vec{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}
	}
	return coords, nil
}
