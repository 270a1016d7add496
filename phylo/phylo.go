// Package phylo reconstructs ancestral shapes on a phylogenetic tree
// by maximum likelihood. Observed tip shapes are encoded as vectors,
// a symbolic log-likelihood over every branch is assembled under a
// motion model, ancestral vectors enter as free symbols, and a global
// search over the flat variable vector recovers the ancestral
// geometry.
package phylo

import (
	"errors"
	"fmt"

	"github.com/op/go-logging"

	"github.com/phyloshape/phyloshape/expr"
	"github.com/phyloshape/phyloshape/motion"
	"github.com/phyloshape/phyloshape/optimize"
	"github.com/phyloshape/phyloshape/shape"
	"github.com/phyloshape/phyloshape/tree"
	"github.com/phyloshape/phyloshape/vectors"
)

// log is the global logging variable.
var log = logging.MustGetLogger("phylo")

// Error kinds; all are fatal at the point of detection.
var (
	// ErrMissingSample means a tree tip has no matching shape
	// sample.
	ErrMissingSample = errors.New("phylo: tree tip without shape sample")
	// ErrTransformPair means only one of the transform pair was
	// supplied.
	ErrTransformPair = errors.New("phylo: vector transform and inverse transform must be used together")
	// ErrSequence means a pipeline stage was invoked before its
	// predecessor.
	ErrSequence = errors.New("phylo: operation invoked out of order")
)

// Transform maps the full set of per-tip vectors to a transformed
// set, e.g. a dimensionality-reducing projection. InverseTransform
// maps a single transformed vector back; it must be the exact
// inverse. Either both are supplied or neither.
type (
	Transform        func(vecs [][]float64) [][]float64
	InverseTransform func(vec []float64) []float64
)

// PhyloShape binds one tree to one shape alignment and owns all
// reconstruction state. Instances are not safe for concurrent use,
// but independent instances share nothing.
type PhyloShape struct {
	tree      *tree.Tree
	shapes    *shape.Alignment
	model     motion.Model
	transform Transform
	inverse   InverseTransform

	translator *vectors.Mapper
	tipVectors [][]float64     // by tip id
	ancSymbols [][]*expr.Symbol // by node id - NTips
	nDims      int
	loglike    expr.Expr
	haveForm   bool
	negloglike optimize.Objective

	modelParams []float64
	ancVectors  [][]float64 // by node id - NTips
	ancVertices []shape.Vertices
}

// New binds a tree to a shape alignment. Every tip name must have a
// matching sample; transform and inverse must be supplied together.
// A nil model defaults to Brownian motion.
func New(t *tree.Tree, shapes *shape.Alignment, model motion.Model,
	transform Transform, inverse InverseTransform) (*PhyloShape, error) {
	if (transform == nil) != (inverse == nil) {
		return nil, ErrTransformPair
	}
	if model == nil {
		model = motion.NewBrownian()
	}
	for id := 0; id < t.NTips(); id++ {
		name := t.GetNode(id).Name
		if _, ok := shapes.Get(name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSample, name)
		}
	}
	return &PhyloShape{
		tree:      t,
		shapes:    shapes,
		model:     model,
		transform: transform,
		inverse:   inverse,
	}, nil
}

// Model returns the motion model.
func (ps *PhyloShape) Model() motion.Model {
	return ps.model
}

// Translator returns the fitted vertex/vector mapper.
func (ps *PhyloShape) Translator() *vectors.Mapper {
	return ps.translator
}

// BuildTranslator fits the vertex/vector mapper from all samples.
func (ps *PhyloShape) BuildTranslator(mode vectors.Mode, numLandmarks, numIter int) error {
	m, err := vectors.New(ps.shapes.Coords(), mode, numLandmarks, numIter)
	if err != nil {
		return err
	}
	ps.translator = m
	log.Infof("Vertex:Vector (%d:%d) translator built.", m.NVertices(), m.NumDims())
	return nil
}

// BuildTipVectors encodes every tip's vertices, applying the forward
// transform if one was supplied.
func (ps *PhyloShape) BuildTipVectors() error {
	if ps.translator == nil {
		return fmt.Errorf("%w: translator not built", ErrSequence)
	}
	vecs := make([][]float64, ps.tree.NTips())
	for id := 0; id < ps.tree.NTips(); id++ {
		v, _ := ps.shapes.Get(ps.tree.GetNode(id).Name)
		vec, err := ps.translator.ToVectors(v.Coords)
		if err != nil {
			return err
		}
		vecs[id] = vec
	}
	if ps.transform != nil {
		orig := len(vecs[0])
		vecs = ps.transform(vecs)
		if len(vecs) != ps.tree.NTips() {
			return fmt.Errorf("phylo: transform changed the number of samples")
		}
		log.Infof("Dimension %d -> %d", orig, len(vecs[0]))
	}
	ps.tipVectors = vecs
	ps.nDims = len(vecs[0])
	log.Infof("Vectors for %d tips built.", ps.tree.NTips())
	return nil
}

// SymAncestralVectors allocates one fresh symbol per vector component
// for every internal node. Names combine node id and component index
// and are therefore unique across nodes.
func (ps *PhyloShape) SymAncestralVectors() error {
	if ps.tipVectors == nil {
		return fmt.Errorf("%w: tip vectors not built", ErrSequence)
	}
	nAnc := ps.tree.NNodes() - ps.tree.NTips()
	ps.ancSymbols = make([][]*expr.Symbol, nAnc)
	for i := range ps.ancSymbols {
		id := ps.tree.NTips() + i
		syms := make([]*expr.Symbol, ps.nDims)
		for j := range syms {
			syms[j] = expr.NewSymbol(fmt.Sprintf("v%d_%d", id, j))
		}
		ps.ancSymbols[i] = syms
	}
	log.Infof("Vectors for %d ancestral nodes symbolized.", nAnc)
	return nil
}

// nodeExprs returns a node's vector as expressions: constants for
// tips, symbols for internal nodes.
func (ps *PhyloShape) nodeExprs(node *tree.Node) []expr.Expr {
	out := make([]expr.Expr, ps.nDims)
	if node.IsTerminal() {
		for j, v := range ps.tipVectors[node.Id] {
			out[j] = expr.Num(v)
		}
		return out
	}
	for j, s := range ps.ancSymbols[node.Id-ps.tree.NTips()] {
		out[j] = s
	}
	return out
}

// BuildLogLike walks every non-root node in the tree's deterministic
// post-order and sums the model's branch terms into a single symbolic
// log-likelihood.
func (ps *PhyloShape) BuildLogLike(logFn motion.LogFunc) error {
	if ps.ancSymbols == nil {
		return fmt.Errorf("%w: ancestral symbols not built", ErrSequence)
	}
	terms := make([]expr.Expr, 0, ps.tree.NNodes()-1)
	for _, node := range ps.tree.NodeOrder() {
		if node.IsRoot() {
			continue
		}
		term := ps.model.BranchLogLike(node.BranchLength,
			ps.nodeExprs(node.Parent), ps.nodeExprs(node), logFn)
		terms = append(terms, term)
	}
	ps.loglike = expr.Add(terms...)
	ps.haveForm = true
	log.Infof("Num of variables: %d", len(ps.VariableOrder()))
	log.Info("Log-likelihood formula constructed.")
	return nil
}

// VariableOrder returns the canonical free-variable ordering: model
// parameters first, then every internal node's symbols in node-id
// order. It is recomputed from the model and symbol table on every
// call, so the formula builder, compiler and unpacker can never
// disagree.
func (ps *PhyloShape) VariableOrder() []*expr.Symbol {
	params := ps.model.Parameters()
	vars := make([]*expr.Symbol, 0, len(params)+len(ps.ancSymbols)*ps.nDims)
	vars = append(vars, params...)
	for _, syms := range ps.ancSymbols {
		vars = append(vars, syms...)
	}
	return vars
}

// Compile turns the symbolic formula into the numeric negative
// log-likelihood of the flat variable vector.
func (ps *PhyloShape) Compile() error {
	if !ps.haveForm {
		return fmt.Errorf("%w: formula not built", ErrSequence)
	}
	fn, err := expr.Compile(expr.Neg(ps.loglike), ps.VariableOrder())
	if err != nil {
		return err
	}
	ps.negloglike = optimize.Objective(fn)
	log.Debug("Log-likelihood formula functionalized.")
	return nil
}

// NegLogLike returns the compiled objective, or a sequencing error
// when Compile has not run.
func (ps *PhyloShape) NegLogLike() (optimize.Objective, error) {
	if ps.negloglike == nil {
		return nil, fmt.Errorf("%w: formula not compiled", ErrSequence)
	}
	return ps.negloglike, nil
}

// Minimize searches for the maximum likelihood solution with the
// given driver and unpacks the result. No ancestral state is touched
// unless an attempt converges.
func (ps *PhyloShape) Minimize(driver *optimize.Driver) error {
	obj, err := ps.NegLogLike()
	if err != nil {
		return err
	}
	driver.TrailBlock = ps.nDims
	res, err := driver.Run(obj, len(ps.VariableOrder()))
	if err != nil {
		return err
	}
	log.Infof("Loglikelihood: %v", -res.F)
	return ps.unpack(res)
}

// unpack splits the optimized flat vector into model parameters and
// per-node ancestral vectors, inverting the packing of
// VariableOrder.
func (ps *PhyloShape) unpack(res optimize.Result) error {
	nPar := len(ps.model.Parameters())
	want := nPar + len(ps.ancSymbols)*ps.nDims
	if len(res.X) != want {
		return fmt.Errorf("phylo: result has %d variables, want %d", len(res.X), want)
	}
	ps.modelParams = append([]float64(nil), res.X[:nPar]...)
	for i, s := range ps.model.Parameters() {
		log.Infof("%s=%f", s.Name(), ps.modelParams[i])
	}
	ps.ancVectors = make([][]float64, len(ps.ancSymbols))
	at := nPar
	for i := range ps.ancSymbols {
		ps.ancVectors[i] = append([]float64(nil), res.X[at:at+ps.nDims]...)
		at += ps.nDims
	}
	return nil
}

// BuildAncestralVertices reconstructs vertex geometry for every
// internal node from its optimized vector, applying the inverse
// transform if one was supplied.
func (ps *PhyloShape) BuildAncestralVertices() error {
	if ps.ancVectors == nil {
		return fmt.Errorf("%w: no optimization result", ErrSequence)
	}
	verts := make([]shape.Vertices, len(ps.ancVectors))
	for i, vec := range ps.ancVectors {
		if ps.inverse != nil {
			vec = ps.inverse(vec)
		}
		coords, err := ps.translator.ToVertices(vec)
		if err != nil {
			return err
		}
		verts[i] = shape.NewVertices(coords)
	}
	ps.ancVertices = verts
	return nil
}

// ModelParams returns the fitted model parameters.
func (ps *PhyloShape) ModelParams() []float64 {
	return ps.modelParams
}

// AncestralVector returns the optimized vector of an internal node.
func (ps *PhyloShape) AncestralVector(nodeID int) ([]float64, bool) {
	i := nodeID - ps.tree.NTips()
	if ps.ancVectors == nil || i < 0 || i >= len(ps.ancVectors) {
		return nil, false
	}
	return ps.ancVectors[i], true
}

// Vertices returns the reconstructed vertices of an internal node.
func (ps *PhyloShape) Vertices(nodeID int) (shape.Vertices, bool) {
	i := nodeID - ps.tree.NTips()
	if ps.ancVertices == nil || i < 0 || i >= len(ps.ancVertices) {
		return shape.Vertices{}, false
	}
	return ps.ancVertices[i], true
}

// AncestralShapes returns every internal node's reconstruction as a
// labeled sample; unnamed nodes are labeled by id.
func (ps *PhyloShape) AncestralShapes() []shape.Sample {
	out := make([]shape.Sample, 0, len(ps.ancVertices))
	for i, v := range ps.ancVertices {
		id := ps.tree.NTips() + i
		label := ps.tree.GetNode(id).Name
		if label == "" {
			label = fmt.Sprintf("node%d", id)
		}
		out = append(out, shape.Sample{Label: label, Vertices: v})
	}
	return out
}

// Options configure ReconstructML.
type Options struct {
	// Mode selects the translator fitting mode.
	Mode vectors.Mode
	// NumLandmarks is the translator reference landmark count.
	NumLandmarks int
	// NumIter is the translator refinement iteration count.
	NumIter int
	// NumProc is a concurrency hint. It is accepted for interface
	// compatibility and deliberately ignored: the reconstruction
	// runs single-threaded regardless of its value.
	NumProc int
	// Driver runs the optimization; nil means the default
	// basin-hopping driver with the default seed.
	Driver *optimize.Driver
}

// DefaultOptions returns the default reconstruction settings.
func DefaultOptions() Options {
	return Options{
		Mode:         vectors.NetworkLocal,
		NumLandmarks: vectors.DefaultNumLandmarks,
		NumIter:      vectors.DefaultNumIter,
		NumProc:      1,
	}
}

// ReconstructML reconstructs ancestral shapes by maximum likelihood:
// it fits the translator, encodes tip vectors, symbolizes ancestral
// vectors, assembles and compiles the log-likelihood, minimizes it
// and rebuilds ancestral vertex geometry. On failure no internal
// node carries a reconstruction.
func (ps *PhyloShape) ReconstructML(opts Options) error {
	if opts.NumProc < 1 {
		return fmt.Errorf("phylo: invalid concurrency hint: %d", opts.NumProc)
	}
	if opts.NumProc > 1 {
		log.Noticef("NumProc=%d requested; parallel attempts are not supported, running single-threaded", opts.NumProc)
	}
	if err := ps.BuildTranslator(opts.Mode, opts.NumLandmarks, opts.NumIter); err != nil {
		return err
	}
	if err := ps.BuildTipVectors(); err != nil {
		return err
	}
	if err := ps.SymAncestralVectors(); err != nil {
		return err
	}
	if err := ps.BuildLogLike(expr.Log); err != nil {
		return err
	}
	if err := ps.Compile(); err != nil {
		return err
	}
	driver := opts.Driver
	if driver == nil {
		driver = optimize.NewDriver(optimize.NewBasinHopping(), optimize.DefaultSeed)
	}
	if err := ps.Minimize(driver); err != nil {
		return err
	}
	return ps.BuildAncestralVertices()
}
