package layout

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/anneal"
	"github.com/mCRL2org/ltsgraph/pkg/force"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
	"github.com/mCRL2org/ltsgraph/pkg/observability"
	"github.com/mCRL2org/ltsgraph/pkg/octree"
)

// Drift correction timing.
const (
	driftIdle   = 2 * time.Second
	driftSpread = 3 * time.Second
)

// selfLoopRatio is the rest distance of a self-loop handle from its node, as
// a fraction of the natural edge length.
const selfLoopRatio = 0.25

// DefaultSeed seeds engines created without [WithSeed].
const DefaultSeed = 1

// Stats describes one call to [Engine.Apply].
type Stats struct {
	Iteration   int           // iterations that did work since creation
	Nodes       int           // working-set nodes
	Edges       int           // working-set edges
	Moved       int           // points displaced this iteration
	Energy      float64       // sum of squared net forces of movable points
	Temperature float64       // temperature used for this iteration
	Stable      bool          // graph is stable after the call
	Skipped     bool          // the graph was already stable
	Duration    time.Duration // wall time including lock wait
}

// Option configures an [Engine].
type Option func(*Engine)

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSeed seeds the engine's random source.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = newRand(seed) }
}

// WithSettings replaces the default tunables.
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithClip replaces the default clip region.
func WithClip(b r3.Box) Option {
	return func(e *Engine) { e.clip = b }
}

// WithAnnealing replaces the default annealing schedule.
func WithAnnealing(cfg anneal.Config) Option {
	return func(e *Engine) { e.annealer = anneal.New(cfg) }
}

// WithClock replaces the time source used by drift correction and annealing
// smoothing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Engine is the spring layout. It is safe for concurrent use: Apply and the
// graph-mutating helpers serialize on the store's write lock, and the
// setters on an internal mutex.
type Engine struct {
	store  *graph.Store
	logger *log.Logger
	now    func() time.Time

	mu       sync.Mutex // guards settings, clip and last
	settings Settings
	clip     r3.Box
	last     Stats

	// Everything below is only touched under the graph write lock.
	rng        *rand.Rand
	annealer   *anneal.Annealer
	tree       *octree.Tree
	revision   uint64
	calm       int
	iterations int
	idleSince  time.Time
	lastApply  time.Time

	slot                                     []int
	nodePos, handlePos, tlabelPos, slabelPos []r3.Vec
	nodeF, handleF, tlabelF, slabelF         []r3.Vec
}

// New returns an engine operating on store.
func New(store *graph.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		logger:   log.Default(),
		now:      time.Now,
		settings: DefaultSettings(),
		clip:     DefaultClip,
		rng:      newRand(DefaultSeed),
		annealer: anneal.New(anneal.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.annealer.SetClock(e.now)
	return e
}

// Store returns the graph store the engine operates on.
func (e *Engine) Store() *graph.Store { return e.store }

// =============================================================================
// Iteration
// =============================================================================

// Apply runs one iteration of the simulation.
func (e *Engine) Apply() Stats {
	begin := time.Now()
	s, clip := e.snapshot()

	var st Stats
	e.store.Update(func(g *graph.Graph) {
		st = e.apply(g, s, clip)
	})
	st.Duration = time.Since(begin)

	e.mu.Lock()
	e.last = st
	e.mu.Unlock()
	return st
}

// RunUntilStable applies iterations until the graph is stable, maxIterations
// have run, or ctx is done. A non-positive maxIterations means no limit.
func (e *Engine) RunUntilStable(ctx context.Context, maxIterations int) (Stats, error) {
	var st Stats
	for i := 0; maxIterations <= 0 || i < maxIterations; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return st, err
			}
		}
		st = e.Apply()
		if st.Stable {
			break
		}
	}
	return st, nil
}

func (e *Engine) apply(g *graph.Graph, s Settings, clip r3.Box) Stats {
	start, now := time.Now(), e.now()
	if g.Stable() {
		return Stats{Iteration: e.iterations, Temperature: e.annealer.Temperature(), Stable: true, Skipped: true}
	}
	if g.Revision() != e.revision || e.idleSince.IsZero() {
		e.annealer.Reset()
		e.revision = g.Revision()
		e.calm = 0
		e.idleSince = now
	}
	e.iterations++

	p := s.params()
	e.gather(g)
	wn, we := len(e.nodePos), len(e.handlePos)

	// Repulsion.
	e.accumulateRepulsion(s, p, clip, e.nodePos, e.nodeF, s.RepulsionWeight)
	e.accumulateRepulsion(s, p, clip, e.handlePos, e.handleF, s.RepulsionWeight*s.ControlPointWeight)
	e.accumulateRepulsion(s, p, clip, e.tlabelPos, e.tlabelF, s.RepulsionWeight*s.ControlPointWeight)

	// Attraction.
	for k := range we {
		edge := g.Edge(g.WorkingEdge(k))
		from, to := g.Node(edge.From).Pos, g.Node(edge.To).Pos
		rest := 0.0
		if !edge.SelfLoop() {
			f := force.Attract(s.Attraction, to, from, s.NatLength, p)
			if i := e.slot[edge.From]; i >= 0 {
				e.nodeF[i] = r3.Add(e.nodeF[i], f)
			}
			if i := e.slot[edge.To]; i >= 0 {
				e.nodeF[i] = r3.Sub(e.nodeF[i], f)
			}
		} else {
			e.handleF[k] = r3.Add(e.handleF[k], force.Repel(s.Repulsion, e.handlePos[k], from, s.RepulsionWeight, p, e.rng))
			rest = s.NatLength * selfLoopRatio
		}
		mid := r3.Scale(0.5, r3.Add(from, to))
		e.handleF[k] = r3.Add(e.handleF[k], force.Attract(s.Attraction, mid, e.handlePos[k], rest, p))
		e.tlabelF[k] = r3.Add(e.tlabelF[k], force.Attract(s.Attraction, e.handlePos[k], e.tlabelPos[k], 0, p))
	}
	for k := range wn {
		e.slabelF[k] = r3.Add(e.slabelF[k], force.Attract(s.Attraction, e.nodePos[k], e.slabelPos[k], 0, p))
	}

	// Application.
	t := e.annealer.Temperature()
	var nodes, edges class
	for k := range wn {
		i := g.WorkingNode(k)
		nodes.move(&g.Node(i).Point, e.nodeF[k], s, p, t, clip)
		nodes.move(&g.StateLabel(i).Point, e.slabelF[k], s, p, t, clip)
	}
	for k := range we {
		i := g.WorkingEdge(k)
		edges.move(g.Handle(i), e.handleF[k], s, p, t, clip)
		edges.move(&g.TransitionLabel(i).Point, e.tlabelF[k], s, p, t, clip)
	}

	// Annealing and stability.
	energy := nodes.energy + edges.energy
	e.annealer.Update(energy)
	if nodes.calm(s.StabilityThreshold) && edges.calm(s.StabilityThreshold) {
		e.calm++
	} else {
		e.calm = 0
	}
	if e.calm >= s.StableIterations {
		g.SetStable(true)
		e.logger.Debug("layout stable", "iterations", e.iterations, "energy", energy)
		observability.Layout().OnStable(e.iterations)
	}

	if s.DriftCorrection {
		e.correctDrift(g, clip, now)
	}
	e.lastApply = now
	observability.Layout().OnIteration(e.iterations, wn, energy, t, time.Since(start))

	return Stats{
		Iteration:   e.iterations,
		Nodes:       wn,
		Edges:       we,
		Moved:       nodes.moved + edges.moved,
		Energy:      energy,
		Temperature: t,
		Stable:      g.Stable(),
	}
}

// class accumulates the energy of one group of points checked together for
// stability.
type class struct {
	energy  float64
	movable int
	moved   int
}

func (c *class) move(pt *graph.Point, f r3.Vec, s Settings, p force.Params, t float64, clip r3.Box) {
	if pt.Anchored() {
		return
	}
	c.movable++
	c.energy += r3.Norm2(f)
	pos, ok := force.Apply(s.Application, pt.Pos, f, t, p)
	if !ok {
		pt.Pos = clamp(pt.Pos, clip)
		return
	}
	pt.Pos = clamp(pos, clip)
	c.moved++
}

func (c *class) calm(threshold float64) bool {
	return math.Sqrt(c.energy) <= threshold*float64(c.movable)
}

// gather resolves the working set once and copies its positions into the
// scratch buffers, zeroing the force accumulators.
func (e *Engine) gather(g *graph.Graph) {
	wn, we := g.WorkingNodeCount(), g.WorkingEdgeCount()

	e.slot = resize(e.slot, g.NodeCount())
	for i := range e.slot {
		e.slot[i] = -1
	}
	e.nodePos = resize(e.nodePos, wn)
	e.slabelPos = resize(e.slabelPos, wn)
	e.nodeF = zeroed(e.nodeF, wn)
	e.slabelF = zeroed(e.slabelF, wn)
	for k := range wn {
		i := g.WorkingNode(k)
		e.slot[i] = k
		e.nodePos[k] = g.Node(i).Pos
		e.slabelPos[k] = g.StateLabel(i).Pos
	}

	e.handlePos = resize(e.handlePos, we)
	e.tlabelPos = resize(e.tlabelPos, we)
	e.handleF = zeroed(e.handleF, we)
	e.tlabelF = zeroed(e.tlabelF, we)
	for k := range we {
		i := g.WorkingEdge(k)
		e.handlePos[k] = g.Handle(i).Pos
		e.tlabelPos[k] = g.TransitionLabel(i).Pos
	}
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}

func zeroed(s []r3.Vec, n int) []r3.Vec {
	s = resize(s, n)
	clear(s)
	return s
}

// =============================================================================
// Repulsion
// =============================================================================

// accumulateRepulsion adds the repulsion every point of pos feels from the
// others to out, pairwise or through the tree.
func (e *Engine) accumulateRepulsion(s Settings, p force.Params, clip r3.Box, pos, out []r3.Vec, strength float64) {
	if s.Repulsion == force.RepulsionNone || len(pos) < 2 {
		return
	}
	if !s.TreeEnabled || len(pos) < s.TreeThreshold {
		for i := range pos {
			for j := range pos {
				if i != j {
					out[i] = r3.Add(out[i], force.Repel(s.Repulsion, pos[i], pos[j], strength, p, e.rng))
				}
			}
		}
		return
	}

	dims := 3
	if clip.Max.Z == clip.Min.Z {
		dims = 2
	}
	if e.tree == nil || e.tree.Dims() != dims {
		e.tree = octree.New(dims)
	}
	e.tree.SetTheta(s.Accuracy)
	e.tree.Reset(boundingCube(pos))
	for _, q := range pos {
		e.tree.Insert(q)
	}
	it := e.tree.Iter(r3.Vec{})
	for i, q := range pos {
		it.Reset(q)
		for it.Next() {
			sn := it.Node()
			if sn.Centroid == q {
				continue
			}
			out[i] = r3.Add(out[i], force.Repel(s.Repulsion, q, sn.Centroid, strength*float64(sn.Count), p, e.rng))
		}
	}
}

// boundingCube returns the bounding box of pts grown by one unit on every
// side.
func boundingCube(pts []r3.Vec) r3.Box {
	lo, hi := pts[0], pts[0]
	for _, q := range pts[1:] {
		lo = r3.Vec{X: min(lo.X, q.X), Y: min(lo.Y, q.Y), Z: min(lo.Z, q.Z)}
		hi = r3.Vec{X: max(hi.X, q.X), Y: max(hi.Y, q.Y), Z: max(hi.Z, q.Z)}
	}
	one := r3.Vec{X: 1, Y: 1, Z: 1}
	return r3.Box{Min: r3.Sub(lo, one), Max: r3.Add(hi, one)}
}

func clamp(p r3.Vec, b r3.Box) r3.Vec {
	return r3.Vec{
		X: min(max(p.X, b.Min.X), b.Max.X),
		Y: min(max(p.Y, b.Min.Y), b.Max.Y),
		Z: min(max(p.Z, b.Min.Z), b.Max.Z),
	}
}

// =============================================================================
// Drift correction
// =============================================================================

// correctDrift moves the working set toward the origin once nothing has been
// anchored for a while, removing the centre-of-mass offset over driftSpread.
func (e *Engine) correctDrift(g *graph.Graph, clip r3.Box, now time.Time) {
	wn := g.WorkingNodeCount()
	if wn == 0 {
		return
	}
	if g.AnyAnchored() {
		e.idleSince = now
		return
	}
	if now.Sub(e.idleSince) < driftIdle || e.lastApply.IsZero() {
		return
	}
	frac := min(1, float64(now.Sub(e.lastApply))/float64(driftSpread))
	if frac <= 0 {
		return
	}

	var com r3.Vec
	for k := range wn {
		com = r3.Add(com, g.Node(g.WorkingNode(k)).Pos)
	}
	shift := r3.Scale(-frac/float64(wn), com)

	nudge := func(pt *graph.Point) { pt.Pos = clamp(r3.Add(pt.Pos, shift), clip) }
	for k := range wn {
		i := g.WorkingNode(k)
		nudge(&g.Node(i).Point)
		nudge(&g.StateLabel(i).Point)
	}
	for k := range g.WorkingEdgeCount() {
		i := g.WorkingEdge(k)
		nudge(g.Handle(i))
		nudge(&g.TransitionLabel(i).Point)
	}
}
