package scenery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/algorithms"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// ErrUnresolved is returned when a node is reached before one of the nodes
// feeding it.
var ErrUnresolved = errors.New("node has unresolved inputs")

// NodeEvent describes one node analysis. Energy and Rays count the light
// leaving the node, Dropped the rays filtered on the way to its
// successors.
type NodeEvent struct {
	Path      []string
	Node      optic.Node
	Mode      optic.Mode
	Direction optic.Direction
	Pass      int
	Energy    units.Energy
	Rays      int
	Dropped   int
	Elapsed   time.Duration
}

// Observer is notified while an analysis runs. Calls come from the
// goroutine running the analysis.
type Observer interface {
	NodeAnalyzed(ev NodeEvent)
	PassDone(pass int, d optic.Direction)
}

type nopObserver struct{}

func (nopObserver) NodeAnalyzed(NodeEvent)        {}
func (nopObserver) PassDone(int, optic.Direction) {}

// Run selects the analysis mode and its configuration.
type Run struct {
	Mode       optic.Mode
	RayTrace   optic.RayTraceConfig
	GhostFocus optic.GhostFocusConfig
	Observer   Observer
}

// nodeState tracks a node through one execution of a group.
type nodeState int

const (
	unresolved nodeState = iota
	ready
	resolved
)

// execution carries the settings of one pass through nested groups.
type execution struct {
	ctx  context.Context
	run  Run
	pass int
	path []string
}

func (x *execution) observer() Observer {
	if x.run.Observer == nil {
		return nopObserver{}
	}
	return x.run.Observer
}

// Analyze runs an analysis over the group and returns the light leaving
// its mapped output ports. The group is reset first and cannot be changed
// while the analysis runs.
func (g *Group) Analyze(ctx context.Context, run Run) (optic.LightResult, error) {
	switch run.Mode {
	case optic.ModeEnergy:
	case optic.ModeRayTrace:
		if err := run.RayTrace.Validate(); err != nil {
			return nil, err
		}
	case optic.ModeGhostFocus:
		if err := run.GhostFocus.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, g.invalid("analyze", fmt.Errorf("unknown analysis mode %q", run.Mode))
	}
	if err := g.lock(); err != nil {
		return nil, err
	}
	defer g.unlock()

	if g.Inverted() {
		return nil, g.invalid("analyze", ErrInvertedRoot)
	}
	d := optic.Forward
	if err := g.preflight(d, make(map[visit]bool)); err != nil {
		return nil, err
	}

	g.Reset()
	x := &execution{ctx: ctx, run: run}
	if run.Mode != optic.ModeGhostFocus {
		return g.execute(x, optic.LightResult{}, d)
	}
	return g.ghostFocus(x, d)
}

// visit is a group seen in one direction during preflight.
type visit struct {
	group *Group
	d     optic.Direction
}

// preflight checks the group and every group reached from it before any
// node runs. Edges and mappings must fit the current port roles, each group
// needs an execution order in the direction it is traversed, and nodes
// that create light must be traversed forward.
func (g *Group) preflight(d optic.Direction, seen map[visit]bool) error {
	if seen[visit{g, d}] {
		return nil
	}
	seen[visit{g, d}] = true
	snap := g.snapshot()

	var nested []visit
	for _, id := range snap.order {
		n := snap.nodes[id]
		target := n
		if ref, ok := n.(*Reference); ok {
			t, err := ref.Resolve()
			if err != nil {
				return err
			}
			target = t
		}
		nd := optic.Effective(n.Inverted(), d)
		if _, ok := target.(optic.ForwardOnly); ok && nd != optic.Forward {
			return optic.NewError("analyze").Configuration().Node(id, n.Name()).Cause(optic.ErrNotInvertible).Err()
		}
		if sub, ok := target.(*Group); ok {
			nested = append(nested, visit{sub, nd})
		}
	}

	for _, e := range snap.edges {
		if err := checkRole(snap.nodes[e.From], e.FromPort, optic.Output); err != nil {
			return g.invalid("analyze", err)
		}
		if err := checkRole(snap.nodes[e.To], e.ToPort, optic.Input); err != nil {
			return g.invalid("analyze", err)
		}
	}
	for _, m := range snap.inputs {
		if err := checkRole(snap.nodes[m.Node], m.Port, optic.Input); err != nil {
			return g.invalid("analyze", err)
		}
	}
	for _, m := range snap.outputs {
		if err := checkRole(snap.nodes[m.Node], m.Port, optic.Output); err != nil {
			return g.invalid("analyze", err)
		}
	}

	if _, err := algorithms.TopologicalSort(snap.graph(d)); err != nil {
		return g.invalid("analyze", err)
	}
	for _, v := range nested {
		if err := v.group.preflight(v.d, seen); err != nil {
			return err
		}
	}
	return nil
}

// ghostFocus runs alternating passes until no reflected bundles are left
// on any surface or the bounce limit is reached. Pass 0 runs in direction
// d, every odd pass against it.
func (g *Group) ghostFocus(x *execution, d optic.Direction) (optic.LightResult, error) {
	results := optic.LightResult{}
	for pass := 0; pass <= x.run.GhostFocus.MaxBounces; pass++ {
		if err := x.ctx.Err(); err != nil {
			return nil, err
		}
		pd := d
		if pass%2 == 1 {
			pd = d.Reverse()
		}
		x.pass = pass
		out, err := g.execute(x, optic.LightResult{}, pd)
		if err != nil {
			return nil, err
		}
		for port, data := range out {
			bundles, _ := data.Ghosts()
			prev, _ := results[port].Ghosts()
			results[port] = optic.GhostData(append(prev, bundles...))
		}
		x.observer().PassDone(pass, pd)
		if !g.hasReflections() {
			break
		}
	}
	return results, nil
}

// hasReflections reports whether any port surface still caches reflected
// bundles.
func (g *Group) hasReflections() bool {
	found := false
	g.Walk(func(_ []string, n optic.Node) {
		if found {
			return
		}
		for _, s := range n.Ports().Surfaces() {
			if len(s.Reflected(optic.Forward)) > 0 || len(s.Reflected(optic.Backward)) > 0 {
				found = true
				return
			}
		}
	})
	return found
}

// snapshot is a consistent copy of the group taken before execution.
type snapshot struct {
	nodes   map[uuid.UUID]optic.Node
	order   []uuid.UUID
	edges   []Edge
	inputs  []Mapping
	outputs []Mapping
}

func (g *Group) snapshot() snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := snapshot{
		nodes:   make(map[uuid.UUID]optic.Node, len(g.nodes)),
		order:   slices.Clone(g.order),
		edges:   slices.Clone(g.edges),
		inputs:  slices.Clone(g.inputs),
		outputs: slices.Clone(g.outputs),
	}
	for id, ref := range g.nodes {
		s.nodes[id] = ref.node
	}
	return s
}

// graph returns the dependency graph for light travelling in direction d.
func (s snapshot) graph(d optic.Direction) *algorithms.Digraph {
	dg := algorithms.NewDigraph()
	for _, id := range s.order {
		dg.AddNode(id)
	}
	for _, e := range s.edges {
		if d == optic.Forward {
			dg.AddEdge(e.From, e.To)
		} else {
			dg.AddEdge(e.To, e.From)
		}
	}
	return dg
}

// route returns the edge light leaves through from the given port, seen
// in direction d, and the node and port it arrives at.
func (s snapshot) route(id uuid.UUID, port string, d optic.Direction) (Edge, uuid.UUID, string, bool) {
	for _, e := range s.edges {
		if d == optic.Forward && e.From == id && e.FromPort == port {
			return e, e.To, e.ToPort, true
		}
		if d == optic.Backward && e.To == id && e.ToPort == port {
			return e, e.From, e.FromPort, true
		}
	}
	return Edge{}, uuid.Nil, "", false
}

// boundary returns the mappings light enters and leaves the group through
// in direction d.
func (s snapshot) boundary(d optic.Direction) (incoming, outgoing []Mapping) {
	if d == optic.Forward {
		return s.inputs, s.outputs
	}
	return s.outputs, s.inputs
}

// execute propagates light through the group in direction d. Nodes run in
// topological order; the output of every node is carried along the edges
// to the inputs of its successors.
func (g *Group) execute(x *execution, in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	snap := g.snapshot()
	dg := snap.graph(d)
	order, err := algorithms.TopologicalSort(dg)
	if err != nil {
		return nil, g.invalid("analyze", err)
	}

	frame := optic.NewFrame(g.Isometry(), 0, d)
	incoming, outgoing := snap.boundary(d)
	pending := make(map[uuid.UUID]optic.LightResult, len(order))
	for _, m := range incoming {
		data, ok := in[m.External]
		if !ok {
			continue
		}
		if pending[m.Node] == nil {
			pending[m.Node] = optic.LightResult{}
		}
		pending[m.Node][m.Port] = transform(data, frame.Enter)
	}

	state := make(map[uuid.UUID]nodeState, len(order))
	results := optic.LightResult{}
	for _, id := range order {
		if err := x.ctx.Err(); err != nil {
			return nil, err
		}
		n := snap.nodes[id]
		for _, p := range dg.Predecessors(id) {
			if state[p] != resolved {
				return nil, optic.NewError("analyze").Analysis().Node(id, n.Name()).Cause(ErrUnresolved).Err()
			}
		}
		state[id] = ready

		input := pending[id]
		if input == nil {
			input = optic.LightResult{}
		}
		start := time.Now()
		out, err := x.analyze(n, input, optic.Effective(n.Inverted(), d))
		if err != nil {
			return nil, optic.NodeError("analyze", id, n.Name(), err)
		}
		ev := NodeEvent{
			Path:      x.path,
			Node:      n,
			Mode:      x.run.Mode,
			Direction: d,
			Pass:      x.pass,
			Energy:    out.TotalEnergy(),
			Rays:      countRays(out),
			Elapsed:   time.Since(start),
		}
		delete(pending, id)

		for _, port := range out.Ports() {
			data := out[port]
			if e, to, toPort, ok := snap.route(id, port, d); ok {
				moved, keep, dropped, err := x.propagate(data, e.Distance)
				ev.Dropped += dropped
				if err != nil {
					return nil, optic.NodeError("propagate", id, n.Name(), fmt.Errorf("port %q: %w", port, err))
				}
				if !keep {
					continue
				}
				if pending[to] == nil {
					pending[to] = optic.LightResult{}
				}
				pending[to][toPort] = moved
				continue
			}
			i := slices.IndexFunc(outgoing, func(m Mapping) bool { return m.Node == id && m.Port == port })
			if i >= 0 {
				results[outgoing[i].External] = transform(data, frame.Leave)
			}
		}
		x.observer().NodeAnalyzed(ev)
		state[id] = resolved
	}
	return results, nil
}

// analyze runs one node in direction d. Groups, also behind references,
// are executed in place so that they share the context and observer.
func (x *execution) analyze(n optic.Node, in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	target := n
	if ref, ok := n.(*Reference); ok {
		t, err := ref.Resolve()
		if err != nil {
			return nil, err
		}
		target = t
	}
	if sub, ok := target.(*Group); ok {
		nested := *x
		nested.path = append(slices.Clone(x.path), n.Name())
		return sub.execute(&nested, in, d)
	}
	switch x.run.Mode {
	case optic.ModeEnergy:
		return n.AnalyzeEnergy(in, d)
	case optic.ModeRayTrace:
		return n.AnalyzeRayTrace(in, x.run.RayTrace, d)
	default:
		return n.AnalyzeGhostFocus(in, x.run.GhostFocus, d, x.pass)
	}
}

// propagate carries light over an edge. Spectra are unchanged; rays are
// moved to the next entrance plane and filtered. keep is false when
// nothing arrives.
func (x *execution) propagate(data optic.LightData, distance units.Length) (moved optic.LightData, keep bool, dropped int, err error) {
	switch data.Kind() {
	case optic.RaysKind:
		b, _ := data.Bundle()
		if b == nil {
			return data, false, 0, nil
		}
		out, n, err := advance(b, distance, x.run.RayTrace)
		if err != nil {
			return data, false, 0, err
		}
		return optic.RayData(out), true, n, nil
	case optic.GhostKind:
		bundles, _ := data.Ghosts()
		out := make([]*ray.Bundle, 0, len(bundles))
		for _, b := range bundles {
			if b == nil {
				continue
			}
			a, n, err := advance(b, distance, x.run.GhostFocus.RayTrace)
			if err != nil {
				return data, false, 0, err
			}
			dropped += n
			if a.Len() > 0 {
				out = append(out, a)
			}
		}
		return optic.GhostData(out), len(out) > 0, dropped, nil
	}
	return data, true, 0, nil
}

func advance(b *ray.Bundle, distance units.Length, cfg optic.RayTraceConfig) (*ray.Bundle, int, error) {
	moved := b.Clone()
	dropped := moved.DropNonForward()
	if err := moved.Advance(distance); err != nil {
		return nil, 0, err
	}
	return moved, dropped + cfg.Filter(moved), nil
}

// transform maps the rays of data through fn. Spectra pass unchanged.
func transform(data optic.LightData, fn func(*ray.Bundle) *ray.Bundle) optic.LightData {
	switch data.Kind() {
	case optic.RaysKind:
		if b, _ := data.Bundle(); b != nil {
			return optic.RayData(fn(b))
		}
	case optic.GhostKind:
		bundles, _ := data.Ghosts()
		out := make([]*ray.Bundle, 0, len(bundles))
		for _, b := range bundles {
			if b != nil {
				out = append(out, fn(b))
			}
		}
		return optic.GhostData(out)
	}
	return data
}

func countRays(r optic.LightResult) int {
	n := 0
	for _, data := range r {
		if b, ok := data.Bundle(); ok {
			n += b.Len()
		}
		if bundles, ok := data.Ghosts(); ok {
			for _, b := range bundles {
				n += b.Len()
			}
		}
	}
	return n
}

// The group implements optic.Node so that it can be nested and
// referenced. These entry points run without cancellation or observer.

func (g *Group) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	return g.execute(&execution{ctx: context.Background(), run: Run{Mode: optic.ModeEnergy}}, in, d)
}

func (g *Group) AnalyzeRayTrace(in optic.LightResult, cfg optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	return g.execute(&execution{ctx: context.Background(), run: Run{Mode: optic.ModeRayTrace, RayTrace: cfg}}, in, d)
}

func (g *Group) AnalyzeGhostFocus(in optic.LightResult, cfg optic.GhostFocusConfig, d optic.Direction, pass int) (optic.LightResult, error) {
	x := &execution{ctx: context.Background(), run: Run{Mode: optic.ModeGhostFocus, GhostFocus: cfg}, pass: pass}
	return g.execute(x, in, d)
}
