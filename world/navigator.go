package world

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilenav/chunk"
	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/log"
	"github.com/milk9111/tilenav/motion"
	"github.com/milk9111/tilenav/nav"
)

type Options struct {
	ChunkPixels     float64
	ViewDistance    int
	SpawnSearchHops int
	Planner         nav.Config
	Mover           motion.Config
}

func DefaultOptions() Options {
	return Options{
		ChunkPixels:     common.ChunkPixels,
		ViewDistance:    1,
		SpawnSearchHops: DefaultSpawnSearchHops,
		Planner:         nav.DefaultConfig(),
		Mover:           motion.DefaultConfig(),
	}
}

// Navigator ties the chunk lifecycle, the planner and the mover together.
// Every method except Snapshot must be called from the tick loop.
type Navigator struct {
	opts    Options
	store   *chunk.Store
	space   *cp.Space
	coord   *Coordinator
	planner *nav.Planner
	mover   *motion.Mover
	events  EventQueue

	active          chunk.Coord
	hasActive       bool
	waypointsLoaded bool
	lastPlan        nav.Plan

	tick      uint64
	pos       cp.Vector
	gridClone *nav.Grid
	gridSnap  *GridSnapshot
	snapshot  atomic.Pointer[Snapshot]
}

// NewNavigator wires a navigator to store. space may be nil, in which case
// chunk colliders are never mounted.
func NewNavigator(ctx context.Context, store *chunk.Store, space *cp.Space, opts Options) *Navigator {
	if opts.ChunkPixels <= 0 {
		opts.ChunkPixels = common.ChunkPixels
	}
	if opts.SpawnSearchHops <= 0 {
		opts.SpawnSearchHops = DefaultSpawnSearchHops
	}
	n := &Navigator{
		opts:    opts,
		store:   store,
		space:   space,
		planner: nav.NewPlanner(opts.Planner),
		mover:   motion.NewMover(opts.Mover),
	}
	n.coord = NewCoordinator(ctx, store, opts.ChunkPixels, opts.ViewDistance, &n.events)
	n.publish()
	return n
}

// OnAgentChunkMoved recomputes the desired chunk set if pos is in a new
// chunk. The old grid and waypoint graph are dropped when the active chunk
// changes and rebuilt once the new chunk is loaded.
func (n *Navigator) OnAgentChunkMoved(pos cp.Vector) bool {
	n.pos = pos
	if !n.coord.Update(pos) {
		return false
	}
	cur, _ := n.coord.Current()
	if !n.hasActive || cur != n.active {
		n.active = cur
		n.hasActive = true
		n.invalidate()
	}
	n.sync()
	n.publish()
	return true
}

// PlanPath plans from agent to target and hands the result to the mover.
// ErrNoGrid means the active chunk is still loading and the request was
// ignored; any other error leaves the agent idle.
func (n *Navigator) PlanPath(agent, target cp.Vector) (nav.Plan, error) {
	n.pos = agent
	n.sync()
	if n.planner.Grid() == nil {
		log.WithField("target", target).Debug("plan ignored, grid not ready")
		return nav.Plan{}, nav.ErrNoGrid
	}

	plan, err := n.planner.Plan(agent, target)
	n.refreshGrid()
	if err != nil {
		n.stopMover(motion.StopCleared)
		if !errors.Is(err, nav.ErrAlreadyThere) {
			n.events.Push(Event{Kind: EventPathNotFound, Coord: n.active, Err: err})
		}
		n.publish()
		return plan, err
	}

	n.lastPlan = plan
	n.mover.Follow(plan.Path)
	n.events.Push(Event{Kind: EventPathPlanned, Coord: n.active, Detail: plan.Strategy.String()})
	n.publish()
	return plan, nil
}

// Tick applies finished loads, enforces the world bounds and advances the
// mover. Loads and grid invalidation always land before the mover runs.
func (n *Navigator) Tick(pos, manual cp.Vector) motion.Command {
	n.tick++
	n.pos = pos
	n.sync()

	if n.mover.Following() && !n.InBounds(pos) {
		n.stopMover(motion.StopOutOfBounds)
	}
	wasFollowing := n.mover.Following()
	cmd := n.mover.Tick(pos, manual)
	if wasFollowing && !n.mover.Following() {
		n.events.Push(Event{Kind: EventAutoMoveStopped, Coord: n.active, Detail: n.mover.LastStop().String()})
	}

	n.publish()
	return cmd
}

func (n *Navigator) stopMover(reason motion.StopReason) {
	if !n.mover.Following() {
		return
	}
	n.mover.Stop(reason)
	n.events.Push(Event{Kind: EventAutoMoveStopped, Coord: n.active, Detail: reason.String()})
}

// Settle waits for pending loads, then builds the grid if it can.
func (n *Navigator) Settle(ctx context.Context) error {
	loaded, err := n.coord.Settle(ctx)
	n.mount(loaded)
	n.ensureGrid()
	n.publish()
	return err
}

// Spawn loads the chunks around pos and resolves it to walkable ground.
func (n *Navigator) Spawn(ctx context.Context, pos cp.Vector) (cp.Vector, error) {
	n.OnAgentChunkMoved(pos)
	if err := n.Settle(ctx); err != nil {
		return pos, err
	}
	resolved, err := ResolveSpawn(n.planner.Grid(), pos, n.opts.SpawnSearchHops)
	n.pos = resolved
	n.publish()
	return resolved, err
}

// Reload drops a chunk whose source changed and loads it again.
func (n *Navigator) Reload(coord chunk.Coord) {
	n.coord.Reload(coord)
	if n.hasActive && coord == n.active {
		n.invalidate()
	}
	log.WithField("chunk", coord.Key()).Info("chunk reloaded")
}

// PollReloads applies every coordinate waiting on events without blocking.
func (n *Navigator) PollReloads(events <-chan chunk.Coord) int {
	count := 0
	for {
		select {
		case coord, ok := <-events:
			if !ok {
				return count
			}
			n.Reload(coord)
			count++
		default:
			return count
		}
	}
}

// Retry re-requests desired chunks whose loads failed.
func (n *Navigator) Retry() int {
	return n.coord.Retry()
}

func (n *Navigator) sync() {
	n.mount(n.coord.Drain())
	n.ensureGrid()
}

func (n *Navigator) mount(loaded []*chunk.Chunk) {
	if n.space == nil {
		return
	}
	for _, c := range loaded {
		c.Mount(n.space)
	}
}

func (n *Navigator) invalidate() {
	n.planner.SetGrid(nil)
	n.planner.SetGraph(nil)
	n.waypointsLoaded = false
	n.gridClone = nil
	n.gridSnap = nil
}

func (n *Navigator) ensureGrid() {
	if !n.hasActive || n.planner.Grid() != nil {
		return
	}
	c, ok := n.store.Get(n.active)
	if !ok {
		return
	}
	n.planner.SetGrid(nav.Build(c))
	if !n.waypointsLoaded {
		n.planner.SetGraph(nav.BuildGraph(c.Waypoints, n.opts.Planner.Graph))
		n.waypointsLoaded = true
	}
	n.refreshGrid()

	log.WithFields(log.Fields{
		"chunk":     n.active.Key(),
		"walkable":  n.gridClone.WalkableCount(),
		"waypoints": n.planner.Graph().Len(),
		"edges":     n.planner.Graph().EdgeCount(),
	}).Debug("navigation grid built")
	n.events.Push(Event{Kind: EventGridRebuilt, Coord: n.active})
}

func (n *Navigator) refreshGrid() {
	g := n.planner.Grid()
	if g == nil {
		n.gridClone, n.gridSnap = nil, nil
		return
	}
	n.gridClone = g.Clone()
	n.gridSnap = newGridSnapshot(n.active, g)
}

func (n *Navigator) publish() {
	bounds, _ := n.coord.Bounds()
	s := &Snapshot{
		Tick:     n.tick,
		Agent:    n.pos,
		Active:   n.active,
		Loaded:   n.store.Loaded(),
		Pending:  n.coord.Pending(),
		Bounds:   bounds,
		State:    n.mover.StateName(),
		Strategy: nav.StrategyNone.String(),
		Path:     n.mover.Path(),
		Cursor:   n.mover.Cursor(),
		Facing:   n.mover.Facing(),
		Grid:     n.gridSnap,
		diagonal: n.opts.Planner.Diagonal,
		grid:     n.gridClone,
	}
	if n.mover.Following() {
		s.Strategy = n.lastPlan.Strategy.String()
		s.Fallback = n.lastPlan.Fallback
	}
	n.snapshot.Store(s)
}

// Snapshot returns the latest published state. It is safe to call from any
// goroutine.
func (n *Navigator) Snapshot() *Snapshot {
	return n.snapshot.Load()
}

// Events drains queued navigator events.
func (n *Navigator) Events() []Event {
	return n.events.Drain()
}

// InBounds reports whether pos lies inside the loaded world. Before the
// first update every position is in bounds.
func (n *Navigator) InBounds(pos cp.Vector) bool {
	bb, ok := n.coord.Bounds()
	return !ok || bb.ContainsVect(pos)
}

// ClampToBounds pins pos inside the loaded world.
func (n *Navigator) ClampToBounds(pos cp.Vector) cp.Vector {
	bb, ok := n.coord.Bounds()
	if !ok {
		return pos
	}
	return cp.Vector{
		X: common.Clamp(pos.X, bb.L, bb.R),
		Y: common.Clamp(pos.Y, bb.B, bb.T),
	}
}

func (n *Navigator) Active() (chunk.Coord, bool) {
	return n.active, n.hasActive
}

func (n *Navigator) Grid() *nav.Grid {
	return n.planner.Grid()
}

func (n *Navigator) Graph() *nav.Graph {
	return n.planner.Graph()
}

func (n *Navigator) Mover() *motion.Mover {
	return n.mover
}

func (n *Navigator) Coordinator() *Coordinator {
	return n.coord
}

func (n *Navigator) Store() *chunk.Store {
	return n.store
}
