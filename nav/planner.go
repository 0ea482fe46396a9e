package nav

import (
	"errors"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilenav/log"
)

var (
	// ErrPathNotFound means no route exists; the caller stays idle.
	ErrPathNotFound = errors.New("nav: path not found")
	// ErrNoGrid means the active chunk has not loaded yet.
	ErrNoGrid = errors.New("nav: navigation grid not ready")
	// ErrAlreadyThere means the best reachable point is where the agent stands.
	ErrAlreadyThere = errors.New("nav: already at target")
)

type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyGrid
	StrategyWaypoint
)

func (s Strategy) String() string {
	switch s {
	case StrategyGrid:
		return "grid"
	case StrategyWaypoint:
		return "waypoint"
	default:
		return "none"
	}
}

type Config struct {
	Diagonal            bool         `yaml:"diagonal"`
	MaxExpanded         int          `yaml:"max_expanded"`
	WaypointRadius      float64      `yaml:"waypoint_radius"`
	WaypointPreferRatio float64      `yaml:"waypoint_prefer_ratio"`
	MergeDistance       float64      `yaml:"merge_distance"`
	DropFirstDistance   float64      `yaml:"drop_first_distance"`
	Graph               GraphOptions `yaml:"graph"`
}

func DefaultConfig() Config {
	return Config{
		Diagonal:            true,
		WaypointRadius:      600,
		WaypointPreferRatio: 0.9,
		MergeDistance:       1,
		DropFirstDistance:   4,
		Graph: GraphOptions{
			AutoLinkRadius: DefaultAutoLinkRadius,
			AutoLinkCount:  DefaultAutoLinkCount,
		},
	}
}

// Plan is the outcome of one PlanPath call.
type Plan struct {
	Path           Path
	Strategy       Strategy
	Goal           Cell
	Fallback       bool
	GridLength     float64
	WaypointLength float64
}

// Planner chooses between a dense grid route and a sparse waypoint route.
// It reads the grid and graph it is given and never owns them.
type Planner struct {
	cfg   Config
	grid  *Grid
	graph *Graph
}

func NewPlanner(cfg Config) *Planner {
	return &Planner{cfg: cfg}
}

func (p *Planner) Config() Config {
	return p.cfg
}

func (p *Planner) SetGrid(g *Grid) {
	p.grid = g
}

func (p *Planner) SetGraph(g *Graph) {
	p.graph = g
}

func (p *Planner) Grid() *Grid {
	return p.grid
}

func (p *Planner) Graph() *Graph {
	return p.graph
}

func (p *Planner) searchOptions() SearchOptions {
	return SearchOptions{Diagonal: p.cfg.Diagonal, MaxExpanded: p.cfg.MaxExpanded}
}

// FindPath is grid A* with the start cell forced walkable first, so an agent
// standing on stale blocked data can still leave.
func (p *Planner) FindPath(start, goal Cell) []Cell {
	if p.grid == nil {
		return nil
	}
	p.grid.SetWalkable(start, true)
	return AStar(p.grid, start, goal, p.searchOptions())
}

// PreferWaypoint applies the selection hysteresis: the waypoint route wins
// only when it is shorter than ratio times the grid route.
func PreferWaypoint(gridLength, waypointLength, ratio float64) bool {
	return waypointLength < gridLength*ratio
}

// Plan computes both candidate routes from start to target and returns the
// preferred one, cleaned for the mover.
func (p *Planner) Plan(start, target cp.Vector) (Plan, error) {
	if p.grid == nil || p.grid.Len() == 0 {
		return Plan{}, ErrNoGrid
	}

	startCell := p.grid.ClampCell(start)
	goalCell := p.grid.ClampCell(target)
	p.grid.SetWalkable(startCell, true)

	plan := Plan{Goal: goalCell}

	gridPts, fallback, gridOK := p.gridRoute(startCell, goalCell)
	if gridOK {
		plan.GridLength = Path(gridPts).Length(start)
		plan.Fallback = fallback
	}
	wpPts, wpOK := p.waypointRoute(start, target, startCell, goalCell)
	if wpOK {
		plan.WaypointLength = Path(wpPts).Length(start)
	}

	var chosen []cp.Vector
	switch {
	case gridOK && wpOK:
		if PreferWaypoint(plan.GridLength, plan.WaypointLength, p.cfg.WaypointPreferRatio) {
			plan.Strategy, chosen = StrategyWaypoint, wpPts
			plan.Fallback = false
		} else {
			plan.Strategy, chosen = StrategyGrid, gridPts
		}
	case gridOK:
		plan.Strategy, chosen = StrategyGrid, gridPts
	case wpOK:
		plan.Strategy, chosen = StrategyWaypoint, wpPts
	default:
		log.WithField("goal", goalCell).Debug("no route to target")
		return plan, ErrPathNotFound
	}

	plan.Path = CleanPath(chosen, start, p.cfg.MergeDistance, p.cfg.DropFirstDistance)
	if len(plan.Path) == 0 {
		return plan, ErrAlreadyThere
	}
	log.WithFields(log.Fields{
		"strategy": plan.Strategy.String(),
		"points":   len(plan.Path),
		"grid":     plan.GridLength,
		"waypoint": plan.WaypointLength,
		"fallback": plan.Fallback,
	}).Debug("path planned")
	return plan, nil
}

// gridRoute tries the literal goal and falls back to the nearest reachable
// cell around it.
func (p *Planner) gridRoute(startCell, goalCell Cell) ([]cp.Vector, bool, bool) {
	opts := p.searchOptions()
	cells := AStar(p.grid, startCell, goalCell, opts)
	fallback := false
	if cells == nil {
		cells = SearchNearestReachable(p.grid, startCell, goalCell, opts)
		fallback = true
	}
	if cells == nil {
		return nil, false, false
	}
	return p.grid.centers(cells), fallback, true
}

// waypointRoute stitches grid segments onto a waypoint-graph route. Failure
// of either stitching segment fails the whole route.
func (p *Planner) waypointRoute(start, target cp.Vector, startCell, goalCell Cell) ([]cp.Vector, bool) {
	if p.graph.Len() == 0 {
		return nil, false
	}
	from, ok := p.graph.Nearest(start, p.cfg.WaypointRadius)
	if !ok {
		return nil, false
	}
	to, ok := p.graph.Nearest(target, p.cfg.WaypointRadius)
	if !ok {
		return nil, false
	}
	nodes := p.graph.FindPath(from, to)
	if nodes == nil {
		return nil, false
	}

	opts := p.searchOptions()
	firstCell := p.grid.ClampCell(p.graph.Nodes[nodes[0]].Pos)
	head := AStar(p.grid, startCell, firstCell, opts)
	if head == nil {
		return nil, false
	}
	lastCell := p.grid.ClampCell(p.graph.Nodes[nodes[len(nodes)-1]].Pos)
	tail := AStar(p.grid, lastCell, goalCell, opts)
	if tail == nil {
		return nil, false
	}

	pts := make([]cp.Vector, 0, len(head)+len(nodes)+len(tail))
	pts = append(pts, p.grid.centers(head[:len(head)-1])...)
	for _, n := range nodes {
		pts = append(pts, p.graph.Nodes[n].Pos)
	}
	pts = append(pts, p.grid.centers(tail[1:])...)
	return pts, true
}
