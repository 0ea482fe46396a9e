package nav

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/tilenav/chunk"
)

const (
	DefaultAutoLinkRadius = 360.0
	DefaultAutoLinkCount  = 4
)

type GraphOptions struct {
	AutoLinkRadius float64 `yaml:"auto_link_radius"`
	AutoLinkCount  int     `yaml:"auto_link_count"`
}

// WaypointNode is one graph vertex. Neighbors index into Graph.Nodes.
type WaypointNode struct {
	ID        string
	Pos       cp.Vector
	Neighbors []int
}

// Graph is an immutable waypoint graph with index-based adjacency.
type Graph struct {
	Nodes []WaypointNode
	index map[string]int
}

// BuildGraph links declared neighbours, auto-connects nodes that declare
// none to their nearest neighbours within the radius, then makes every edge
// bidirectional. Links to unknown ids are ignored.
func BuildGraph(waypoints []chunk.Waypoint, opts GraphOptions) *Graph {
	if opts.AutoLinkRadius <= 0 {
		opts.AutoLinkRadius = DefaultAutoLinkRadius
	}
	if opts.AutoLinkCount <= 0 {
		opts.AutoLinkCount = DefaultAutoLinkCount
	}

	g := &Graph{
		Nodes: make([]WaypointNode, 0, len(waypoints)),
		index: make(map[string]int, len(waypoints)),
	}
	for _, wp := range waypoints {
		if _, dup := g.index[wp.ID]; dup {
			continue
		}
		g.index[wp.ID] = len(g.Nodes)
		g.Nodes = append(g.Nodes, WaypointNode{ID: wp.ID, Pos: wp.Pos})
	}

	adj := make([]map[int]struct{}, len(g.Nodes))
	for i := range adj {
		adj[i] = make(map[int]struct{})
	}
	link := func(a, b int) {
		if a == b {
			return
		}
		adj[a][b] = struct{}{}
		adj[b][a] = struct{}{}
	}

	declared := make([]bool, len(g.Nodes))
	for _, wp := range waypoints {
		i := g.index[wp.ID]
		for _, id := range wp.Links {
			if j, ok := g.index[id]; ok {
				link(i, j)
				declared[i] = true
			}
		}
	}

	for i := range g.Nodes {
		if declared[i] {
			continue
		}
		for _, j := range g.nearestWithin(i, opts.AutoLinkRadius, opts.AutoLinkCount) {
			link(i, j)
		}
	}

	for i := range g.Nodes {
		nb := make([]int, 0, len(adj[i]))
		for j := range adj[i] {
			nb = append(nb, j)
		}
		sort.Ints(nb)
		g.Nodes[i].Neighbors = nb
	}
	return g
}

func (g *Graph) nearestWithin(i int, radius float64, count int) []int {
	type cand struct {
		idx  int
		dist float64
	}
	origin := g.Nodes[i].Pos
	cands := make([]cand, 0, len(g.Nodes))
	for j, n := range g.Nodes {
		if j == i {
			continue
		}
		if d := origin.Distance(n.Pos); d <= radius {
			cands = append(cands, cand{idx: j, dist: d})
		}
	}
	sort.Slice(cands, func(a, b int) bool {
		if cands[a].dist != cands[b].dist {
			return cands[a].dist < cands[b].dist
		}
		return cands[a].idx < cands[b].idx
	})
	if len(cands) > count {
		cands = cands[:count]
	}
	out := make([]int, len(cands))
	for k, c := range cands {
		out[k] = c.idx
	}
	return out
}

func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Nodes)
}

func (g *Graph) Lookup(id string) (int, bool) {
	if g == nil {
		return 0, false
	}
	i, ok := g.index[id]
	return i, ok
}

// Nearest returns the node closest to pos within radius. Ties go to the
// lower index.
func (g *Graph) Nearest(pos cp.Vector, radius float64) (int, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, n := range g.nodes() {
		d := pos.Distance(n.Pos)
		if d <= radius && d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, best >= 0
}

// EdgeCount counts undirected edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, n := range g.nodes() {
		total += len(n.Neighbors)
	}
	return total / 2
}

func (g *Graph) nodes() []WaypointNode {
	if g == nil {
		return nil
	}
	return g.Nodes
}
