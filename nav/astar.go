package nav

import (
	"container/heap"
	"math"
)

// SearchOptions tunes grid A*.
type SearchOptions struct {
	// Diagonal enables corner-safe 8-way moves costing sqrt(2).
	Diagonal bool
	// MaxExpanded caps closed nodes; zero means the grid's cell count.
	MaxExpanded int
}

var axialOffsets = [4]Cell{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}

var diagonalOffsets = [4]Cell{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}

// AStar finds a shortest path from start to goal, both included. It returns
// nil when the goal is blocked, out of bounds, or unreachable. The start cell
// itself is never checked for walkability.
func AStar(g *Grid, start, goal Cell, opts SearchOptions) []Cell {
	if !g.InBounds(start) || !g.Walkable(goal) {
		return nil
	}
	if start == goal {
		return []Cell{start}
	}

	n := g.Len()
	cameFrom := make([]int, n)
	gScore := make([]float64, n)
	closed := make([]bool, n)
	for i := range cameFrom {
		cameFrom[i] = -1
		gScore[i] = math.Inf(1)
	}

	startIdx := g.index(start)
	goalIdx := g.index(goal)
	gScore[startIdx] = 0

	open := &openSet{}
	heap.Push(open, &openItem{pos: start, f: heuristic(start, goal, opts.Diagonal), g: 0})

	limit := opts.MaxExpanded
	if limit <= 0 || limit > n {
		limit = n
	}
	expanded := 0

	for open.Len() > 0 && expanded < limit {
		current := heap.Pop(open).(*openItem)
		cur := current.pos
		curIdx := g.index(cur)
		if closed[curIdx] {
			continue
		}
		closed[curIdx] = true
		expanded++

		if curIdx == goalIdx {
			return reconstructPath(g, cameFrom, startIdx, goalIdx)
		}

		expand := func(next Cell, cost float64) {
			idx := g.index(next)
			if closed[idx] {
				return
			}
			tentative := gScore[curIdx] + cost
			if tentative < gScore[idx] {
				cameFrom[idx] = curIdx
				gScore[idx] = tentative
				heap.Push(open, &openItem{pos: next, f: tentative + heuristic(next, goal, opts.Diagonal), g: tentative})
			}
		}

		for _, d := range axialOffsets {
			next := Cell{X: cur.X + d.X, Y: cur.Y + d.Y}
			if g.Walkable(next) {
				expand(next, 1)
			}
		}
		if !opts.Diagonal {
			continue
		}
		for _, d := range diagonalOffsets {
			next := Cell{X: cur.X + d.X, Y: cur.Y + d.Y}
			if canTraverseDiagonal(g, cur, d) && g.Walkable(next) {
				expand(next, math.Sqrt2)
			}
		}
	}

	return nil
}

// canTraverseDiagonal forbids cutting a wall corner: both orthogonal cells
// next to the diagonal step must be walkable.
func canTraverseDiagonal(g *Grid, from, d Cell) bool {
	return g.Walkable(Cell{X: from.X + d.X, Y: from.Y}) && g.Walkable(Cell{X: from.X, Y: from.Y + d.Y})
}

func reconstructPath(g *Grid, cameFrom []int, startIdx, goalIdx int) []Cell {
	path := make([]Cell, 0, 32)
	for cur := goalIdx; cur != -1; cur = cameFrom[cur] {
		path = append(path, g.cell(cur))
		if cur == startIdx {
			break
		}
	}
	if len(path) == 0 || g.index(path[len(path)-1]) != startIdx {
		return nil
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// heuristic is Manhattan for axial moves and octile once diagonals cost
// sqrt(2), keeping it admissible in both modes.
func heuristic(a, b Cell, diagonal bool) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	if !diagonal {
		return dx + dy
	}
	return dx + dy + (math.Sqrt2-2)*math.Min(dx, dy)
}

// PathCost sums step costs along a cell path.
func PathCost(path []Cell) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		if path[i].X != path[i-1].X && path[i].Y != path[i-1].Y {
			total += math.Sqrt2
		} else {
			total++
		}
	}
	return total
}

type openItem struct {
	pos   Cell
	f     float64
	g     float64
	index int
}

type openSet []*openItem

func (o openSet) Len() int { return len(o) }

// Less orders by f, then g, then y, then x so equal-cost searches are
// reproducible.
func (o openSet) Less(i, j int) bool {
	a, b := o[i], o[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.g != b.g {
		return a.g < b.g
	}
	if a.pos.Y != b.pos.Y {
		return a.pos.Y < b.pos.Y
	}
	return a.pos.X < b.pos.X
}

func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}

func (o *openSet) Push(x any) {
	item := x.(*openItem)
	item.index = len(*o)
	*o = append(*o, item)
}

func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return item
}
