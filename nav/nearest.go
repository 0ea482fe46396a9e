package nav

// SearchNearestReachable expands breadth-first from goal over every cell,
// walkable or not, and returns the A* path to the first walkable cell that
// start can reach. It visits each cell at most once, so it terminates on any
// grid; nil means nothing reachable was found.
func SearchNearestReachable(g *Grid, start, goal Cell, opts SearchOptions) []Cell {
	if !g.InBounds(start) || !g.InBounds(goal) {
		return nil
	}
	// A* to a cell succeeds exactly when the flood fill from start reaches
	// it, so the flood fill stands in for one A* attempt per visited cell.
	reachable := reachableMask(g, start, opts.Diagonal)

	visited := make([]bool, g.Len())
	queue := make([]Cell, 0, 64)
	queue = append(queue, goal)
	visited[g.index(goal)] = true

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		idx := g.index(cur)
		if g.Walkable(cur) && reachable[idx] {
			if path := AStar(g, start, cur, opts); path != nil {
				return path
			}
		}
		for _, d := range axialOffsets {
			next := Cell{X: cur.X + d.X, Y: cur.Y + d.Y}
			if !g.InBounds(next) {
				continue
			}
			ni := g.index(next)
			if visited[ni] {
				continue
			}
			visited[ni] = true
			queue = append(queue, next)
		}
	}
	return nil
}

// Reachable lists the cells reachable from start in breadth-first order.
func Reachable(g *Grid, start Cell, diagonal bool) []Cell {
	if !g.InBounds(start) {
		return nil
	}
	mask := reachableMask(g, start, diagonal)
	out := make([]Cell, 0, 64)
	for i, ok := range mask {
		if ok {
			out = append(out, g.cell(i))
		}
	}
	return out
}

// reachableMask flood-fills from start with the same move rules as AStar.
// Like AStar it does not require start itself to be walkable.
func reachableMask(g *Grid, start Cell, diagonal bool) []bool {
	mask := make([]bool, g.Len())
	if !g.InBounds(start) {
		return mask
	}
	mask[g.index(start)] = true
	queue := []Cell{start}
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		visit := func(next Cell) {
			if !g.Walkable(next) {
				return
			}
			ni := g.index(next)
			if mask[ni] {
				return
			}
			mask[ni] = true
			queue = append(queue, next)
		}
		for _, d := range axialOffsets {
			visit(Cell{X: cur.X + d.X, Y: cur.Y + d.Y})
		}
		if !diagonal {
			continue
		}
		for _, d := range diagonalOffsets {
			if canTraverseDiagonal(g, cur, d) {
				visit(Cell{X: cur.X + d.X, Y: cur.Y + d.Y})
			}
		}
	}
	return mask
}

// NearestWalkable finds the walkable cell closest to from by hop count,
// searching at most maxHops rings out (zero for the whole grid).
func NearestWalkable(g *Grid, from Cell, maxHops int) (Cell, bool) {
	if !g.InBounds(from) {
		return Cell{}, false
	}
	type item struct {
		cell Cell
		hops int
	}
	visited := make([]bool, g.Len())
	visited[g.index(from)] = true
	queue := []item{{cell: from}}
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if g.Walkable(cur.cell) {
			return cur.cell, true
		}
		if maxHops > 0 && cur.hops >= maxHops {
			continue
		}
		for _, d := range axialOffsets {
			next := Cell{X: cur.cell.X + d.X, Y: cur.cell.Y + d.Y}
			if !g.InBounds(next) || visited[g.index(next)] {
				continue
			}
			visited[g.index(next)] = true
			queue = append(queue, item{cell: next, hops: cur.hops + 1})
		}
	}
	return Cell{}, false
}
