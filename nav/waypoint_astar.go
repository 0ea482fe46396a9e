package nav

import (
	"container/heap"
	"math"
)

// FindPath runs A* over the waypoint graph with Euclidean edge costs and
// heuristic. It returns node indices from -> to, or nil.
func (g *Graph) FindPath(from, to int) []int {
	n := g.Len()
	if from < 0 || to < 0 || from >= n || to >= n {
		return nil
	}
	if from == to {
		return []int{from}
	}

	goal := g.Nodes[to].Pos
	cameFrom := make([]int, n)
	gScore := make([]float64, n)
	closed := make([]bool, n)
	for i := range cameFrom {
		cameFrom[i] = -1
		gScore[i] = math.Inf(1)
	}
	gScore[from] = 0

	open := &nodeQueue{}
	heap.Push(open, nodeItem{node: from, f: g.Nodes[from].Pos.Distance(goal)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(nodeItem).node
		if closed[cur] {
			continue
		}
		closed[cur] = true
		if cur == to {
			break
		}
		for _, next := range g.Nodes[cur].Neighbors {
			if closed[next] {
				continue
			}
			tentative := gScore[cur] + g.Nodes[cur].Pos.Distance(g.Nodes[next].Pos)
			if tentative < gScore[next] {
				gScore[next] = tentative
				cameFrom[next] = cur
				heap.Push(open, nodeItem{node: next, f: tentative + g.Nodes[next].Pos.Distance(goal), g: tentative})
			}
		}
	}

	if !closed[to] {
		return nil
	}
	path := []int{}
	for cur := to; cur != -1; cur = cameFrom[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type nodeItem struct {
	node int
	f    float64
	g    float64
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].g != q[j].g {
		return q[i].g < q[j].g
	}
	return q[i].node < q[j].node
}
func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)   { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
