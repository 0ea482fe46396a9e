package nav

import "github.com/jakecoffman/cp"

// Path is an ordered list of world-space points.
type Path []cp.Vector

// Length is the polyline length from `from` through every point.
func (p Path) Length(from cp.Vector) float64 {
	total := 0.0
	prev := from
	for _, pt := range p {
		total += prev.Distance(pt)
		prev = pt
	}
	return total
}

func (p Path) Clone() Path {
	return append(Path(nil), p...)
}

// CleanPath merges consecutive points closer than mergeDist and drops the
// first point when it lies within dropDist of the agent.
func CleanPath(points []cp.Vector, agent cp.Vector, mergeDist, dropDist float64) Path {
	out := make(Path, 0, len(points))
	for _, pt := range points {
		if n := len(out); n > 0 && out[n-1].Distance(pt) < mergeDist {
			continue
		}
		out = append(out, pt)
	}
	if len(out) > 0 && out[0].Distance(agent) <= dropDist {
		out = out[1:]
	}
	return out
}
