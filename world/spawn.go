package world

import (
	"errors"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilenav/log"
	"github.com/milk9111/tilenav/nav"
)

// ErrInvalidSpawn is returned alongside a recovered position when the
// requested spawn was not on walkable ground.
var ErrInvalidSpawn = errors.New("world: spawn position is not walkable")

// DefaultSpawnSearchHops bounds how far from the requested cell the
// recovery search looks before giving up on the neighbourhood.
const DefaultSpawnSearchHops = 16

// ResolveSpawn returns pos when it is walkable. Otherwise it returns the
// centre of the nearest walkable cell within maxHops, or the grid's centre
// when there is none, together with ErrInvalidSpawn.
func ResolveSpawn(g *nav.Grid, pos cp.Vector, maxHops int) (cp.Vector, error) {
	if g == nil || g.Len() == 0 {
		return pos, nil
	}
	cell, ok := g.CellAt(pos)
	if ok && g.Walkable(cell) {
		return pos, nil
	}

	from := g.ClampCell(pos)
	recovered := g.Bounds().Center()
	if near, found := nav.NearestWalkable(g, from, maxHops); found {
		recovered = g.Center(near)
	}
	log.WithFields(log.Fields{
		"requested": pos,
		"recovered": recovered,
	}).Warn("spawn not walkable, recovered")
	return recovered, ErrInvalidSpawn
}
