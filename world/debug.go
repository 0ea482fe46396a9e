package world

import (
	"strings"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilenav/chunk"
	"github.com/milk9111/tilenav/nav"
)

// GridSnapshot is the walkability grid in a JSON friendly shape. Rows use
// '.' for walkable cells and '#' for blocked ones.
type GridSnapshot struct {
	Chunk    chunk.Coord `json:"chunk"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	TileSize float64     `json:"tile_size"`
	Origin   cp.Vector   `json:"origin"`
	Rows     []string    `json:"rows"`
}

func newGridSnapshot(coord chunk.Coord, g *nav.Grid) *GridSnapshot {
	rows := g.Rows()
	out := &GridSnapshot{
		Chunk:    coord,
		Width:    g.Width,
		Height:   g.Height,
		TileSize: g.TileSize,
		Origin:   g.Origin,
		Rows:     make([]string, len(rows)),
	}
	var sb strings.Builder
	for y, row := range rows {
		sb.Reset()
		for _, walkable := range row {
			if walkable {
				sb.WriteByte('.')
			} else {
				sb.WriteByte('#')
			}
		}
		out.Rows[y] = sb.String()
	}
	return out
}

// Snapshot is a read-only copy of navigator state, published once per tick
// for the debug surface. Nothing in it is shared with the tick loop.
type Snapshot struct {
	Tick     uint64        `json:"tick"`
	Agent    cp.Vector     `json:"agent"`
	Active   chunk.Coord   `json:"active"`
	Loaded   []chunk.Coord `json:"loaded"`
	Pending  []chunk.Coord `json:"pending"`
	Bounds   cp.BB         `json:"bounds"`
	State    string        `json:"state"`
	Strategy string        `json:"strategy"`
	Fallback bool          `json:"fallback"`
	Path     nav.Path      `json:"path"`
	Cursor   int           `json:"cursor"`
	Facing   float64       `json:"facing"`
	Grid     *GridSnapshot `json:"grid,omitempty"`

	diagonal bool
	grid     *nav.Grid
}

// Reachable flood-fills the snapshot's grid from the agent's cell.
func (s *Snapshot) Reachable() []nav.Cell {
	if s == nil || s.grid == nil {
		return nil
	}
	start, ok := s.grid.CellAt(s.Agent)
	if !ok {
		return nil
	}
	return nav.Reachable(s.grid, start, s.diagonal)
}

// WalkableAt reports whether the snapshot's grid allows standing at pos.
func (s *Snapshot) WalkableAt(pos cp.Vector) bool {
	if s == nil || s.grid == nil {
		return false
	}
	cell, ok := s.grid.CellAt(pos)
	return ok && s.grid.Walkable(cell)
}
