package nav

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/tilenav/chunk"
)

const testTile = 32.0

// gridFromRows builds a grid where '#' is blocked and anything else open.
func gridFromRows(rows ...string) *Grid {
	g := NewGrid(len(rows[0]), len(rows), testTile, cp.Vector{})
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				g.SetWalkable(Cell{x, y}, false)
			}
		}
	}
	return g
}

func randomGrid(seed int64, w, h int, density float64) *Grid {
	r := rand.New(rand.NewSource(seed))
	g := NewGrid(w, h, testTile, cp.Vector{})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if r.Float64() < density {
				g.SetWalkable(Cell{x, y}, false)
			}
		}
	}
	return g
}

// bfsDistance is the axial hop count from start to goal, or -1.
func bfsDistance(g *Grid, start, goal Cell) int {
	dist := make([]int, g.Len())
	for i := range dist {
		dist[i] = -1
	}
	dist[g.index(start)] = 0
	queue := []Cell{start}
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if cur == goal {
			return dist[g.index(cur)]
		}
		for _, d := range axialOffsets {
			next := Cell{cur.X + d.X, cur.Y + d.Y}
			if !g.Walkable(next) || dist[g.index(next)] >= 0 {
				continue
			}
			dist[g.index(next)] = dist[g.index(cur)] + 1
			queue = append(queue, next)
		}
	}
	return -1
}

// chunkFromRows parses a chunk whose collision layer mirrors the rows.
func chunkFromRows(t *testing.T, origin chunk.Coord, rows []string, extra ...chunk.TiledLayer) *chunk.Chunk {
	t.Helper()
	w, h := len(rows[0]), len(rows)
	data := make([]int, w*h)
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				data[y*w+x] = 1
			}
		}
	}
	tm := chunk.TiledMap{
		Width: w, Height: h, TileWidth: 32, TileHeight: 32,
		Layers: append([]chunk.TiledLayer{{
			Name: chunk.LayerCollision, Type: "tilelayer", Width: w, Height: h, Data: data,
		}}, extra...),
		Tilesets: []chunk.TiledTileset{{FirstGID: 1, Name: "terrain"}},
	}
	raw, err := json.Marshal(tm)
	require.NoError(t, err)
	c, err := chunk.Parse(origin, raw, chunk.ParseOptions{TileSize: 32})
	require.NoError(t, err)
	return c
}

func waypointLayer(objs ...chunk.TiledObject) chunk.TiledLayer {
	return chunk.TiledLayer{Name: chunk.LayerWaypoints, Type: "objectgroup", Objects: objs}
}

func wp(name string, x, y float64, links string) chunk.TiledObject {
	obj := chunk.TiledObject{Name: name, X: x, Y: y, Point: true}
	if links != "" {
		raw, _ := json.Marshal(links)
		obj.Properties = []chunk.TiledProp{{Name: "links", Type: "string", Value: raw}}
	}
	return obj
}

func dump(v ...any) string {
	return spew.Sdump(v...)
}
