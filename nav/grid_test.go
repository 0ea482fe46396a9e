package nav

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/tilenav/chunk"
)

func TestBlockBBUsesExclusiveMaxEdge(t *testing.T) {
	cases := []struct {
		name    string
		bb      cp.BB
		blocked []Cell
	}{
		{"exact_tile", cp.BB{L: 32, B: 32, R: 64, T: 64}, []Cell{{1, 1}}},
		{"two_by_one", cp.BB{L: 0, B: 0, R: 64, T: 32}, []Cell{{0, 0}, {1, 0}}},
		{"spills_past_border", cp.BB{L: 40, B: 40, R: 70, T: 50}, []Cell{{1, 1}, {2, 1}}},
		{"clamped", cp.BB{L: -100, B: 90, R: 20, T: 500}, []Cell{{0, 2}, {0, 3}}},
		{"outside", cp.BB{L: 200, B: 0, R: 300, T: 32}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := NewGrid(4, 4, 32, cp.Vector{})
			g.BlockBB(c.bb)
			assert.Equal(t, 16-len(c.blocked), g.WalkableCount())
			for _, cell := range c.blocked {
				assert.False(t, g.Walkable(cell), "cell %v", cell)
			}
		})
	}
}

func TestBuildFromChunk(t *testing.T) {
	colliders := chunk.TiledLayer{
		Name: chunk.LayerColliders,
		Type: "objectgroup",
		Objects: []chunk.TiledObject{
			{ID: 1, X: 64, Y: 96, Width: 64, Height: 32},
		},
	}
	c := chunkFromRows(t, chunk.Coord{X: 1, Y: 2}, []string{
		"#.....",
		"......",
		"......",
		"......",
		".....#",
	}, colliders)

	g := Build(c)
	require.Equal(t, 6, g.Width)
	require.Equal(t, 5, g.Height)
	assert.Equal(t, cp.Vector{X: 192, Y: 320}, g.Origin)

	rows := g.Rows()
	assert.False(t, rows[0][0])
	assert.False(t, rows[4][5])
	assert.False(t, rows[3][2])
	assert.False(t, rows[3][3])
	assert.True(t, rows[3][4])
	assert.Equal(t, 30-4, g.WalkableCount())
}

func TestCellConversions(t *testing.T) {
	g := NewGrid(4, 4, 32, cp.Vector{X: 1024, Y: -1024})

	cell, ok := g.CellAt(cp.Vector{X: 1024 + 40, Y: -1024 + 100})
	require.True(t, ok)
	assert.Equal(t, Cell{1, 3}, cell)

	_, ok = g.CellAt(cp.Vector{X: 0, Y: 0})
	assert.False(t, ok)
	assert.Equal(t, Cell{0, 3}, g.ClampCell(cp.Vector{X: 0, Y: 0}))

	assert.Equal(t, cp.Vector{X: 1024 + 48, Y: -1024 + 112}, g.Center(Cell{1, 3}))
	assert.False(t, g.Walkable(Cell{-1, 0}))
}
