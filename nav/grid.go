package nav

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/tilenav/chunk"
)

// Cell is a tile position inside a Grid.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid is a walkability matrix anchored at Origin in world space. Cells are
// stored flat at y*Width+x.
type Grid struct {
	Width    int
	Height   int
	TileSize float64
	Origin   cp.Vector
	walkable []bool
}

// NewGrid returns a grid with every cell walkable.
func NewGrid(width, height int, tileSize float64, origin cp.Vector) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	walkable := make([]bool, width*height)
	for i := range walkable {
		walkable[i] = true
	}
	return &Grid{Width: width, Height: height, TileSize: tileSize, Origin: origin, walkable: walkable}
}

// Build derives the walkability grid of a loaded chunk.
func Build(c *chunk.Chunk) *Grid {
	g := NewGrid(c.Width, c.Height, c.TileSize, c.Origin)
	if c.Collision != nil {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				if c.Collision.Blocked(x, y) {
					g.walkable[y*g.Width+x] = false
				}
			}
		}
	}
	for _, ob := range c.Obstacles {
		g.BlockBB(ob.BB)
	}
	return g
}

// BlockBB marks every cell covered by a world-space box as non-walkable.
// The max edge is exclusive: a box ending exactly on a tile border does not
// spill into the next tile.
func (g *Grid) BlockBB(bb cp.BB) {
	if g.Len() == 0 || g.TileSize <= 0 {
		return
	}
	minX := int(math.Floor((bb.L - g.Origin.X) / g.TileSize))
	minY := int(math.Floor((bb.B - g.Origin.Y) / g.TileSize))
	maxX := int(math.Floor((bb.R - 1 - g.Origin.X) / g.TileSize))
	maxY := int(math.Floor((bb.T - 1 - g.Origin.Y) / g.TileSize))

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= g.Width {
		maxX = g.Width - 1
	}
	if maxY >= g.Height {
		maxY = g.Height - 1
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			g.walkable[y*g.Width+x] = false
		}
	}
}

func (g *Grid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.walkable)
}

func (g *Grid) InBounds(c Cell) bool {
	return g != nil && c.X >= 0 && c.Y >= 0 && c.X < g.Width && c.Y < g.Height
}

// Walkable is false for cells outside the grid.
func (g *Grid) Walkable(c Cell) bool {
	if !g.InBounds(c) {
		return false
	}
	return g.walkable[c.Y*g.Width+c.X]
}

func (g *Grid) SetWalkable(c Cell, v bool) {
	if !g.InBounds(c) {
		return
	}
	g.walkable[c.Y*g.Width+c.X] = v
}

func (g *Grid) index(c Cell) int {
	return c.Y*g.Width + c.X
}

func (g *Grid) cell(i int) Cell {
	return Cell{X: i % g.Width, Y: i / g.Width}
}

// CellAt returns the cell containing a world position.
func (g *Grid) CellAt(pos cp.Vector) (Cell, bool) {
	c := Cell{
		X: int(math.Floor((pos.X - g.Origin.X) / g.TileSize)),
		Y: int(math.Floor((pos.Y - g.Origin.Y) / g.TileSize)),
	}
	return c, g.InBounds(c)
}

// ClampCell is CellAt pinned to the nearest edge cell.
func (g *Grid) ClampCell(pos cp.Vector) Cell {
	c, _ := g.CellAt(pos)
	if c.X < 0 {
		c.X = 0
	}
	if c.Y < 0 {
		c.Y = 0
	}
	if c.X >= g.Width {
		c.X = g.Width - 1
	}
	if c.Y >= g.Height {
		c.Y = g.Height - 1
	}
	return c
}

// Center is the world position of a cell's centre.
func (g *Grid) Center(c Cell) cp.Vector {
	half := g.TileSize * 0.5
	return cp.Vector{
		X: g.Origin.X + float64(c.X)*g.TileSize + half,
		Y: g.Origin.Y + float64(c.Y)*g.TileSize + half,
	}
}

func (g *Grid) Bounds() cp.BB {
	return cp.BB{
		L: g.Origin.X,
		B: g.Origin.Y,
		R: g.Origin.X + float64(g.Width)*g.TileSize,
		T: g.Origin.Y + float64(g.Height)*g.TileSize,
	}
}

// Rows copies the grid as walkable[y][x].
func (g *Grid) Rows() [][]bool {
	rows := make([][]bool, g.Height)
	for y := range rows {
		rows[y] = append([]bool(nil), g.walkable[y*g.Width:(y+1)*g.Width]...)
	}
	return rows
}

func (g *Grid) WalkableCount() int {
	n := 0
	for _, w := range g.walkable {
		if w {
			n++
		}
	}
	return n
}

func (g *Grid) Clone() *Grid {
	out := *g
	out.walkable = append([]bool(nil), g.walkable...)
	return &out
}

func (g *Grid) centers(cells []Cell) []cp.Vector {
	out := make([]cp.Vector, 0, len(cells))
	for _, c := range cells {
		out = append(out, g.Center(c))
	}
	return out
}
