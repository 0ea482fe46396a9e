package main

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"golang.org/x/image/colornames"

	"github.com/milk9111/tilenav/chunk"
	"github.com/milk9111/tilenav/world"
)

const (
	debugCircleSegments = 24
	debugDotSize        = 4
	waypointRadius      = 5
)

var (
	backgroundColor = color.NRGBA{R: 0x14, G: 0x16, B: 0x1c, A: 0xff}
	groundColor     = color.NRGBA{R: 0x2a, G: 0x30, B: 0x3a, A: 0xff}
	wallColor       = color.NRGBA{R: 0x5c, G: 0x63, B: 0x70, A: 0xff}
)

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	snap := g.nav.Snapshot()
	if snap == nil {
		ebitenutil.DebugPrint(screen, "loading...")
		return
	}

	for _, coord := range snap.Loaded {
		if c, ok := g.nav.Store().Get(coord); ok {
			g.drawChunk(screen, c, coord == snap.Active)
		}
	}
	g.drawGrid(screen, snap.Grid)
	g.drawPath(screen, snap)
	g.drawAgent(screen, snap)

	if g.debug {
		cp.DrawSpace(g.space, &physicsDebugDrawer{screen: screen, origin: g.camOrigin()})
	}
	g.drawHUD(screen, snap)
}

func (g *Game) drawChunk(screen *ebiten.Image, c *chunk.Chunk, active bool) {
	ts := float32(c.TileSize)
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			var clr color.Color
			switch {
			case c.Collision.Blocked(x, y):
				clr = wallColor
			case c.Ground != nil && c.Ground.InBounds(x, y) && c.Ground.Index[y*c.Ground.Width+x] >= 0:
				clr = groundColor
			default:
				continue
			}
			sx, sy := g.worldToScreen(c.Origin.Add(cp.Vector{X: float64(x) * c.TileSize, Y: float64(y) * c.TileSize}))
			if sx > baseWidth || sy > baseHeight || sx+ts < 0 || sy+ts < 0 {
				continue
			}
			vector.FillRect(screen, sx, sy, ts, ts, clr, false)
		}
	}

	for _, ob := range c.Obstacles {
		g.strokePolygon(screen, ob.Verts, colornames.Sandybrown)
	}

	byID := make(map[string]cp.Vector, len(c.Waypoints))
	for _, wp := range c.Waypoints {
		byID[wp.ID] = wp.Pos
	}
	for _, wp := range c.Waypoints {
		ax, ay := g.worldToScreen(wp.Pos)
		for _, link := range wp.Links {
			if to, ok := byID[link]; ok {
				bx, by := g.worldToScreen(to)
				vector.StrokeLine(screen, ax, ay, bx, by, 1, colornames.Slateblue, true)
			}
		}
		vector.FillCircle(screen, ax, ay, waypointRadius, colornames.Mediumpurple, true)
	}

	for _, npc := range c.NPCs {
		sx, sy := g.worldToScreen(npc.Pos)
		vector.FillRect(screen, sx-6, sy-6, 12, 12, colornames.Orange, false)
		ebitenutil.DebugPrintAt(screen, npc.Name, int(sx)+8, int(sy)-8)
	}

	b := c.Bounds()
	sx, sy := g.worldToScreen(cp.Vector{X: b.L, Y: b.B})
	border := colornames.Dimgray
	width := float32(1)
	if active {
		border = colornames.Lightskyblue
		width = 2
	}
	vector.StrokeRect(screen, sx, sy, float32(b.R-b.L), float32(b.T-b.B), width, border, false)
}

// drawGrid shades cells of the active navigation grid that are blocked,
// which includes obstacle footprints the tile layer does not show.
func (g *Game) drawGrid(screen *ebiten.Image, grid *world.GridSnapshot) {
	if grid == nil {
		return
	}
	blocked := g.navSpec.BlockedColor.Or(color.NRGBA{R: 0xb0, G: 0x30, B: 0x40, A: 0x80})
	ts := float32(grid.TileSize)
	for y, row := range grid.Rows {
		for x := 0; x < len(row); x++ {
			if row[x] != '#' {
				continue
			}
			sx, sy := g.worldToScreen(grid.Origin.Add(cp.Vector{X: float64(x) * grid.TileSize, Y: float64(y) * grid.TileSize}))
			vector.StrokeRect(screen, sx+2, sy+2, ts-4, ts-4, 1, blocked, false)
		}
	}
}

func (g *Game) drawPath(screen *ebiten.Image, snap *world.Snapshot) {
	if len(snap.Path) == 0 {
		return
	}
	clr := g.navSpec.PathColor.Or(colornames.Cyan)
	prev := snap.Agent
	for i := snap.Cursor; i < len(snap.Path); i++ {
		ax, ay := g.worldToScreen(prev)
		bx, by := g.worldToScreen(snap.Path[i])
		vector.StrokeLine(screen, ax, ay, bx, by, 2, clr, true)
		vector.FillCircle(screen, bx, by, 3, clr, true)
		prev = snap.Path[i]
	}
}

func (g *Game) drawAgent(screen *ebiten.Image, snap *world.Snapshot) {
	r := float32(g.agent.Collider.Radius)
	sx, sy := g.worldToScreen(g.body.Position())
	vector.FillCircle(screen, sx, sy, r, g.agent.Color.Or(colornames.Gold), true)
	fx := sx + float32(math.Cos(snap.Facing))*r*1.6
	fy := sy + float32(math.Sin(snap.Facing))*r*1.6
	vector.StrokeLine(screen, sx, sy, fx, fy, 2, colornames.Black, true)
}

func (g *Game) drawHUD(screen *ebiten.Image, snap *world.Snapshot) {
	strategy := snap.Strategy
	if snap.Fallback {
		strategy += " (fallback)"
	}
	text := fmt.Sprintf("FPS: %.1f\nPos: %.0f,%.0f  Chunk: %s\nMover: %s  Route: %s\nLoaded: %d  Pending: %d\n[click] go  [WASD] steer  [G] colliders  [C] copy state",
		ebiten.ActualFPS(),
		snap.Agent.X, snap.Agent.Y, snap.Active.Key(),
		snap.State, strategy,
		len(snap.Loaded), len(snap.Pending),
	)
	if g.statusLeft > 0 {
		text += "\n" + g.status
	}
	ebitenutil.DebugPrintAt(screen, text, 10, 10)
}

func (g *Game) strokePolygon(screen *ebiten.Image, verts []cp.Vector, clr color.Color) {
	for i := range verts {
		ax, ay := g.worldToScreen(verts[i])
		bx, by := g.worldToScreen(verts[(i+1)%len(verts)])
		vector.StrokeLine(screen, ax, ay, bx, by, 1.5, clr, true)
	}
}

// physicsDebugDrawer outlines every shape in the space, including the
// colliders each loaded chunk mounted.
type physicsDebugDrawer struct {
	screen *ebiten.Image
	origin cp.Vector
}

func (d *physicsDebugDrawer) DrawCircle(pos cp.Vector, angle, radius float64, outline, fill cp.FColor, data interface{}) {
	if radius <= 0 {
		return
	}
	d.drawCircle(pos, radius, outline)
	end := cp.Vector{X: pos.X + math.Cos(angle)*radius, Y: pos.Y + math.Sin(angle)*radius}
	d.drawLine(pos, end, outline)
}

func (d *physicsDebugDrawer) DrawSegment(a, b cp.Vector, fill cp.FColor, data interface{}) {
	d.drawLine(a, b, fill)
}

func (d *physicsDebugDrawer) DrawFatSegment(a, b cp.Vector, radius float64, outline, fill cp.FColor, data interface{}) {
	d.drawLine(a, b, outline)
	if radius > 0 {
		d.drawCircle(a, radius, outline)
		d.drawCircle(b, radius, outline)
	}
}

func (d *physicsDebugDrawer) DrawPolygon(count int, verts []cp.Vector, radius float64, outline, fill cp.FColor, data interface{}) {
	if count <= 0 {
		return
	}
	d.drawPolygon(verts[:count], outline)
}

func (d *physicsDebugDrawer) DrawDot(size float64, pos cp.Vector, fill cp.FColor, data interface{}) {
	if size <= 0 {
		size = debugDotSize
	}
	half := size / 2
	d.drawLine(cp.Vector{X: pos.X - half, Y: pos.Y}, cp.Vector{X: pos.X + half, Y: pos.Y}, fill)
	d.drawLine(cp.Vector{X: pos.X, Y: pos.Y - half}, cp.Vector{X: pos.X, Y: pos.Y + half}, fill)
}

func (d *physicsDebugDrawer) Flags() uint {
	return cp.DRAW_SHAPES
}

func (d *physicsDebugDrawer) OutlineColor() cp.FColor {
	return cp.FColor{R: 0.2, G: 1, B: 0.2, A: 0.9}
}

func (d *physicsDebugDrawer) ShapeColor(shape *cp.Shape, data interface{}) cp.FColor {
	if shape.Body().GetType() == cp.BODY_STATIC {
		return cp.FColor{R: 0.1, G: 0.6, B: 0.1, A: 0.5}
	}
	return cp.FColor{R: 1, G: 0.85, B: 0.2, A: 0.8}
}

func (d *physicsDebugDrawer) ConstraintColor() cp.FColor {
	return cp.FColor{R: 1, G: 0.5, B: 0.1, A: 0.9}
}

func (d *physicsDebugDrawer) CollisionPointColor() cp.FColor {
	return cp.FColor{R: 1, G: 0.2, B: 0.2, A: 0.9}
}

func (d *physicsDebugDrawer) Data() interface{} {
	return nil
}

func (d *physicsDebugDrawer) drawLine(a, b cp.Vector, c cp.FColor) {
	a, b = a.Sub(d.origin), b.Sub(d.origin)
	vector.StrokeLine(d.screen, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), 1, toNRGBA(c), true)
}

func (d *physicsDebugDrawer) drawPolygon(verts []cp.Vector, c cp.FColor) {
	for i := range verts {
		d.drawLine(verts[i], verts[(i+1)%len(verts)], c)
	}
}

func (d *physicsDebugDrawer) drawCircle(center cp.Vector, radius float64, c cp.FColor) {
	points := make([]cp.Vector, 0, debugCircleSegments)
	for i := 0; i < debugCircleSegments; i++ {
		t := (2 * math.Pi) * (float64(i) / float64(debugCircleSegments))
		points = append(points, cp.Vector{X: center.X + math.Cos(t)*radius, Y: center.Y + math.Sin(t)*radius})
	}
	d.drawPolygon(points, c)
}

func toNRGBA(c cp.FColor) color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(c.R) * 255),
		G: uint8(clamp01(c.G) * 255),
		B: uint8(clamp01(c.B) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
