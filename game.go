package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/jakecoffman/cp"
	"golang.design/x/clipboard"

	"github.com/milk9111/tilenav/chunk"
	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/config"
	"github.com/milk9111/tilenav/log"
	"github.com/milk9111/tilenav/nav"
	"github.com/milk9111/tilenav/prefabs"
	"github.com/milk9111/tilenav/world"
)

const (
	baseWidth  = 1280
	baseHeight = 720

	// failed chunk loads are retried this often
	retryTicks  = common.TPS * 2
	statusTicks = common.TPS * 3
)

type GameOptions struct {
	Config  *config.Config
	Source  chunk.Source
	Spawn   *cp.Vector
	Reloads <-chan chunk.Coord
	Debug   bool
}

type Game struct {
	frames int

	cfg     *config.Config
	nav     *world.Navigator
	space   *cp.Space
	body    *cp.Body
	agent   *prefabs.AgentSpec
	navSpec *prefabs.NavigationSpec
	reloads <-chan chunk.Coord

	lastCoord chunk.Coord
	cam       cp.Vector
	debug     bool

	clipboardOK bool
	status      string
	statusLeft  int
}

func NewGame(ctx context.Context, opts GameOptions) (*Game, error) {
	agent, err := prefabs.LoadAgentSpec()
	if err != nil {
		return nil, err
	}
	navSpec, err := prefabs.LoadNavigationSpec()
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	store := chunk.NewStore(opts.Source, chunk.ParseOptions{
		TileSize:   cfg.World.TileSize,
		ChunkTiles: cfg.World.ChunkTiles,
	})

	space := cp.NewSpace()
	space.Iterations = 10
	space.SetGravity(cp.Vector{})

	navOpts := world.DefaultOptions()
	navOpts.ChunkPixels = cfg.World.ChunkPixels()
	navOpts.ViewDistance = cfg.World.ViewDistance
	navOpts.Planner = navSpec.Planner
	navOpts.Mover = agent.Motion
	if navSpec.SpawnSearchHops > 0 {
		navOpts.SpawnSearchHops = navSpec.SpawnSearchHops
	}
	n := world.NewNavigator(ctx, store, space, navOpts)

	spawn := cp.Vector{X: agent.Spawn.X, Y: agent.Spawn.Y}
	if opts.Spawn != nil {
		spawn = *opts.Spawn
	}
	resolved, err := n.Spawn(ctx, spawn)
	switch {
	case errors.Is(err, world.ErrInvalidSpawn):
		log.WithFields(log.Fields{"requested": spawn, "resolved": resolved}).Warn("spawn had no walkable ground nearby")
	case err != nil:
		return nil, fmt.Errorf("spawn: %w", err)
	}

	g := &Game{
		cfg:       cfg,
		nav:       n,
		space:     space,
		agent:     agent,
		navSpec:   navSpec,
		reloads:   opts.Reloads,
		lastCoord: chunk.CoordAt(spawn, navOpts.ChunkPixels),
		debug:     opts.Debug,
	}
	g.body = g.attachAgent(resolved)
	g.cam = resolved

	if err := clipboard.Init(); err != nil {
		log.WithField("err", err).Warn("clipboard unavailable")
	} else {
		g.clipboardOK = true
	}
	return g, nil
}

func (g *Game) attachAgent(pos cp.Vector) *cp.Body {
	c := g.agent.Collider
	mass := c.Mass
	if mass <= 0 {
		mass = 1
	}
	// the mover owns facing, so the body never spins from contacts
	body := cp.NewBody(mass, cp.INFINITY)
	body.SetPosition(pos)
	shape := cp.NewCircle(body, c.Radius, cp.Vector{})
	shape.SetFriction(c.Friction)
	g.space.AddBody(body)
	g.space.AddShape(shape)
	return body
}

func (g *Game) Navigator() *world.Navigator {
	return g.nav
}

func (g *Game) Update() error {
	g.frames++
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	if n := g.nav.PollReloads(g.reloads); n > 0 {
		g.flash(fmt.Sprintf("reloaded %d chunk(s)", n))
	}
	if g.frames%retryTicks == 0 {
		g.nav.Retry()
	}

	pos := g.body.Position()
	if coord := chunk.CoordAt(pos, g.cfg.World.ChunkPixels()); coord != g.lastCoord {
		g.lastCoord = coord
		g.nav.OnAgentChunkMoved(pos)
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		cx, cy := ebiten.CursorPosition()
		g.plan(pos, g.screenToWorld(float64(cx), float64(cy)))
	}

	cmd := g.nav.Tick(pos, readManual())
	g.body.SetVelocityVector(cmd.Velocity)
	g.body.SetAngle(cmd.Facing)
	g.space.Step(1.0 / common.TPS)

	after := g.body.Position()
	if clamped := g.nav.ClampToBounds(after); clamped != after {
		g.body.SetPosition(clamped)
		g.body.SetVelocityVector(cp.Vector{})
	}
	g.cam = g.cam.Lerp(g.body.Position(), 0.15)

	for _, e := range g.nav.Events() {
		entry := log.WithFields(log.Fields{"event": e.Kind, "chunk": e.Coord.Key()})
		if e.Detail != "" {
			entry = entry.WithField("detail", e.Detail)
		}
		if e.Err != nil {
			entry.WithField("err", e.Err).Warn("navigator event")
			continue
		}
		entry.Debug("navigator event")
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		g.debug = !g.debug
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.copySnapshot()
	}
	if g.statusLeft > 0 {
		g.statusLeft--
	}
	return nil
}

func (g *Game) plan(from, target cp.Vector) {
	plan, err := g.nav.PlanPath(from, target)
	switch {
	case errors.Is(err, nav.ErrNoGrid):
		g.flash("chunk still loading")
	case errors.Is(err, nav.ErrAlreadyThere):
		g.flash("already there")
	case err != nil:
		g.flash("no path")
		log.WithFields(log.Fields{"target": target, "err": err}).Info("no path")
	default:
		if plan.Fallback {
			g.flash("target unreachable, moving closer")
		}
	}
}

func (g *Game) copySnapshot() {
	if !g.clipboardOK {
		g.flash("clipboard unavailable")
		return
	}
	snap := g.nav.Snapshot()
	if snap == nil {
		return
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.WithField("err", err).Warn("encode snapshot")
		return
	}
	clipboard.Write(clipboard.FmtText, data)
	g.flash("snapshot copied")
}

func (g *Game) flash(msg string) {
	g.status = msg
	g.statusLeft = statusTicks
}

// readManual maps WASD and the arrow keys to a direction. Zero means no
// manual input this tick.
func readManual() cp.Vector {
	var v cp.Vector
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		v.X--
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		v.X++
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		v.Y--
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		v.Y++
	}
	return v
}

func (g *Game) camOrigin() cp.Vector {
	return g.cam.Sub(cp.Vector{X: baseWidth / 2, Y: baseHeight / 2})
}

func (g *Game) screenToWorld(x, y float64) cp.Vector {
	return g.camOrigin().Add(cp.Vector{X: x, Y: y})
}

func (g *Game) worldToScreen(v cp.Vector) (float32, float32) {
	s := v.Sub(g.camOrigin())
	return float32(s.X), float32(s.Y)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
