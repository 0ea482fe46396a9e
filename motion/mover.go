package motion

import (
	"math"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/log"
	"github.com/milk9111/tilenav/nav"
)

const (
	DefaultSpeed            = 120.0
	DefaultArrivalThreshold = 8.0
	DefaultTurnLerp         = 0.2
)

// Config tunes path following. Speed is world units per tick-second and
// TurnLerp is the fraction of the remaining arc turned each tick.
type Config struct {
	Speed            float64 `yaml:"speed"`
	ArrivalThreshold float64 `yaml:"arrival_threshold"`
	TurnLerp         float64 `yaml:"turn_lerp"`
}

func DefaultConfig() Config {
	return Config{
		Speed:            DefaultSpeed,
		ArrivalThreshold: DefaultArrivalThreshold,
		TurnLerp:         DefaultTurnLerp,
	}
}

func (c Config) withDefaults() Config {
	if c.Speed <= 0 {
		c.Speed = DefaultSpeed
	}
	if c.ArrivalThreshold <= 0 {
		c.ArrivalThreshold = DefaultArrivalThreshold
	}
	if c.TurnLerp <= 0 || c.TurnLerp > 1 {
		c.TurnLerp = DefaultTurnLerp
	}
	return c
}

type StopReason int

const (
	StopNone StopReason = iota
	StopArrived
	StopManual
	StopOutOfBounds
	StopReplaced
	StopCleared
)

func (r StopReason) String() string {
	switch r {
	case StopArrived:
		return "arrived"
	case StopManual:
		return "manual"
	case StopOutOfBounds:
		return "out_of_bounds"
	case StopReplaced:
		return "replaced"
	case StopCleared:
		return "cleared"
	default:
		return "none"
	}
}

// Command is what the mover asks the physics body to do this tick.
type Command struct {
	Velocity cp.Vector `json:"velocity"`
	Facing   float64   `json:"facing"`
}

// moverState is implemented by each concrete mover state.
type moverState interface {
	Name() string
	Enter(m *Mover)
	Tick(m *Mover, pos cp.Vector) Command
}

var (
	stateIdle      moverState = idleState{}
	stateFollowing moverState = followingState{}
)

// Mover turns a planned path into per-tick velocity and facing commands.
// It is driven from the tick loop only.
type Mover struct {
	cfg    Config
	state  moverState
	path   nav.Path
	cursor int
	facing float64
	last   StopReason
}

func NewMover(cfg Config) *Mover {
	m := &Mover{cfg: cfg.withDefaults()}
	m.setState(stateIdle)
	return m
}

func (m *Mover) setState(s moverState) {
	m.state = s
	m.state.Enter(m)
}

// Follow replaces whatever path is active. An empty path leaves the mover idle.
func (m *Mover) Follow(path nav.Path) {
	if m.Following() {
		m.Stop(StopReplaced)
	}
	if len(path) == 0 {
		return
	}
	m.path = path.Clone()
	m.cursor = 0
	m.last = StopNone
	m.setState(stateFollowing)
}

// Stop drops the active path. It is a no-op when already idle.
func (m *Mover) Stop(reason StopReason) {
	if !m.Following() {
		return
	}
	log.WithFields(log.Fields{
		"reason": reason.String(),
		"cursor": m.cursor,
		"points": len(m.path),
	}).Debug("auto-move stopped")
	m.last = reason
	m.setState(stateIdle)
}

// Tick advances the state machine. Any non-zero manual input preempts
// auto-follow and is passed through at the configured speed.
func (m *Mover) Tick(pos, manual cp.Vector) Command {
	if manual.X != 0 || manual.Y != 0 {
		m.Stop(StopManual)
		dir := manual.Normalize()
		m.turnToward(dir)
		return Command{Velocity: dir.Mult(m.cfg.Speed), Facing: m.facing}
	}
	return m.state.Tick(m, pos)
}

func (m *Mover) turnToward(dir cp.Vector) {
	bearing := math.Atan2(dir.Y, dir.X)
	m.facing = common.LerpAngle(m.facing, bearing, m.cfg.TurnLerp)
}

func (m *Mover) Following() bool {
	return m.state == stateFollowing
}

func (m *Mover) StateName() string {
	return m.state.Name()
}

func (m *Mover) LastStop() StopReason {
	return m.last
}

func (m *Mover) Facing() float64 {
	return m.facing
}

func (m *Mover) SetFacing(angle float64) {
	m.facing = common.WrapAngle(angle)
}

func (m *Mover) Cursor() int {
	return m.cursor
}

// Path returns the active path, or nil when idle.
func (m *Mover) Path() nav.Path {
	return m.path
}

// Remaining is the unvisited tail of the active path.
func (m *Mover) Remaining() nav.Path {
	if m.cursor >= len(m.path) {
		return nil
	}
	return m.path[m.cursor:]
}

type idleState struct{}

func (idleState) Name() string { return "idle" }
func (idleState) Enter(m *Mover) {
	m.path = nil
	m.cursor = 0
}
func (idleState) Tick(m *Mover, _ cp.Vector) Command {
	return Command{Facing: m.facing}
}

type followingState struct{}

func (followingState) Name() string { return "following" }
func (followingState) Enter(m *Mover) {
	log.WithField("points", len(m.path)).Debug("auto-move started")
}
func (followingState) Tick(m *Mover, pos cp.Vector) Command {
	for m.cursor < len(m.path) && pos.Distance(m.path[m.cursor]) <= m.cfg.ArrivalThreshold {
		m.cursor++
	}
	if m.cursor >= len(m.path) {
		m.Stop(StopArrived)
		return Command{Facing: m.facing}
	}
	dir := m.path[m.cursor].Sub(pos).Normalize()
	m.turnToward(dir)
	return Command{Velocity: dir.Mult(m.cfg.Speed), Facing: m.facing}
}
