package debugapi

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilenav/chunk"
	"github.com/milk9111/tilenav/log"
	"github.com/milk9111/tilenav/nav"
	"github.com/milk9111/tilenav/world"
)

// SnapshotSource supplies the latest published navigator state. It is called
// from server goroutines, never from the tick loop.
type SnapshotSource interface {
	Snapshot() *world.Snapshot
}

type Handler struct {
	Source SnapshotSource
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	debug := s.Group("/debug")
	debug.GET("/snapshot", h.snapshot)
	debug.GET("/grid", h.grid)
	debug.GET("/path", h.path)
	debug.GET("/reachable", h.reachable)
	debug.GET("/chunks", h.chunks)
}

type pathResponse struct {
	State    string    `json:"state"`
	Strategy string    `json:"strategy"`
	Fallback bool      `json:"fallback"`
	Agent    cp.Vector `json:"agent"`
	Facing   float64   `json:"facing"`
	Cursor   int       `json:"cursor"`
	Path     nav.Path  `json:"path"`
}

type reachableResponse struct {
	Chunk    chunk.Coord `json:"chunk"`
	Origin   cp.Vector   `json:"origin"`
	TileSize float64     `json:"tile_size"`
	Count    int         `json:"count"`
	Cells    []nav.Cell  `json:"cells"`
}

type chunksResponse struct {
	Active  chunk.Coord   `json:"active"`
	Loaded  []chunk.Coord `json:"loaded"`
	Pending []chunk.Coord `json:"pending"`
	Bounds  cp.BB         `json:"bounds"`
}

func (h Handler) current(ctx *app.RequestContext) (*world.Snapshot, bool) {
	var snap *world.Snapshot
	if h.Source != nil {
		snap = h.Source.Snapshot()
	}
	if snap == nil {
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "not_ready", "navigator has not published state yet")
		return nil, false
	}
	return snap, true
}

func (h Handler) snapshot(_ context.Context, ctx *app.RequestContext) {
	snap, ok := h.current(ctx)
	if !ok {
		return
	}
	ctx.JSON(consts.StatusOK, snap)
}

func (h Handler) grid(_ context.Context, ctx *app.RequestContext) {
	snap, ok := h.current(ctx)
	if !ok {
		return
	}
	if snap.Grid == nil {
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "grid_not_ready", "active chunk is still loading")
		return
	}
	ctx.JSON(consts.StatusOK, snap.Grid)
}

func (h Handler) path(_ context.Context, ctx *app.RequestContext) {
	snap, ok := h.current(ctx)
	if !ok {
		return
	}
	path := snap.Path
	if path == nil {
		path = nav.Path{}
	}
	ctx.JSON(consts.StatusOK, pathResponse{
		State:    snap.State,
		Strategy: snap.Strategy,
		Fallback: snap.Fallback,
		Agent:    snap.Agent,
		Facing:   snap.Facing,
		Cursor:   snap.Cursor,
		Path:     path,
	})
}

func (h Handler) reachable(_ context.Context, ctx *app.RequestContext) {
	snap, ok := h.current(ctx)
	if !ok {
		return
	}
	if snap.Grid == nil {
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "grid_not_ready", "active chunk is still loading")
		return
	}
	cells := snap.Reachable()
	if cells == nil {
		cells = []nav.Cell{}
	}
	ctx.JSON(consts.StatusOK, reachableResponse{
		Chunk:    snap.Grid.Chunk,
		Origin:   snap.Grid.Origin,
		TileSize: snap.Grid.TileSize,
		Count:    len(cells),
		Cells:    cells,
	})
}

func (h Handler) chunks(_ context.Context, ctx *app.RequestContext) {
	snap, ok := h.current(ctx)
	if !ok {
		return
	}
	ctx.JSON(consts.StatusOK, chunksResponse{
		Active:  snap.Active,
		Loaded:  snap.Loaded,
		Pending: snap.Pending,
		Bounds:  snap.Bounds,
	})
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// NewServer builds a hertz server on addr with the debug routes mounted.
func NewServer(addr string, source SnapshotSource) *server.Hertz {
	s := server.New(server.WithHostPorts(addr))
	Handler{Source: source}.RegisterRoutes(s)
	return s
}

// Serve runs the debug server until ctx is done.
func Serve(ctx context.Context, addr string, source SnapshotSource) {
	s := NewServer(addr, source)
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	log.WithField("addr", addr).Info("debug http listening")
	if err := s.Run(); err != nil {
		log.WithFields(log.Fields{"addr": addr, "err": err}).Warn("debug http stopped")
	}
}
