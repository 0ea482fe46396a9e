package world

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/tilenav/chunk"
	"github.com/milk9111/tilenav/motion"
)

const (
	testTiles       = 8
	testChunkPixels = 256.0
)

var testParse = chunk.ParseOptions{TileSize: 32, ChunkTiles: testTiles}

// mapSource serves per-coordinate chunk JSON, an open chunk for anything
// not listed, and an error for coordinates marked failing.
type mapSource struct {
	open    []byte
	mu      sync.Mutex
	maps    map[chunk.Coord][]byte
	fail    map[chunk.Coord]bool
	gate    chan struct{}
	fetches atomic.Int32
}

func newMapSource(t *testing.T) *mapSource {
	return &mapSource{
		open: chunkJSON(t, openRows()),
		maps: make(map[chunk.Coord][]byte),
		fail: make(map[chunk.Coord]bool),
	}
}

func (s *mapSource) Fetch(ctx context.Context, coord chunk.Coord) ([]byte, error) {
	s.fetches.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[coord] {
		return nil, errors.New("no route to chunk server")
	}
	if data, ok := s.maps[coord]; ok {
		return data, nil
	}
	return s.open, nil
}

func (s *mapSource) set(coord chunk.Coord, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maps[coord] = data
}

func (s *mapSource) setFailing(coord chunk.Coord, failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[coord] = failing
}

func openRows() []string {
	rows := make([]string, testTiles)
	for i := range rows {
		rows[i] = strings.Repeat(".", testTiles)
	}
	return rows
}

func solidRows() []string {
	rows := make([]string, testTiles)
	for i := range rows {
		rows[i] = strings.Repeat("#", testTiles)
	}
	return rows
}

// chunkJSON encodes rows as a collision layer, '#' blocked.
func chunkJSON(t *testing.T, rows []string, objectLayers ...chunk.TiledLayer) []byte {
	t.Helper()
	data := make([]int, testTiles*testTiles)
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				data[y*testTiles+x] = 1
			}
		}
	}
	tm := chunk.TiledMap{
		Width: testTiles, Height: testTiles, TileWidth: 32, TileHeight: 32,
		Layers: append([]chunk.TiledLayer{{
			Name: chunk.LayerCollision, Type: "tilelayer", Width: testTiles, Height: testTiles, Data: data,
		}}, objectLayers...),
		Tilesets: []chunk.TiledTileset{{FirstGID: 1, Name: "terrain"}},
	}
	raw, err := json.Marshal(tm)
	require.NoError(t, err)
	return raw
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.ChunkPixels = testChunkPixels
	opts.ViewDistance = 1
	opts.Mover = motion.Config{Speed: 100, ArrivalThreshold: 8, TurnLerp: 0.5}
	return opts
}

func newTestNavigator(t *testing.T, src chunk.Source, space *cp.Space) *Navigator {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewNavigator(ctx, chunk.NewStore(src, testParse), space, testOptions())
}

func settle(t *testing.T, n *Navigator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, n.Settle(ctx))
}

func settleCoordinator(t *testing.T, c *Coordinator) []*chunk.Chunk {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	loaded, err := c.Settle(ctx)
	require.NoError(t, err)
	return loaded
}

func drainKinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func waypointLayer(objs ...chunk.TiledObject) chunk.TiledLayer {
	return chunk.TiledLayer{Name: chunk.LayerWaypoints, Type: "objectgroup", Objects: objs}
}

func waypoint(name string, x, y float64, links string) chunk.TiledObject {
	obj := chunk.TiledObject{Name: name, X: x, Y: y, Point: true}
	if links != "" {
		raw, _ := json.Marshal(links)
		obj.Properties = []chunk.TiledProp{{Name: "links", Type: "string", Value: raw}}
	}
	return obj
}
