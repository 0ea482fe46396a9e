package chunk

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"
)

// Tiles in this index range collide unless their tileset entry sets an
// explicit "collides" property.
const (
	collideRangeMin = 1
	collideRangeMax = 1000
)

const propCollides = "collides"

// ParseOptions pins the geometry every chunk of a world must share.
type ParseOptions struct {
	TileSize   float64
	ChunkTiles int
}

// TileLayer is a decoded tile layer. Index is -1 for empty cells.
type TileLayer struct {
	Width    int
	Height   int
	Index    []int
	collides []bool
}

func (l *TileLayer) InBounds(x, y int) bool {
	return l != nil && x >= 0 && y >= 0 && x < l.Width && y < l.Height
}

// Blocked reports whether the tile at (x, y) is present and collides.
func (l *TileLayer) Blocked(x, y int) bool {
	if !l.InBounds(x, y) {
		return false
	}
	i := y*l.Width + x
	return l.Index[i] >= 0 && l.collides[i]
}

// Chunk is one loaded region of the world. It is owned by the Store; other
// packages borrow it for the duration of a query.
type Chunk struct {
	Coord    Coord
	Map      *TiledMap
	Width    int
	Height   int
	TileSize float64
	Origin   cp.Vector

	Ground    *TileLayer
	Collision *TileLayer
	Obstacles []Obstacle
	NPCs      []NPC
	Objects   []Object
	Waypoints []Waypoint

	colliders *colliderSet
	released  bool
}

// Bounds is the chunk's world-space extent.
func (c *Chunk) Bounds() cp.BB {
	return cp.BB{
		L: c.Origin.X,
		B: c.Origin.Y,
		R: c.Origin.X + float64(c.Width)*c.TileSize,
		T: c.Origin.Y + float64(c.Height)*c.TileSize,
	}
}

func (c *Chunk) Released() bool {
	return c.released
}

// Parse decodes a Tiled JSON chunk and validates its typed objects.
func Parse(coord Coord, data []byte, opts ParseOptions) (*Chunk, error) {
	c, err := parse(coord, data, opts)
	var se *SchemaError
	if errors.As(err, &se) {
		se.Coord = coord
	}
	return c, err
}

func parse(coord Coord, data []byte, opts ParseOptions) (*Chunk, error) {
	tm, err := ParseTiledMap(data)
	if err != nil {
		return nil, err
	}
	if opts.ChunkTiles > 0 && (tm.Width != opts.ChunkTiles || tm.Height != opts.ChunkTiles) {
		return nil, fmt.Errorf("chunk is %dx%d tiles, world uses %dx%d", tm.Width, tm.Height, opts.ChunkTiles, opts.ChunkTiles)
	}
	tileSize := opts.TileSize
	if tm.TileWidth > 0 {
		if tileSize > 0 && float64(tm.TileWidth) != tileSize {
			return nil, fmt.Errorf("chunk tile width %d, world uses %v", tm.TileWidth, tileSize)
		}
		tileSize = float64(tm.TileWidth)
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("chunk has no tile size")
	}

	c := &Chunk{
		Coord:    coord,
		Map:      tm,
		Width:    tm.Width,
		Height:   tm.Height,
		TileSize: tileSize,
		Origin: cp.Vector{
			X: float64(coord.X) * tileSize * float64(tm.Width),
			Y: float64(coord.Y) * tileSize * float64(tm.Height),
		},
	}

	flags, err := collideFlags(tm.Tilesets)
	if err != nil {
		return nil, err
	}

	if l := tm.Layer(LayerGround, layerTypeTiles); l != nil {
		if c.Ground, err = decodeTileLayer(l, tm, flags); err != nil {
			return nil, err
		}
	}
	if l := tm.Layer(LayerCollision, layerTypeTiles); l != nil {
		if c.Collision, err = decodeTileLayer(l, tm, flags); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{LayerCollision, LayerColliders} {
		l := tm.Layer(name, layerTypeObjects)
		if l == nil {
			continue
		}
		for _, obj := range l.Objects {
			ob, err := decodeObstacle(l.Name, obj, c.Origin)
			if err != nil {
				return nil, err
			}
			c.Obstacles = append(c.Obstacles, ob)
		}
	}

	if l := tm.Layer(LayerObjects, layerTypeObjects); l != nil {
		for _, obj := range l.Objects {
			if obj.Kind() == ObjectNPC {
				npc, err := decodeNPC(l.Name, obj, c.Origin)
				if err != nil {
					return nil, err
				}
				c.NPCs = append(c.NPCs, npc)
				continue
			}
			c.Objects = append(c.Objects, Object{
				ID:   obj.ID,
				Name: obj.Name,
				Kind: obj.Kind(),
				Pos:  c.Origin.Add(cp.Vector{X: obj.X, Y: obj.Y}),
			})
		}
	}

	if l := tm.Layer(LayerWaypoints, layerTypeObjects); l != nil {
		if c.Waypoints, err = decodeWaypoints(l, c.Origin); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func collideFlags(tilesets []TiledTileset) (map[int]bool, error) {
	flags := make(map[int]bool)
	for _, ts := range tilesets {
		for _, tile := range ts.Tiles {
			p, ok := findProp(tile.Properties, propCollides)
			if !ok {
				continue
			}
			b, err := p.AsBool()
			if err != nil {
				return nil, fmt.Errorf("tileset %q tile %d: %s: %w", ts.Name, tile.ID, propCollides, err)
			}
			flags[ts.FirstGID+tile.ID] = b
		}
	}
	return flags, nil
}

func decodeTileLayer(l *TiledLayer, tm *TiledMap, flags map[int]bool) (*TileLayer, error) {
	w, h := l.Width, l.Height
	if w == 0 && h == 0 {
		w, h = tm.Width, tm.Height
	}
	if w != tm.Width || h != tm.Height {
		return nil, fmt.Errorf("layer %q is %dx%d, map is %dx%d", l.Name, w, h, tm.Width, tm.Height)
	}
	if len(l.Data) != w*h {
		return nil, fmt.Errorf("layer %q has %d cells, want %d", l.Name, len(l.Data), w*h)
	}

	out := &TileLayer{
		Width:    w,
		Height:   h,
		Index:    make([]int, w*h),
		collides: make([]bool, w*h),
	}
	for i, raw := range l.Data {
		gid := raw & gidMask
		if gid == 0 {
			out.Index[i] = -1
			continue
		}
		out.Index[i] = gid
		if b, ok := flags[gid]; ok {
			out.collides[i] = b
		} else {
			out.collides[i] = gid >= collideRangeMin && gid <= collideRangeMax
		}
	}
	return out, nil
}
