package chunk

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jakecoffman/cp"
)

const keyPrefix = "chunk_"

// Coord identifies a chunk in chunk-grid space.
type Coord struct {
	X int
	Y int
}

func (c Coord) Key() string {
	return keyPrefix + strconv.Itoa(c.X) + "_" + strconv.Itoa(c.Y)
}

func (c Coord) String() string {
	return c.Key()
}

// ParseKey is the inverse of Coord.Key. A trailing ".json" is accepted.
func ParseKey(key string) (Coord, error) {
	s := strings.TrimSuffix(key, ".json")
	rest, ok := strings.CutPrefix(s, keyPrefix)
	if !ok {
		return Coord{}, fmt.Errorf("chunk: parse key %q: missing %q prefix", key, keyPrefix)
	}
	// the x component may be negative, so split on the last underscore
	i := strings.LastIndex(rest, "_")
	if i <= 0 || i == len(rest)-1 {
		return Coord{}, fmt.Errorf("chunk: parse key %q: expected chunk_<x>_<y>", key)
	}
	x, err := strconv.Atoi(rest[:i])
	if err != nil {
		return Coord{}, fmt.Errorf("chunk: parse key %q: x: %w", key, err)
	}
	y, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return Coord{}, fmt.Errorf("chunk: parse key %q: y: %w", key, err)
	}
	return Coord{X: x, Y: y}, nil
}

// CoordAt returns the chunk containing the world position.
func CoordAt(pos cp.Vector, chunkPixels float64) Coord {
	return Coord{
		X: int(math.Floor(pos.X / chunkPixels)),
		Y: int(math.Floor(pos.Y / chunkPixels)),
	}
}

// Origin is the world position of the chunk's top-left corner.
func (c Coord) Origin(chunkPixels float64) cp.Vector {
	return cp.Vector{X: float64(c.X) * chunkPixels, Y: float64(c.Y) * chunkPixels}
}

// Bounds is the chunk's world-space extent. B is the top edge, T the bottom
// edge (screen coordinates grow downward).
func (c Coord) Bounds(chunkPixels float64) cp.BB {
	o := c.Origin(chunkPixels)
	return cp.BB{L: o.X, B: o.Y, R: o.X + chunkPixels, T: o.Y + chunkPixels}
}

// Square returns every coordinate within d chunks of c, row by row.
func Square(c Coord, d int) []Coord {
	if d < 0 {
		d = 0
	}
	out := make([]Coord, 0, (2*d+1)*(2*d+1))
	for y := c.Y - d; y <= c.Y+d; y++ {
		for x := c.X - d; x <= c.X+d; x++ {
			out = append(out, Coord{X: x, Y: y})
		}
	}
	return out
}
