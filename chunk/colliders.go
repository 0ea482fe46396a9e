package chunk

import (
	"github.com/jakecoffman/cp"
)

const (
	CollisionTypeSolid cp.CollisionType = iota + 1
	CollisionTypeObstacle
	CollisionTypeAgent
)

type colliderSet struct {
	space  *cp.Space
	shapes []*cp.Shape
}

// Mount adds the chunk's static colliders to space and returns how many
// shapes were added. Mounting an already mounted chunk is a no-op.
func (c *Chunk) Mount(space *cp.Space) int {
	if c == nil || space == nil || c.released || c.colliders != nil {
		return 0
	}
	set := &colliderSet{space: space}
	set.addTiles(c)
	set.addObstacles(c)
	c.colliders = set
	return len(set.shapes)
}

func (c *Chunk) Mounted() bool {
	return c != nil && c.colliders != nil
}

// ColliderCount is the number of shapes the chunk currently owns in a space.
func (c *Chunk) ColliderCount() int {
	if c == nil || c.colliders == nil {
		return 0
	}
	return len(c.colliders.shapes)
}

// Release removes the chunk's colliders from their space and drops every
// owned layer and object. A released chunk cannot be mounted again.
func (c *Chunk) Release() {
	if c == nil || c.released {
		return
	}
	if c.colliders != nil {
		for _, shape := range c.colliders.shapes {
			c.colliders.space.RemoveShape(shape)
		}
		c.colliders.shapes = nil
		c.colliders = nil
	}
	c.Map = nil
	c.Ground = nil
	c.Collision = nil
	c.Obstacles = nil
	c.NPCs = nil
	c.Objects = nil
	c.Waypoints = nil
	c.released = true
}

// addTiles merges contiguous colliding tiles into rectangles (width first,
// then height) so the space holds few large static boxes.
func (s *colliderSet) addTiles(c *Chunk) {
	layer := c.Collision
	if layer == nil {
		return
	}
	processed := make([]bool, layer.Width*layer.Height)
	for y := 0; y < layer.Height; y++ {
		for x := 0; x < layer.Width; x++ {
			idx := y*layer.Width + x
			if processed[idx] {
				continue
			}
			if !layer.Blocked(x, y) {
				processed[idx] = true
				continue
			}

			w := 1
			for x+w < layer.Width {
				idx2 := y*layer.Width + (x + w)
				if processed[idx2] || !layer.Blocked(x+w, y) {
					break
				}
				w++
			}

			h := 1
		heightLoop:
			for y+h < layer.Height {
				for xi := x; xi < x+w; xi++ {
					idx2 := (y+h)*layer.Width + xi
					if processed[idx2] || !layer.Blocked(xi, y+h) {
						break heightLoop
					}
				}
				h++
			}

			x0 := c.Origin.X + float64(x)*c.TileSize
			y0 := c.Origin.Y + float64(y)*c.TileSize
			bb := cp.BB{L: x0, B: y0, R: x0 + float64(w)*c.TileSize, T: y0 + float64(h)*c.TileSize}
			shape := cp.NewBox2(s.space.StaticBody, bb, 0)
			shape.SetFriction(0)
			shape.SetCollisionType(CollisionTypeSolid)
			s.add(shape)

			for yy := y; yy < y+h; yy++ {
				for xx := x; xx < x+w; xx++ {
					processed[yy*layer.Width+xx] = true
				}
			}
		}
	}
}

func (s *colliderSet) addObstacles(c *Chunk) {
	for _, ob := range c.Obstacles {
		var shape *cp.Shape
		if len(ob.Verts) == 4 && isAxisAligned(ob.Verts) {
			shape = cp.NewBox2(s.space.StaticBody, ob.BB, 0)
		} else {
			shape = cp.NewPolyShape(s.space.StaticBody, len(ob.Verts), ob.Verts, cp.NewTransformIdentity(), 0)
		}
		shape.SetFriction(0)
		shape.SetCollisionType(CollisionTypeObstacle)
		s.add(shape)
	}
}

func (s *colliderSet) add(shape *cp.Shape) {
	s.space.AddShape(shape)
	s.shapes = append(s.shapes, shape)
}

func isAxisAligned(verts []cp.Vector) bool {
	for i := range verts {
		a := verts[i]
		b := verts[(i+1)%len(verts)]
		if a.X != b.X && a.Y != b.Y {
			return false
		}
	}
	return true
}
