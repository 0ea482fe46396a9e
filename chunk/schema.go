package chunk

import (
	"sort"
	"strings"

	"github.com/jakecoffman/cp"
)

const (
	ObjectNPC = "npc"

	propDialogKey    = "dialogKey"
	propDialogPrefix = "dialog."
	propLinks        = "links"
)

// NPC is an "npc" object from the objects layer. Dialog is keyed by language.
type NPC struct {
	ID        int
	Name      string
	Pos       cp.Vector
	DialogKey string
	Dialog    map[string]string
}

// Object is any other object from the objects layer.
type Object struct {
	ID   int
	Name string
	Kind string
	Pos  cp.Vector
}

// Waypoint is a named point from the waypoints layer. Empty Links means the
// graph builder auto-connects it.
type Waypoint struct {
	ID    string
	Pos   cp.Vector
	Links []string
}

// Obstacle is a collision rectangle or polygon in world space.
type Obstacle struct {
	Label string
	Verts []cp.Vector
	BB    cp.BB
}

func decodeNPC(layer string, obj TiledObject, origin cp.Vector) (NPC, error) {
	npc := NPC{
		ID:     obj.ID,
		Name:   obj.Name,
		Pos:    origin.Add(cp.Vector{X: obj.X, Y: obj.Y}),
		Dialog: map[string]string{},
	}
	for _, p := range obj.Properties {
		switch {
		case p.Name == propDialogKey:
			s, err := p.AsString()
			if err != nil {
				return NPC{}, &SchemaError{Layer: layer, Object: obj.Label(), Field: p.Name, Reason: err.Error()}
			}
			npc.DialogKey = s
		case strings.HasPrefix(p.Name, propDialogPrefix):
			lang := strings.TrimPrefix(p.Name, propDialogPrefix)
			if lang == "" {
				return NPC{}, &SchemaError{Layer: layer, Object: obj.Label(), Field: p.Name, Reason: "missing language suffix"}
			}
			s, err := p.AsString()
			if err != nil {
				return NPC{}, &SchemaError{Layer: layer, Object: obj.Label(), Field: p.Name, Reason: err.Error()}
			}
			npc.Dialog[lang] = s
		}
	}
	if npc.DialogKey == "" {
		return NPC{}, &SchemaError{Layer: layer, Object: obj.Label(), Field: propDialogKey, Reason: "required"}
	}
	return npc, nil
}

func decodeWaypoints(layer *TiledLayer, origin cp.Vector) ([]Waypoint, error) {
	out := make([]Waypoint, 0, len(layer.Objects))
	seen := make(map[string]struct{}, len(layer.Objects))
	for _, obj := range layer.Objects {
		id := strings.TrimSpace(obj.Name)
		if id == "" {
			return nil, &SchemaError{Layer: layer.Name, Object: obj.Label(), Field: "name", Reason: "waypoint id required"}
		}
		if _, dup := seen[id]; dup {
			return nil, &SchemaError{Layer: layer.Name, Object: id, Field: "name", Reason: "duplicate waypoint id"}
		}
		seen[id] = struct{}{}

		wp := Waypoint{ID: id, Pos: origin.Add(cp.Vector{X: obj.X, Y: obj.Y})}
		if p, ok := findProp(obj.Properties, propLinks); ok {
			s, err := p.AsString()
			if err != nil {
				return nil, &SchemaError{Layer: layer.Name, Object: id, Field: propLinks, Reason: err.Error()}
			}
			wp.Links = splitLinks(s)
		}
		out = append(out, wp)
	}

	for _, wp := range out {
		for _, link := range wp.Links {
			if link == wp.ID {
				return nil, &SchemaError{Layer: layer.Name, Object: wp.ID, Field: propLinks, Reason: "links to itself"}
			}
			if _, ok := seen[link]; !ok {
				return nil, &SchemaError{Layer: layer.Name, Object: wp.ID, Field: propLinks, Reason: "unknown waypoint " + link}
			}
		}
	}
	return out, nil
}

func splitLinks(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	links := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			links = append(links, id)
		}
	}
	sort.Strings(links)
	return compactStrings(links)
}

func compactStrings(s []string) []string {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func decodeObstacle(layer string, obj TiledObject, origin cp.Vector) (Obstacle, error) {
	base := origin.Add(cp.Vector{X: obj.X, Y: obj.Y})
	var verts []cp.Vector
	switch {
	case len(obj.Polygon) > 0:
		if len(obj.Polygon) < 3 {
			return Obstacle{}, &SchemaError{Layer: layer, Object: obj.Label(), Field: "polygon", Reason: "needs at least 3 points"}
		}
		verts = make([]cp.Vector, 0, len(obj.Polygon))
		for _, p := range obj.Polygon {
			verts = append(verts, base.Add(cp.Vector{X: p.X, Y: p.Y}))
		}
	case obj.Point:
		return Obstacle{}, &SchemaError{Layer: layer, Object: obj.Label(), Reason: "point objects cannot collide"}
	default:
		// rectangles and ellipses both collide as their bounding box
		if obj.Width <= 0 || obj.Height <= 0 {
			return Obstacle{}, &SchemaError{Layer: layer, Object: obj.Label(), Reason: "obstacle has no area"}
		}
		verts = []cp.Vector{
			base,
			{X: base.X + obj.Width, Y: base.Y},
			{X: base.X + obj.Width, Y: base.Y + obj.Height},
			{X: base.X, Y: base.Y + obj.Height},
		}
	}
	return Obstacle{Label: obj.Label(), Verts: verts, BB: boundsOf(verts)}, nil
}

func boundsOf(verts []cp.Vector) cp.BB {
	bb := cp.BB{L: verts[0].X, B: verts[0].Y, R: verts[0].X, T: verts[0].Y}
	for _, v := range verts[1:] {
		if v.X < bb.L {
			bb.L = v.X
		}
		if v.X > bb.R {
			bb.R = v.X
		}
		if v.Y < bb.B {
			bb.B = v.Y
		}
		if v.Y > bb.T {
			bb.T = v.Y
		}
	}
	return bb
}
