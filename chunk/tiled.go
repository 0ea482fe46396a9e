package chunk

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	LayerGround    = "ground"
	LayerCollision = "collision"
	LayerColliders = "colliders"
	LayerObjects   = "objects"
	LayerWaypoints = "waypoints"

	layerTypeTiles   = "tilelayer"
	layerTypeObjects = "objectgroup"

	gidMask = 0x1FFFFFFF
)

// TiledMap is the subset of the Tiled JSON map format read for one chunk.
type TiledMap struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	TileWidth  int            `json:"tilewidth"`
	TileHeight int            `json:"tileheight"`
	Layers     []TiledLayer   `json:"layers"`
	Tilesets   []TiledTileset `json:"tilesets"`
}

type TiledLayer struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Data       []int         `json:"data"`
	Objects    []TiledObject `json:"objects"`
	Properties []TiledProp   `json:"properties,omitempty"`
}

type TiledObject struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Class      string       `json:"class,omitempty"`
	X          float64      `json:"x"`
	Y          float64      `json:"y"`
	Width      float64      `json:"width"`
	Height     float64      `json:"height"`
	Point      bool         `json:"point,omitempty"`
	Ellipse    bool         `json:"ellipse,omitempty"`
	Polygon    []TiledPoint `json:"polygon,omitempty"`
	Properties []TiledProp  `json:"properties,omitempty"`
}

type TiledPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TiledProp struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type TiledTileset struct {
	FirstGID  int         `json:"firstgid"`
	Name      string      `json:"name"`
	TileCount int         `json:"tilecount"`
	Tiles     []TiledTile `json:"tiles,omitempty"`
}

type TiledTile struct {
	ID         int         `json:"id"`
	Properties []TiledProp `json:"properties,omitempty"`
}

// Kind returns the object's type, accepting the newer "class" field.
func (o TiledObject) Kind() string {
	if o.Type != "" {
		return o.Type
	}
	return o.Class
}

// Label names the object in error messages.
func (o TiledObject) Label() string {
	if o.Name != "" {
		return o.Name
	}
	return "#" + strconv.Itoa(o.ID)
}

func ParseTiledMap(data []byte) (*TiledMap, error) {
	var tm TiledMap
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, fmt.Errorf("unmarshal tiled map: %w", err)
	}
	if tm.Width <= 0 || tm.Height <= 0 {
		return nil, fmt.Errorf("tiled map has invalid size %dx%d", tm.Width, tm.Height)
	}
	return &tm, nil
}

func (tm *TiledMap) Layer(name, typ string) *TiledLayer {
	for i := range tm.Layers {
		if tm.Layers[i].Name == name && tm.Layers[i].Type == typ {
			return &tm.Layers[i]
		}
	}
	return nil
}

func findProp(props []TiledProp, name string) (TiledProp, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return TiledProp{}, false
}

func (p TiledProp) AsString() (string, error) {
	var s string
	if err := json.Unmarshal(p.Value, &s); err != nil {
		return "", fmt.Errorf("expected string, got %s", string(p.Value))
	}
	return s, nil
}

func (p TiledProp) AsBool() (bool, error) {
	var b bool
	if err := json.Unmarshal(p.Value, &b); err != nil {
		return false, fmt.Errorf("expected bool, got %s", string(p.Value))
	}
	return b, nil
}
