package chunk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type mapBuilder struct {
	tm TiledMap
}

func newMapBuilder(w, h int) *mapBuilder {
	return &mapBuilder{tm: TiledMap{
		Width:      w,
		Height:     h,
		TileWidth:  32,
		TileHeight: 32,
		Tilesets:   []TiledTileset{{FirstGID: 1, Name: "terrain", TileCount: 4}},
	}}
}

// collision adds a collision tile layer with gid 1 at every listed cell.
func (b *mapBuilder) collision(cells ...[2]int) *mapBuilder {
	data := make([]int, b.tm.Width*b.tm.Height)
	for _, c := range cells {
		data[c[1]*b.tm.Width+c[0]] = 1
	}
	return b.tileLayer(LayerCollision, data)
}

func (b *mapBuilder) tileLayer(name string, data []int) *mapBuilder {
	b.tm.Layers = append(b.tm.Layers, TiledLayer{
		Name:   name,
		Type:   layerTypeTiles,
		Width:  b.tm.Width,
		Height: b.tm.Height,
		Data:   data,
	})
	return b
}

func (b *mapBuilder) objectLayer(name string, objs ...TiledObject) *mapBuilder {
	b.tm.Layers = append(b.tm.Layers, TiledLayer{Name: name, Type: layerTypeObjects, Objects: objs})
	return b
}

func (b *mapBuilder) tileProps(id int, props ...TiledProp) *mapBuilder {
	b.tm.Tilesets[0].Tiles = append(b.tm.Tilesets[0].Tiles, TiledTile{ID: id, Properties: props})
	return b
}

func (b *mapBuilder) bytes(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(b.tm)
	require.NoError(t, err)
	return data
}

func strProp(name, value string) TiledProp {
	raw, _ := json.Marshal(value)
	return TiledProp{Name: name, Type: "string", Value: raw}
}

func boolProp(name string, value bool) TiledProp {
	raw, _ := json.Marshal(value)
	return TiledProp{Name: name, Type: "bool", Value: raw}
}

func waypointObj(name string, x, y float64, links string) TiledObject {
	obj := TiledObject{Name: name, X: x, Y: y, Point: true}
	if links != "" {
		obj.Properties = []TiledProp{strProp(propLinks, links)}
	}
	return obj
}
