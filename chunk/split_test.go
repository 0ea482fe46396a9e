package chunk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTilesAndObjects(t *testing.T) {
	// 12x6 tiles cut into 8x8 chunks: two chunks, both padded.
	b := newMapBuilder(12, 6).collision([2]int{0, 0}, [2]int{9, 5})
	b.objectLayer(LayerWaypoints,
		waypointObj("a", 40, 40, "b"),
		waypointObj("b", 9*32+4, 70, "a"),
		waypointObj("lost", -10, 10, ""),
	)
	tm := b.tm

	res, err := Split(&tm, 8, Coord{X: -1, Y: 2})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, []string{LayerWaypoints + "/lost"}, res.Dropped)
	assert.Equal(t, 2, res.CutLinks, "a and b landed in different chunks")

	left, right := res.Chunks[Coord{X: -1, Y: 2}], res.Chunks[Coord{X: 0, Y: 2}]
	require.NotNil(t, left)
	require.NotNil(t, right)

	coll := left.Layer(LayerCollision, layerTypeTiles)
	require.NotNil(t, coll)
	assert.Len(t, coll.Data, 64)
	assert.Equal(t, 1, coll.Data[0])
	assert.Equal(t, 1, right.Layer(LayerCollision, layerTypeTiles).Data[5*8+1])
	assert.Equal(t, 0, right.Layer(LayerCollision, layerTypeTiles).Data[5*8+4], "padding past the map edge")

	wpLeft := left.Layer(LayerWaypoints, layerTypeObjects)
	require.Len(t, wpLeft.Objects, 1)
	assert.Equal(t, "a", wpLeft.Objects[0].Name)

	wpRight := right.Layer(LayerWaypoints, layerTypeObjects)
	require.Len(t, wpRight.Objects, 1)
	assert.Equal(t, float64(32+4), wpRight.Objects[0].X)
	assert.Equal(t, float64(70), wpRight.Objects[0].Y)

	c, err := Parse(Coord{X: 0, Y: 2}, mustJSON(t, right), ParseOptions{TileSize: 32, ChunkTiles: 8})
	require.NoError(t, err)
	require.Len(t, c.Waypoints, 1)
	assert.Empty(t, c.Waypoints[0].Links)

	links, ok := findProp(tm.Layers[1].Objects[0].Properties, propLinks)
	require.True(t, ok)
	s, err := links.AsString()
	require.NoError(t, err)
	assert.Equal(t, "b", s, "source map untouched")
}

func TestSplitOutputParses(t *testing.T) {
	b := newMapBuilder(16, 8).collision([2]int{3, 3}, [2]int{12, 4})
	tm := b.tm
	res, err := Split(&tm, 8, Coord{})
	require.NoError(t, err)

	for coord, part := range res.Chunks {
		data, err := json.Marshal(part)
		require.NoError(t, err)
		c, err := Parse(coord, data, testOpts)
		require.NoError(t, err, coord.Key())
		assert.Equal(t, coord.Origin(256), c.Origin)
	}
	c, err := Parse(Coord{X: 1}, mustJSON(t, res.Chunks[Coord{X: 1}]), testOpts)
	require.NoError(t, err)
	assert.True(t, c.Collision.Blocked(4, 4))
}

func TestSplitRejectsBadSizes(t *testing.T) {
	tm := newMapBuilder(8, 8).tm
	_, err := Split(&tm, 0, Coord{})
	assert.Error(t, err)

	tm.TileWidth = 0
	_, err = Split(&tm, 8, Coord{})
	assert.Error(t, err)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
