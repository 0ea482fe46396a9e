package chunk

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// SplitResult is a large map cut into chunk-sized maps.
type SplitResult struct {
	Chunks map[Coord]*TiledMap
	// Dropped lists objects whose anchor lies outside the map.
	Dropped []string
	// CutLinks counts waypoint links removed because their ends landed in
	// different chunks.
	CutLinks int
}

// Split cuts tm into chunkTiles-square maps. The map's top-left tile lands
// in chunk offset; partial edge chunks are padded with empty tiles. Objects
// go to the chunk containing their anchor and are rebased to its origin.
func Split(tm *TiledMap, chunkTiles int, offset Coord) (*SplitResult, error) {
	if chunkTiles <= 0 {
		return nil, fmt.Errorf("split: chunk size must be positive, got %d", chunkTiles)
	}
	if tm.TileWidth <= 0 || tm.TileHeight <= 0 {
		return nil, fmt.Errorf("split: map has invalid tile size %dx%d", tm.TileWidth, tm.TileHeight)
	}

	gridW := (tm.Width + chunkTiles - 1) / chunkTiles
	gridH := (tm.Height + chunkTiles - 1) / chunkTiles
	res := &SplitResult{Chunks: make(map[Coord]*TiledMap, gridW*gridH)}

	for cy := 0; cy < gridH; cy++ {
		for cx := 0; cx < gridW; cx++ {
			out := &TiledMap{
				Width:      chunkTiles,
				Height:     chunkTiles,
				TileWidth:  tm.TileWidth,
				TileHeight: tm.TileHeight,
				Tilesets:   tm.Tilesets,
				Layers:     make([]TiledLayer, 0, len(tm.Layers)),
			}
			for _, l := range tm.Layers {
				sub := TiledLayer{ID: l.ID, Name: l.Name, Type: l.Type, Properties: l.Properties}
				if l.Type == layerTypeTiles {
					sub.Width, sub.Height = chunkTiles, chunkTiles
					sub.Data = extractTiles(l.Data, tm.Width, tm.Height, cx*chunkTiles, cy*chunkTiles, chunkTiles)
				}
				out.Layers = append(out.Layers, sub)
			}
			res.Chunks[Coord{X: cx + offset.X, Y: cy + offset.Y}] = out
		}
	}

	chunkW := float64(chunkTiles * tm.TileWidth)
	chunkH := float64(chunkTiles * tm.TileHeight)
	for li, l := range tm.Layers {
		if l.Type != layerTypeObjects {
			continue
		}
		for _, obj := range l.Objects {
			cx := int(math.Floor(obj.X / chunkW))
			cy := int(math.Floor(obj.Y / chunkH))
			if cx < 0 || cy < 0 || cx >= gridW || cy >= gridH {
				res.Dropped = append(res.Dropped, l.Name+"/"+obj.Label())
				continue
			}
			obj.X -= float64(cx) * chunkW
			obj.Y -= float64(cy) * chunkH
			dst := res.Chunks[Coord{X: cx + offset.X, Y: cy + offset.Y}]
			dst.Layers[li].Objects = append(dst.Layers[li].Objects, obj)
		}
	}

	for _, part := range res.Chunks {
		if l := part.Layer(LayerWaypoints, layerTypeObjects); l != nil {
			res.CutLinks += pruneLinks(l)
		}
	}
	return res, nil
}

// pruneLinks drops links to waypoints outside the layer. Property slices are
// copied so the source map is left untouched.
func pruneLinks(l *TiledLayer) int {
	ids := make(map[string]struct{}, len(l.Objects))
	for _, obj := range l.Objects {
		ids[strings.TrimSpace(obj.Name)] = struct{}{}
	}
	cut := 0
	for i := range l.Objects {
		obj := &l.Objects[i]
		p, ok := findProp(obj.Properties, propLinks)
		if !ok {
			continue
		}
		s, err := p.AsString()
		if err != nil {
			continue
		}
		links := splitLinks(s)
		kept := make([]string, 0, len(links))
		for _, link := range links {
			if _, ok := ids[link]; ok {
				kept = append(kept, link)
			} else {
				cut++
			}
		}
		if len(kept) == len(links) {
			continue
		}
		props := make([]TiledProp, 0, len(obj.Properties))
		for _, prop := range obj.Properties {
			if prop.Name == propLinks {
				raw, _ := json.Marshal(strings.Join(kept, ","))
				prop.Value = raw
			}
			props = append(props, prop)
		}
		obj.Properties = props
	}
	return cut
}

func extractTiles(data []int, mapW, mapH, x0, y0, size int) []int {
	out := make([]int, size*size)
	for y := 0; y < size; y++ {
		sy := y0 + y
		if sy >= mapH {
			break
		}
		for x := 0; x < size; x++ {
			sx := x0 + x
			if sx >= mapW {
				break
			}
			if i := sy*mapW + sx; i < len(data) {
				out[y*size+x] = data[i]
			}
		}
	}
	return out
}
