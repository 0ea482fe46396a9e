// Command chunksplit cuts a large Tiled map into chunk_<x>_<y>.json files and
// can seed the postgres chunk table with the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/milk9111/tilenav/chunk"
	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/log"
)

func main() {
	input := flag.String("input", "map.tmj", "path to a Tiled JSON map (.tmj/.json)")
	outDir := flag.String("out", "levels", "directory chunk files are written to (empty to skip)")
	size := flag.Int("chunk-tiles", common.ChunkTiles, "chunk edge length in tiles")
	offset := flag.String("offset", "0,0", "chunk coordinate of the map's top-left chunk")
	dsn := flag.String("dsn", "", "postgres DSN; when set, chunks are upserted into map_chunks")
	mapID := flag.String("map-id", "", "map id for -dsn (default: input file name)")
	flag.Parse()

	if err := run(*input, *outDir, *size, *offset, *dsn, *mapID); err != nil {
		log.WithField("err", err).Fatal("chunksplit failed")
	}
}

func run(input, outDir string, size int, offsetFlag, dsn, mapID string) error {
	origin, err := parseCoord(offsetFlag)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	tm, err := chunk.ParseTiledMap(data)
	if err != nil {
		return err
	}
	res, err := chunk.Split(tm, size, origin)
	if err != nil {
		return err
	}
	for _, label := range res.Dropped {
		log.WithField("object", label).Warn("object outside the map, dropped")
	}
	if res.CutLinks > 0 {
		log.WithField("links", res.CutLinks).Warn("waypoint links crossing chunk borders were removed")
	}

	coords := make([]chunk.Coord, 0, len(res.Chunks))
	payloads := make(map[chunk.Coord][]byte, len(res.Chunks))
	for coord, part := range res.Chunks {
		b, err := json.Marshal(part)
		if err != nil {
			return fmt.Errorf("encode %s: %w", coord.Key(), err)
		}
		coords = append(coords, coord)
		payloads[coord] = b
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		for _, coord := range coords {
			if err := os.WriteFile(filepath.Join(outDir, chunk.FileName(coord)), payloads[coord], 0o644); err != nil {
				return err
			}
		}
		log.WithFields(log.Fields{"dir": outDir, "chunks": len(coords)}).Info("chunk files written")
	}

	if dsn == "" {
		return nil
	}
	if mapID == "" {
		mapID = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	db, err := chunk.OpenPostgres(dsn)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	source := chunk.NewGormSource(db, mapID)
	if err := source.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, coord := range coords {
		if err := source.Save(ctx, coord, payloads[coord]); err != nil {
			return fmt.Errorf("save %s: %w", coord.Key(), err)
		}
	}
	log.WithFields(log.Fields{"map_id": mapID, "chunks": len(coords)}).Info("chunks seeded")
	return nil
}

func parseCoord(s string) (chunk.Coord, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return chunk.Coord{}, fmt.Errorf("offset %q: expected x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return chunk.Coord{}, fmt.Errorf("offset %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return chunk.Coord{}, fmt.Errorf("offset %q: %w", s, err)
	}
	return chunk.Coord{X: x, Y: y}, nil
}
