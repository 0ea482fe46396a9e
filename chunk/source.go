package chunk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
)

// Source fetches the raw Tiled JSON for one chunk.
type Source interface {
	Fetch(ctx context.Context, coord Coord) ([]byte, error)
}

type SourceFunc func(ctx context.Context, coord Coord) ([]byte, error)

func (f SourceFunc) Fetch(ctx context.Context, coord Coord) ([]byte, error) {
	return f(ctx, coord)
}

// FSSource reads <Dir>/chunk_<x>_<y>.json from a file system.
type FSSource struct {
	FS  fs.FS
	Dir string
}

func (s FSSource) Fetch(ctx context.Context, coord Coord) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := FileName(coord)
	if s.Dir != "" {
		name = path.Join(s.Dir, name)
	}
	data, err := fs.ReadFile(s.FS, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func FileName(coord Coord) string {
	return coord.Key() + ".json"
}
