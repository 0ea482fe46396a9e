package levels

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/milk9111/tilenav/chunk"
)

//go:embed *.json
var LevelsFS embed.FS

// Source serves the embedded sample world.
func Source() chunk.Source {
	return chunk.FSSource{FS: LevelsFS}
}

// DirSource serves chunk files from a directory on disk.
func DirSource(dir string) chunk.Source {
	return chunk.FSSource{FS: os.DirFS(dir)}
}

// Coords lists every chunk present in fsys, ordered by row, then column.
func Coords(fsys fs.FS) ([]chunk.Coord, error) {
	names, err := fs.Glob(fsys, "chunk_*.json")
	if err != nil {
		return nil, fmt.Errorf("levels: glob chunks: %w", err)
	}
	out := make([]chunk.Coord, 0, len(names))
	for _, name := range names {
		coord, err := chunk.ParseKey(name)
		if err != nil {
			return nil, fmt.Errorf("levels: %w", err)
		}
		out = append(out, coord)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out, nil
}
