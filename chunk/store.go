package chunk

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/milk9111/tilenav/log"
)

// Store owns every loaded chunk. Ensure may be called from any goroutine;
// concurrent calls for one coordinate share a single fetch.
type Store struct {
	source Source
	opts   ParseOptions

	mu     sync.RWMutex
	loaded map[Coord]*Chunk
	// epochs counts unloads per coordinate; a load started in an older
	// epoch is not stored
	epochs map[Coord]uint64

	group   singleflight.Group
	fetches atomic.Int64
}

func NewStore(source Source, opts ParseOptions) *Store {
	return &Store{
		source: source,
		opts:   opts,
		loaded: make(map[Coord]*Chunk),
		epochs: make(map[Coord]uint64),
	}
}

// Ensure returns the loaded chunk for coord, fetching and parsing it on first
// use. Failures are returned as *LoadError and are not cached.
//
// A load still in flight when coord is unloaded fails with ErrSuperseded,
// and later callers start a fresh fetch instead of joining it.
func (s *Store) Ensure(ctx context.Context, coord Coord) (*Chunk, error) {
	s.mu.RLock()
	c, ok := s.loaded[coord]
	epoch := s.epochs[coord]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}
	key := coord.Key() + "@" + strconv.FormatUint(epoch, 10)
	v, err, _ := s.group.Do(key, func() (any, error) {
		// a caller that arrives just after a load finished must not fetch again
		if c, ok := s.Get(coord); ok {
			return c, nil
		}
		return s.load(ctx, coord, epoch)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Chunk), nil
}

func (s *Store) load(ctx context.Context, coord Coord, epoch uint64) (*Chunk, error) {
	start := time.Now()
	s.fetches.Add(1)

	data, err := s.source.Fetch(ctx, coord)
	if err != nil {
		log.WithFields(log.Fields{"chunk": coord.Key(), "err": err}).Warn("chunk fetch failed")
		return nil, &LoadError{Coord: coord, Err: err}
	}
	c, err := Parse(coord, data, s.opts)
	if err != nil {
		log.WithFields(log.Fields{"chunk": coord.Key(), "err": err}).Warn("chunk parse failed")
		return nil, &LoadError{Coord: coord, Err: err}
	}

	s.mu.Lock()
	if s.epochs[coord] != epoch {
		s.mu.Unlock()
		log.WithField("chunk", coord.Key()).Debug("chunk unloaded while loading, discarded")
		return nil, &LoadError{Coord: coord, Err: ErrSuperseded}
	}
	s.loaded[coord] = c
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"chunk":     coord.Key(),
		"obstacles": len(c.Obstacles),
		"waypoints": len(c.Waypoints),
		"took":      time.Since(start),
	}).Debug("chunk loaded")
	return c, nil
}

// Unload drops coord and releases everything the chunk owns before
// returning. Unloading an absent coordinate does nothing.
func (s *Store) Unload(coord Coord) bool {
	s.mu.Lock()
	c, ok := s.loaded[coord]
	delete(s.loaded, coord)
	s.epochs[coord]++
	s.mu.Unlock()
	if !ok {
		return false
	}
	c.Release()
	log.WithField("chunk", coord.Key()).Debug("chunk unloaded")
	return true
}

func (s *Store) Get(coord Coord) (*Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.loaded[coord]
	return c, ok
}

// Loaded lists loaded coordinates ordered by row, then column.
func (s *Store) Loaded() []Coord {
	s.mu.RLock()
	out := make([]Coord, 0, len(s.loaded))
	for coord := range s.loaded {
		out = append(out, coord)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loaded)
}

// Fetches counts calls made to the underlying source.
func (s *Store) Fetches() int64 {
	return s.fetches.Load()
}
