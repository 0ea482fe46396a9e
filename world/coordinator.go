package world

import (
	"context"
	"errors"
	"sort"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilenav/chunk"
	"github.com/milk9111/tilenav/log"
)

// LoadResult reports a finished Ensure back to the tick loop.
type LoadResult struct {
	Coord chunk.Coord
	Chunk *chunk.Chunk
	Err   error

	// gen matches pending[Coord] unless a reload superseded this load
	gen uint64
}

// Coordinator keeps the square of chunks around the agent loaded. Update and
// Drain run on the tick loop. Loads run on their own goroutines and report
// back through a channel; unloads only ever happen on the tick loop.
type Coordinator struct {
	ctx          context.Context
	store        *chunk.Store
	chunkPixels  float64
	viewDistance int

	current    chunk.Coord
	hasCurrent bool
	desired    map[chunk.Coord]struct{}
	pending    map[chunk.Coord]uint64
	nextGen    uint64
	results    chan LoadResult
	bounds     cp.BB

	events *EventQueue
}

func NewCoordinator(ctx context.Context, store *chunk.Store, chunkPixels float64, viewDistance int, events *EventQueue) *Coordinator {
	if viewDistance < 0 {
		viewDistance = 0
	}
	side := 2*viewDistance + 1
	return &Coordinator{
		ctx:          ctx,
		store:        store,
		chunkPixels:  chunkPixels,
		viewDistance: viewDistance,
		desired:      make(map[chunk.Coord]struct{}),
		pending:      make(map[chunk.Coord]uint64),
		results:      make(chan LoadResult, side*side*2),
		events:       events,
	}
}

// Update recomputes the desired set when pos is in a different chunk than
// last time. It reports whether anything was recomputed.
func (c *Coordinator) Update(pos cp.Vector) bool {
	coord := chunk.CoordAt(pos, c.chunkPixels)
	if c.hasCurrent && coord == c.current {
		return false
	}
	c.current = coord
	c.hasCurrent = true

	square := chunk.Square(coord, c.viewDistance)
	c.desired = make(map[chunk.Coord]struct{}, len(square))
	for _, want := range square {
		c.desired[want] = struct{}{}
		c.ensure(want)
	}
	for _, have := range c.store.Loaded() {
		if _, ok := c.desired[have]; !ok {
			c.unload(have)
		}
	}

	c.bounds = square[0].Bounds(c.chunkPixels)
	for _, want := range square[1:] {
		c.bounds = c.bounds.Merge(want.Bounds(c.chunkPixels))
	}

	log.WithFields(log.Fields{
		"chunk":   coord.Key(),
		"desired": len(square),
		"pending": len(c.pending),
	}).Debug("desired chunk set recomputed")
	c.events.Push(Event{Kind: EventChunkMoved, Coord: coord})
	return true
}

func (c *Coordinator) ensure(coord chunk.Coord) {
	if _, ok := c.store.Get(coord); ok {
		return
	}
	if _, ok := c.pending[coord]; ok {
		return
	}
	c.nextGen++
	gen := c.nextGen
	c.pending[coord] = gen
	go func() {
		loaded, err := c.store.Ensure(c.ctx, coord)
		select {
		case c.results <- LoadResult{Coord: coord, Chunk: loaded, Err: err, gen: gen}:
		case <-c.ctx.Done():
		}
	}()
}

func (c *Coordinator) unload(coord chunk.Coord) {
	if c.store.Unload(coord) {
		c.events.Push(Event{Kind: EventChunkUnloaded, Coord: coord})
	}
}

// Drain applies every finished load without blocking and returns the chunks
// that are loaded and still wanted.
func (c *Coordinator) Drain() []*chunk.Chunk {
	var out []*chunk.Chunk
	for {
		select {
		case res := <-c.results:
			if loaded := c.apply(res); loaded != nil {
				out = append(out, loaded)
			}
		default:
			return out
		}
	}
}

// Settle blocks until no loads are pending, applying results as they land.
func (c *Coordinator) Settle(ctx context.Context) ([]*chunk.Chunk, error) {
	var out []*chunk.Chunk
	for len(c.pending) > 0 {
		select {
		case res := <-c.results:
			if loaded := c.apply(res); loaded != nil {
				out = append(out, loaded)
			}
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, nil
}

func (c *Coordinator) apply(res LoadResult) *chunk.Chunk {
	if gen, ok := c.pending[res.Coord]; !ok || gen != res.gen {
		// a reload replaced this load; the store already dropped its chunk
		log.WithField("chunk", res.Coord.Key()).Debug("superseded chunk load dropped")
		return nil
	}
	delete(c.pending, res.Coord)
	if res.Err != nil {
		var le *chunk.LoadError
		if !errors.As(res.Err, &le) {
			res.Err = &chunk.LoadError{Coord: res.Coord, Err: res.Err}
		}
		log.WithFields(log.Fields{"chunk": res.Coord.Key(), "err": res.Err}).Warn("chunk load failed")
		c.events.Push(Event{Kind: EventChunkLoadFailed, Coord: res.Coord, Err: res.Err})
		return nil
	}
	if !c.IsDesired(res.Coord) {
		// the agent moved on while this was in flight
		c.unload(res.Coord)
		return nil
	}
	c.events.Push(Event{Kind: EventChunkLoaded, Coord: res.Coord})
	return res.Chunk
}

// Reload drops coord and, if it is still wanted, loads it again. A load of
// coord that has not been drained yet is superseded and later discarded.
func (c *Coordinator) Reload(coord chunk.Coord) {
	c.store.Unload(coord)
	delete(c.pending, coord)
	if !c.IsDesired(coord) {
		return
	}
	c.events.Push(Event{Kind: EventChunkReloaded, Coord: coord})
	c.ensure(coord)
}

// Retry re-requests desired chunks that are neither loaded nor pending,
// which is how a failed load gets another chance.
func (c *Coordinator) Retry() int {
	n := 0
	for _, coord := range c.Desired() {
		if _, ok := c.store.Get(coord); ok {
			continue
		}
		if _, ok := c.pending[coord]; ok {
			continue
		}
		c.ensure(coord)
		n++
	}
	return n
}

func (c *Coordinator) Current() (chunk.Coord, bool) {
	return c.current, c.hasCurrent
}

// Bounds is the union of the desired chunks' extents.
func (c *Coordinator) Bounds() (cp.BB, bool) {
	return c.bounds, c.hasCurrent
}

func (c *Coordinator) IsDesired(coord chunk.Coord) bool {
	_, ok := c.desired[coord]
	return ok
}

// Desired lists the desired set ordered by row, then column.
func (c *Coordinator) Desired() []chunk.Coord {
	return sortedCoords(c.desired)
}

func (c *Coordinator) Pending() []chunk.Coord {
	return sortedCoords(c.pending)
}

func sortedCoords[V any](set map[chunk.Coord]V) []chunk.Coord {
	out := make([]chunk.Coord, 0, len(set))
	for coord := range set {
		out = append(out, coord)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
