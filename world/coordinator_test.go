package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/tilenav/chunk"
)

func newTestCoordinator(t *testing.T, src chunk.Source, d int) (*Coordinator, *chunk.Store, *EventQueue) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	store := chunk.NewStore(src, testParse)
	events := &EventQueue{}
	return NewCoordinator(ctx, store, testChunkPixels, d, events), store, events
}

func TestCoordinatorRecomputesOnlyOnChunkChange(t *testing.T) {
	c, _, _ := newTestCoordinator(t, newMapSource(t), 1)

	assert.True(t, c.Update(cp.Vector{X: 10, Y: 10}))
	assert.False(t, c.Update(cp.Vector{X: 200, Y: 250}))
	assert.True(t, c.Update(cp.Vector{X: 300, Y: 10}))
	assert.False(t, c.Update(cp.Vector{X: 500, Y: 10}))

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, chunk.Coord{X: 1, Y: 0}, cur)
}

func TestCoordinatorLoadsSquareAndUnionBounds(t *testing.T) {
	src := newMapSource(t)
	c, store, _ := newTestCoordinator(t, src, 1)

	c.Update(cp.Vector{X: 10, Y: 10})
	assert.Len(t, c.Pending(), 9)
	loaded := settleCoordinator(t, c)

	assert.Len(t, loaded, 9)
	assert.Equal(t, chunk.Square(chunk.Coord{}, 1), store.Loaded())
	assert.Equal(t, c.Desired(), store.Loaded())
	assert.Empty(t, c.Pending())

	bb, ok := c.Bounds()
	require.True(t, ok)
	assert.Equal(t, cp.BB{L: -256, B: -256, R: 512, T: 512}, bb)
}

func TestCoordinatorViewDistanceZero(t *testing.T) {
	c, store, _ := newTestCoordinator(t, newMapSource(t), 0)

	c.Update(cp.Vector{X: -10, Y: 300})
	settleCoordinator(t, c)

	assert.Equal(t, []chunk.Coord{{X: -1, Y: 1}}, store.Loaded())
	bb, _ := c.Bounds()
	assert.Equal(t, cp.BB{L: -256, B: 256, R: 0, T: 512}, bb)
}

func TestCoordinatorUnloadsChunksOutOfRange(t *testing.T) {
	c, store, events := newTestCoordinator(t, newMapSource(t), 1)
	c.Update(cp.Vector{X: 10, Y: 10})
	old := settleCoordinator(t, c)
	events.Drain()

	c.Update(cp.Vector{X: 2000, Y: 10})

	// the old set is released before Update returns
	for _, ch := range old {
		assert.True(t, ch.Released(), ch.Coord.Key())
	}
	assert.Empty(t, store.Loaded())
	assert.Len(t, c.Pending(), 9)

	unloaded := 0
	for _, e := range events.Drain() {
		if e.Kind == EventChunkUnloaded {
			unloaded++
		}
	}
	assert.Equal(t, 9, unloaded)

	settleCoordinator(t, c)
	assert.Equal(t, chunk.Square(chunk.Coord{X: 7, Y: 0}, 1), store.Loaded())
}

func TestCoordinatorOverlappingMoveKeepsSharedChunks(t *testing.T) {
	src := newMapSource(t)
	c, store, _ := newTestCoordinator(t, src, 1)
	c.Update(cp.Vector{X: 10, Y: 10})
	settleCoordinator(t, c)
	before := src.fetches.Load()

	c.Update(cp.Vector{X: 300, Y: 10})
	settleCoordinator(t, c)

	// moving one chunk right only fetches the new column
	assert.EqualValues(t, 3, src.fetches.Load()-before)
	assert.Equal(t, chunk.Square(chunk.Coord{X: 1, Y: 0}, 1), store.Loaded())
}

func TestCoordinatorDropsStaleCompletedLoads(t *testing.T) {
	src := newMapSource(t)
	src.gate = make(chan struct{})
	c, store, _ := newTestCoordinator(t, src, 1)

	c.Update(cp.Vector{X: 10, Y: 10})
	c.Update(cp.Vector{X: 5000, Y: 5000})
	assert.Len(t, c.Pending(), 18)

	close(src.gate)
	loaded := settleCoordinator(t, c)

	far := chunk.Square(chunk.Coord{X: 19, Y: 19}, 1)
	assert.Len(t, loaded, len(far))
	assert.Equal(t, far, store.Loaded())
}

func TestCoordinatorLoadFailureCanBeRetried(t *testing.T) {
	src := newMapSource(t)
	bad := chunk.Coord{X: 1, Y: 0}
	src.setFailing(bad, true)
	c, store, events := newTestCoordinator(t, src, 1)

	c.Update(cp.Vector{X: 10, Y: 10})
	loaded := settleCoordinator(t, c)
	assert.Len(t, loaded, 8)
	_, ok := store.Get(bad)
	assert.False(t, ok)

	var failed *Event
	for _, e := range events.Drain() {
		if e.Kind == EventChunkLoadFailed {
			failed = &e
		}
	}
	require.NotNil(t, failed)
	var le *chunk.LoadError
	require.True(t, errors.As(failed.Err, &le))
	assert.Equal(t, bad, le.Coord)

	src.setFailing(bad, false)
	assert.Equal(t, 1, c.Retry())
	settleCoordinator(t, c)
	_, ok = store.Get(bad)
	assert.True(t, ok)
	assert.Zero(t, c.Retry())
}

func TestCoordinatorReload(t *testing.T) {
	src := newMapSource(t)
	c, store, _ := newTestCoordinator(t, src, 0)
	c.Update(cp.Vector{X: 10, Y: 10})
	first := settleCoordinator(t, c)
	require.Len(t, first, 1)

	src.set(chunk.Coord{}, chunkJSON(t, solidRows()))
	c.Reload(chunk.Coord{})
	assert.True(t, first[0].Released())
	settleCoordinator(t, c)

	again, ok := store.Get(chunk.Coord{})
	require.True(t, ok)
	assert.NotSame(t, first[0], again)
	assert.True(t, again.Collision.Blocked(0, 0))

	// coordinates outside the desired set are only dropped
	c.Reload(chunk.Coord{X: 4, Y: 4})
	assert.Empty(t, c.Pending())
}

func TestCoordinatorReloadBeforeDrainKeepsChunk(t *testing.T) {
	src := newMapSource(t)
	c, store, events := newTestCoordinator(t, src, 0)
	c.Update(cp.Vector{X: 10, Y: 10})

	// the load finishes in the store but its result is not drained yet
	require.Eventually(t, func() bool {
		_, ok := store.Get(chunk.Coord{})
		return ok
	}, time.Second, time.Millisecond)
	stale, _ := store.Get(chunk.Coord{})

	src.set(chunk.Coord{}, chunkJSON(t, solidRows()))
	c.Reload(chunk.Coord{})
	assert.True(t, stale.Released())

	loaded := settleCoordinator(t, c)
	current, ok := store.Get(chunk.Coord{})
	require.True(t, ok, "reloaded chunk is in the store")
	assert.False(t, current.Released())
	assert.True(t, current.Collision.Blocked(0, 0))
	require.Len(t, loaded, 1)
	assert.Same(t, current, loaded[0])
	assert.EqualValues(t, 2, src.fetches.Load())
	assert.Empty(t, c.Pending())
	assert.NotContains(t, drainKinds(events.Drain()), EventChunkLoadFailed)
}

func TestCoordinatorReloadDuringLoadSupersedesIt(t *testing.T) {
	src := newMapSource(t)
	src.gate = make(chan struct{})
	c, store, events := newTestCoordinator(t, src, 0)
	c.Update(cp.Vector{X: 10, Y: 10})
	require.Eventually(t, func() bool { return src.fetches.Load() == 1 }, time.Second, time.Millisecond)

	// the first fetch is still blocked, so the reload must not join it
	c.Reload(chunk.Coord{})
	require.Eventually(t, func() bool { return src.fetches.Load() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []chunk.Coord{{}}, c.Pending())
	close(src.gate)

	loaded := settleCoordinator(t, c)
	// the superseded result may still be queued
	time.Sleep(20 * time.Millisecond)
	loaded = append(loaded, c.Drain()...)

	require.Len(t, loaded, 1)
	current, ok := store.Get(chunk.Coord{})
	require.True(t, ok)
	assert.Same(t, current, loaded[0])
	assert.False(t, current.Released())
	assert.NotContains(t, drainKinds(events.Drain()), EventChunkLoadFailed)
}

func TestCoordinatorDrainDoesNotBlock(t *testing.T) {
	src := newMapSource(t)
	src.gate = make(chan struct{})
	c, _, _ := newTestCoordinator(t, src, 0)
	c.Update(cp.Vector{})

	assert.Empty(t, c.Drain())
	close(src.gate)
	settleCoordinator(t, c)
}
