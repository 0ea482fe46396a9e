package world

import "github.com/milk9111/tilenav/chunk"

// EventKind identifies navigator events.
type EventKind string

const (
	EventChunkMoved      EventKind = "chunk_moved"
	EventChunkLoaded     EventKind = "chunk_loaded"
	EventChunkLoadFailed EventKind = "chunk_load_failed"
	EventChunkUnloaded   EventKind = "chunk_unloaded"
	EventChunkReloaded   EventKind = "chunk_reloaded"
	EventGridRebuilt     EventKind = "grid_rebuilt"
	EventPathPlanned     EventKind = "path_planned"
	EventPathNotFound    EventKind = "path_not_found"
	EventAutoMoveStopped EventKind = "auto_move_stopped"
)

// Event is a navigator event payload.
type Event struct {
	Kind   EventKind
	Coord  chunk.Coord
	Detail string
	Err    error
}

// EventQueue is a simple FIFO queue.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}
