package debugapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/milk9111/tilenav/log"
	"github.com/milk9111/tilenav/world"
)

const (
	DefaultStreamInterval = 250 * time.Millisecond
	streamWriteTimeout    = 2 * time.Second
)

// Stream pushes navigator snapshots to websocket clients at a fixed
// interval, skipping intervals in which nothing new was published.
type Stream struct {
	source   SnapshotSource
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewStream(source SnapshotSource, interval time.Duration) *Stream {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &Stream{
		source:   source,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Stream) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("err", err).Warn("debug stream upgrade failed")
		return
	}
	defer conn.Close()

	// the client never sends anything; reading only notices it leaving
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// every publish stores a fresh snapshot, so pointer identity marks change
	var last *world.Snapshot
	for {
		if snap := s.source.Snapshot(); snap != nil && snap != last {
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				log.WithField("err", err).Debug("debug stream client dropped")
				return
			}
			last = snap
		}
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// ServeStream serves the stream on addr at /debug/stream until ctx is done.
func ServeStream(ctx context.Context, addr string, stream *Stream) {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/stream", stream.Handle)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	log.WithField("addr", addr).Info("debug stream listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithFields(log.Fields{"addr": addr, "err": err}).Warn("debug stream stopped")
	}
}
