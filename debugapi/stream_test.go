package debugapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/tilenav/world"
)

func dialStream(t *testing.T, source SnapshotSource) *websocket.Conn {
	t.Helper()
	stream := NewStream(source, 10*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(stream.Handle))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		t.Cleanup(func() { resp.Body.Close() })
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	return conn
}

func TestStreamSendsSnapshot(t *testing.T) {
	n, _ := newSampleNavigator(t)
	conn := dialStream(t, n)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var snap world.Snapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	assert.Equal(t, "idle", snap.State)
	require.NotNil(t, snap.Grid)
	assert.Len(t, snap.Loaded, 9)
}

func TestStreamSkipsUnchangedTicks(t *testing.T) {
	conn := dialStream(t, fixedSource{snap: &world.Snapshot{Tick: 7, State: "idle"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "an unchanged snapshot was sent twice")
}

type swapSource struct {
	snap atomic.Pointer[world.Snapshot]
}

func (s *swapSource) Snapshot() *world.Snapshot {
	return s.snap.Load()
}

func TestStreamSendsRepublishWithinTick(t *testing.T) {
	src := &swapSource{}
	src.snap.Store(&world.Snapshot{Tick: 3, State: "idle"})
	conn := dialStream(t, src)

	var first world.Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "idle", first.State)

	// a plan publishes again before the next tick
	src.snap.Store(&world.Snapshot{Tick: 3, State: "following"})

	var second world.Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, uint64(3), second.Tick)
	assert.Equal(t, "following", second.State)
}

func TestNewStreamDefaultsInterval(t *testing.T) {
	assert.Equal(t, DefaultStreamInterval, NewStream(fixedSource{}, 0).interval)
}
