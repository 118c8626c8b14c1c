package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-editor/internal/hub/hubtest"
)

type recordingObserver struct {
	mu     sync.Mutex
	opened []string
	closed []string
}

func (o *recordingObserver) SessionOpened(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, id)
}

func (o *recordingObserver) SessionClosed(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = append(o.closed, id)
}

func TestConnectAssignsRandomIDs(t *testing.T) {
	r := NewRegistry(time.Second)
	a := r.Connect(hubtest.NewConn())
	b := r.Connect(hubtest.NewConn())

	assert.NotEqual(t, a.ID, b.ID)
	_, err := uuid.Parse(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, StateOpen, a.State())
	assert.Equal(t, 2, r.Len())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRegistry(time.Second)
	r.AddObserver(obs)

	conn := hubtest.NewConn()
	s := r.Connect(conn)

	assert.True(t, r.Disconnect(conn))
	assert.False(t, r.Disconnect(conn))
	assert.False(t, r.Disconnect(hubtest.NewConn()))

	assert.Equal(t, StateClosed, s.State())
	assert.True(t, conn.Closed())
	assert.Zero(t, r.Len())
	assert.Equal(t, []string{s.ID}, obs.opened)
	assert.Equal(t, []string{s.ID}, obs.closed)
}

func TestLookup(t *testing.T) {
	r := NewRegistry(time.Second)
	conn := hubtest.NewConn()
	s := r.Connect(conn)

	got, ok := r.Lookup(conn)
	require.True(t, ok)
	assert.Same(t, s, got)

	r.Disconnect(conn)
	_, ok = r.Lookup(conn)
	assert.False(t, ok)
}

func TestConcurrentConnectDisconnect(t *testing.T) {
	r := NewRegistry(time.Second)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := hubtest.NewConn()
			r.Connect(conn)
			r.ForEachLive(func(*Session) error { return nil })
			r.Disconnect(conn)
		}()
	}
	wg.Wait()
	assert.Zero(t, r.Len())
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := NewRegistry(time.Second)
	d := NewDispatcher(r, nil)

	connA, connB, connC := hubtest.NewConn(), hubtest.NewConn(), hubtest.NewConn()
	a := r.Connect(connA)
	r.Connect(connB)
	r.Connect(connC)

	n := d.Broadcast(map[string]any{"event": "shape_updated"}, a)
	assert.Equal(t, 2, n)

	assert.Empty(t, connA.Frames())
	for _, c := range []*hubtest.Conn{connB, connC} {
		frames := c.Frames()
		require.Len(t, frames, 1)
		assert.Equal(t, "shape_updated", frames[0].Event()["event"])
	}
}

func TestBroadcastToAll(t *testing.T) {
	r := NewRegistry(time.Second)
	d := NewDispatcher(r, nil)
	conns := []*hubtest.Conn{hubtest.NewConn(), hubtest.NewConn()}
	for _, c := range conns {
		r.Connect(c)
	}

	assert.Equal(t, 2, d.Broadcast(map[string]any{"event": "page_state_synced"}, nil, []byte("blob")))
	for _, c := range conns {
		frames := c.Frames()
		require.Len(t, frames, 1)
		assert.Equal(t, [][]byte{[]byte("blob")}, frames[0].Blobs)
	}
}

func TestDeadPeerIsolation(t *testing.T) {
	r := NewRegistry(time.Second)
	d := NewDispatcher(r, nil)

	connA, connB, connC := hubtest.NewConn(), hubtest.NewConn(), hubtest.NewConn()
	r.Connect(connA)
	b := r.Connect(connB)
	r.Connect(connC)
	connB.FailWrites(errors.New("broken pipe"))

	n := d.Broadcast(map[string]any{"event": "page_state_synced"}, nil)
	assert.Equal(t, 2, n)

	assert.Len(t, connA.Frames(), 1)
	assert.Len(t, connC.Frames(), 1)
	_, ok := r.Lookup(connB)
	assert.False(t, ok)
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, connB.Closed())
	assert.Equal(t, 2, r.Len())
}

// deliveryCounter records how many frames the healthy peers held when a
// failed peer was reported closed.
type deliveryCounter struct {
	peers []*hubtest.Conn
	seen  []int
}

func (d *deliveryCounter) SessionOpened(string) {}

func (d *deliveryCounter) SessionClosed(string) {
	n := 0
	for _, c := range d.peers {
		n += len(c.Frames())
	}
	d.seen = append(d.seen, n)
}

func TestDisconnectObserversRunAfterBroadcast(t *testing.T) {
	r := NewRegistry(time.Second)
	d := NewDispatcher(r, nil)

	connA, connB, connC, connD := hubtest.NewConn(), hubtest.NewConn(), hubtest.NewConn(), hubtest.NewConn()
	counter := &deliveryCounter{peers: []*hubtest.Conn{connA, connC}}
	r.AddObserver(counter)
	r.Connect(connA)
	r.Connect(connB)
	r.Connect(connC)
	r.Connect(connD)
	connB.FailWrites(errors.New("broken pipe"))
	connD.FailWrites(errors.New("broken pipe"))

	assert.Equal(t, 2, d.Broadcast(map[string]any{"event": "shape_updated"}, nil))
	assert.Equal(t, []int{2, 2}, counter.seen)
	assert.Equal(t, 2, r.Len())
}

func TestSendToFailureDisconnects(t *testing.T) {
	r := NewRegistry(time.Second)
	d := NewDispatcher(r, nil)
	conn := hubtest.NewConn()
	s := r.Connect(conn)
	conn.FailWrites(errors.New("reset by peer"))

	err := d.SendTo(s, map[string]any{"event": "pong"})
	var tf *TransportFailure
	require.ErrorAs(t, err, &tf)
	assert.Equal(t, s.ID, tf.SessionID)
	assert.Zero(t, r.Len())
}

func TestForEachLiveSkipsClosedSessions(t *testing.T) {
	r := NewRegistry(time.Second)
	connA, connB := hubtest.NewConn(), hubtest.NewConn()
	r.Connect(connA)
	r.Connect(connB)

	visited := 0
	r.ForEachLive(func(s *Session) error {
		visited++
		// closing the other peer mid-iteration must not break the loop
		r.Disconnect(connA)
		r.Disconnect(connB)
		return nil
	})
	assert.Equal(t, 1, visited)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestSendAfterCloseFails(t *testing.T) {
	r := NewRegistry(time.Second)
	conn := hubtest.NewConn()
	s := r.Connect(conn)
	r.Disconnect(conn)

	err := s.Send([]byte("x"))
	assert.ErrorIs(t, err, ErrSessionClosed)
}
