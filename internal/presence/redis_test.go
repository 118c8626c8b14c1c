package presence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "presence:session:abc", sessionKey("abc"))
}

func TestNopTracker(t *testing.T) {
	var tr Tracker = Nop{}
	assert.NotPanics(t, func() {
		tr.SessionOpened("a")
		tr.Heartbeat("a")
		tr.SessionClosed("a")
	})
}

// Redis가 필요한 테스트는 REDIS_ADDR가 있을 때만 실행
func newTestManager(t *testing.T) *Manager {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	m, err := NewManager(addr, os.Getenv("REDIS_PASSWORD"), 0, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManagerLifecycle(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	id := uuid.NewString()

	m.SessionOpened(id)
	data, err := m.GetPresence(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, id, data.SessionID)

	assert.NoError(t, m.UpdateHeartbeat(ctx, id))

	m.SessionClosed(id)
	data, err = m.GetPresence(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Error(t, m.UpdateHeartbeat(ctx, id))
}

func TestCountLivePrunesExpired(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, m.SetPresence(ctx, id))
	before, err := m.CountLive(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, before, 1)

	require.NoError(t, m.client.Del(ctx, sessionKey(id)).Err())
	_, err = m.CountLive(ctx)
	require.NoError(t, err)
	isMember, err := m.client.SIsMember(ctx, sessionSetKey, id).Result()
	require.NoError(t, err)
	assert.False(t, isMember)
}
