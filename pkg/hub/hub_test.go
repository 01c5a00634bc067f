package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newClient(h *Hub, buf int) *Client {
	return &Client{hub: h, send: make(chan Message, buf)}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc, chan struct{}) {
	t.Helper()
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	return h, cancel, done
}

func TestBroadcastReachesClients(t *testing.T) {
	h, cancel, done := startHub(t)
	defer func() { cancel(); <-done }()

	a, b := newClient(h, 4), newClient(h, 4)
	require.True(t, h.join(a))
	require.True(t, h.join(b))
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]string{"hello": "world"}))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			assert.Equal(t, JSONMessage, msg.Type)
			assert.JSONEq(t, `{"hello":"world"}`, string(msg.Data))
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	h, cancel, done := startHub(t)
	defer func() { cancel(); <-done }()

	slow := newClient(h, 1)
	require.True(t, h.join(slow))

	h.Broadcast(NewBinaryMessage([]byte{1}))
	h.Broadcast(NewBinaryMessage([]byte{2}))

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
	msg, ok := <-slow.send
	require.True(t, ok)
	assert.Equal(t, []byte{1}, msg.Data)
	_, ok = <-slow.send
	assert.False(t, ok, "send channel should be closed")
}

func TestLeaveClosesSend(t *testing.T) {
	h, cancel, done := startHub(t)
	defer func() { cancel(); <-done }()

	c := newClient(h, 1)
	require.True(t, h.join(c))
	h.leave(c)

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount())
}

func TestRunStopsWithContext(t *testing.T) {
	h, cancel, done := startHub(t)

	c := newClient(h, 1)
	require.True(t, h.join(c))

	cancel()
	<-done

	assert.False(t, h.IsRunning())
	_, ok := <-c.send
	assert.False(t, ok, "clients are disconnected on stop")

	assert.False(t, h.join(newClient(h, 1)), "join after stop must not block")
	h.leave(c)
}

func TestBroadcastWithoutRunDoesNotBlock(t *testing.T) {
	h := New("idle", nil)
	for range 300 {
		h.Broadcast(NewJSONMessage([]byte(`{}`)))
	}
	assert.Len(t, h.broadcast, cap(h.broadcast))
}
