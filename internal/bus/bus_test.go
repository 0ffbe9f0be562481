package bus

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_DeliversToEverySubscriber(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	m := NewMemory()
	t.Cleanup(func() { _ = m.Close() })

	got := make(chan string, 2)
	for i := 0; i < 2; i++ {
		require.NoError(t, m.Subscribe("a", func(topic string, payload []byte) {
			got <- topic + ":" + string(payload)
		}))
	}
	require.NoError(t, m.Subscribe("b", func(string, []byte) {
		t.Error("unexpected delivery on topic b")
	}))

	// --- Act ---
	require.NoError(t, m.Publish(context.Background(), "a", []byte("hello")))

	// --- Assert ---
	for i := 0; i < 2; i++ {
		select {
		case msg := <-got:
			assert.Equal(t, "a:hello", msg)
		case <-time.After(2 * time.Second):
			t.Fatal("delivery did not arrive")
		}
	}
}

func TestMemory_HandlerOwnsItsCopy(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	t.Cleanup(func() { _ = m.Close() })

	got := make(chan []byte, 1)
	require.NoError(t, m.Subscribe("a", func(_ string, payload []byte) { got <- payload }))

	payload := []byte("abc")
	require.NoError(t, m.Publish(context.Background(), "a", payload))
	payload[0] = 'x'

	select {
	case p := <-got:
		assert.Equal(t, "abc", string(p))
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not arrive")
	}
}

func TestMemory_ClosedAndCancelled(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Publish(ctx, "a", nil), context.Canceled)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Publish(context.Background(), "a", nil), ErrClosed)
	require.ErrorIs(t, m.Subscribe("a", func(string, []byte) {}), ErrClosed)
}

func TestRelay_ForwardsBetweenClients(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a socket.io relay")
	}
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.NewContext(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	relayCtx, stop := context.WithCancel(ctx)
	relay := NewRelay(relayCtx, l.Addr().String())
	served := make(chan error, 1)
	go func() { served <- relay.Serve(relayCtx, l) }()
	t.Cleanup(func() {
		stop()
		<-served
	})

	url := "http://" + l.Addr().String() + DefaultRelayPath
	sender, err := DialSocketIO(ctx, SocketIOOptions{URL: url, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sender.Close() })
	receiver, err := DialSocketIO(ctx, SocketIOOptions{URL: url, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = receiver.Close() })

	got := make(chan string, 1)
	require.NoError(t, receiver.Subscribe("~/gazebo-utils/world_utils", func(_ string, payload []byte) {
		got <- string(payload)
	}))

	// --- Act ---
	require.NoError(t, sender.Publish(ctx, "~/gazebo-utils/world_utils", []byte(`{"id":1,"type":"PHYSICS"}`)))

	// --- Assert ---
	select {
	case msg := <-got:
		assert.JSONEq(t, `{"id":1,"type":"PHYSICS"}`, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not forward the event")
	}
}
