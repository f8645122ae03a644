package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facepipe/internal/log"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return h, cancel
}

func recv(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case m, ok := <-ch:
		require.True(t, ok, "channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
	return Message{}
}

func TestHub_FanOut(t *testing.T) {
	h, _ := runHub(t)

	a, unsubA := h.Subscribe(4)
	b, unsubB := h.Subscribe(4)
	defer unsubA()
	defer unsubB()

	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n":1}`, string(recv(t, a).Data))
	assert.JSONEq(t, `{"n":1}`, string(recv(t, b).Data))

	h.BroadcastBinary([]byte{0xff, 0xd8})
	m := recv(t, a)
	assert.Equal(t, BinaryMessage, m.Type)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h, _ := runHub(t)

	ch, unsub := h.Subscribe(1)
	unsub()
	unsub()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := runHub(t)

	ch, unsub := h.Subscribe(1)
	defer unsub()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})

	require.Eventually(t, func() bool { return h.Stats().SlowClients == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, h.ClientCount())

	// The buffered message is still readable, then the channel is closed.
	<-ch
	_, ok := <-ch
	assert.False(t, ok)
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	h, cancel := runHub(t)

	ch, _ := h.Subscribe(1)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscriber not closed on stop")
	}

	require.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, time.Millisecond)

	late, unsub := h.Subscribe(1)
	unsub()
	_, ok := <-late
	assert.False(t, ok, "subscribing to a stopped hub yields a closed channel")
}

func TestLatestFrame(t *testing.T) {
	text := func(s string) Message { return NewJSONMessage([]byte(s)) }
	frame := func(s string) Message { return NewBinaryMessage([]byte(s)) }

	tests := []struct {
		name    string
		in      []Message
		want    []string
		skipped uint64
	}{
		{"single frame", []Message{frame("f1")}, []string{"f1"}, 0},
		{"text only", []Message{text("a"), text("b")}, []string{"a", "b"}, 0},
		{"frames collapse", []Message{frame("f1"), frame("f2"), frame("f3")}, []string{"f3"}, 2},
		{"text kept in order", []Message{frame("f1"), text("a"), frame("f2"), text("b")}, []string{"a", "f2", "b"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var skipped uint64
			got := latestFrame(tt.in, &skipped)
			var data []string
			for _, m := range got {
				data = append(data, string(m.Data))
			}
			assert.Equal(t, tt.want, data)
			assert.Equal(t, tt.skipped, skipped)
		})
	}
}
