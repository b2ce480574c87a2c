package dispatcher

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer guards a bytes.Buffer shared with worker goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d, err := New(log)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d, out
}

func TestDispatchSync(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register(":GOAL:", func(e Event) (any, error) {
		got = e
		return "scored", nil
	})

	result, err := d.Dispatch(Event{Command: ":GOAL:", Payload: 42})
	require.NoError(t, err)
	assert.Equal(t, "scored", result)
	assert.Equal(t, 42, got.Payload)
	assert.False(t, got.Timestamp.IsZero())

	require.NoError(t, d.Publish(":GOAL:", 7))
	assert.Equal(t, 7, got.Payload)

	_, err = d.Dispatch(Event{Command: ":OFFSIDE:"})
	assert.ErrorContains(t, err, "unknown command")

	assert.True(t, d.HasHandler(":GOAL:"))
	assert.False(t, d.HasHandler(":OFFSIDE:"))
}

func TestBufferedKeepsOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var mu sync.Mutex
	var seen []int
	d.Register(":FRAME:", func(e Event) (any, error) {
		mu.Lock()
		seen = append(seen, e.Payload.(int))
		mu.Unlock()
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 20; i++ {
		result, err := d.Dispatch(Event{Command: ":FRAME:", Payload: i})
		require.NoError(t, err)
		assert.Equal(t, "queued", result)
	}
	d.Drain()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 20)
	for i, v := range seen {
		assert.Equal(t, i, v)
	}
}

func TestBufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	d.Register(":FOUL:", func(e Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil, nil
	}, Buffered(2))

	require.NoError(t, d.Publish(":FOUL:", 1))
	<-started
	require.NoError(t, d.Publish(":FOUL:", 2))
	require.NoError(t, d.Publish(":FOUL:", 3))
	assert.Equal(t, 2, d.QueueDepth())

	assert.ErrorContains(t, d.Publish(":FOUL:", 4), "queue full")
	close(release)
}

func TestBufferedBlockingWaitsForRoom(t *testing.T) {
	d, _ := newTestDispatcher(t)

	release := make(chan struct{})
	d.Register(":FRAME:", func(e Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(1), Blocking())

	require.NoError(t, d.Publish(":FRAME:", 1))
	require.NoError(t, d.Publish(":FRAME:", 2))

	done := make(chan struct{})
	go func() {
		d.Publish(":FRAME:", 3)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("dispatch returned with a full queue")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
}

func TestLoggedHandler(t *testing.T) {
	d, out := newTestDispatcher(t)

	d.Register(":START:", func(e Event) (any, error) { return "ok", nil }, Logged())
	d.Register(":END:", func(e Event) (any, error) { return nil, errors.New("disk full") }, Logged())

	require.NoError(t, d.Publish(":START:", []string{"Home", "Away"}))
	assert.ErrorContains(t, d.Publish(":END:", nil), "disk full")

	logs := out.String()
	assert.Contains(t, logs, "handling event")
	assert.Contains(t, logs, "payload=[]string")
	assert.Contains(t, logs, "event complete")
	assert.Contains(t, logs, "level=ERROR msg=\"event failed\" command=:END:")
}

func TestBufferedHandlerErrorIsLogged(t *testing.T) {
	d, out := newTestDispatcher(t)

	d.Register(":TELEMETRY:", func(e Event) (any, error) {
		return nil, errors.New("influx down")
	}, Buffered(10), Logged())

	require.NoError(t, d.Publish(":TELEMETRY:", nil))
	d.Drain()

	assert.Contains(t, out.String(), "buffered handler failed")
	assert.Contains(t, out.String(), "influx down")
}

func TestCloseDrainsQueues(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var handled atomic.Int32
	release := make(chan struct{})
	d.Register(":POSSESSION:", func(e Event) (any, error) {
		<-release
		handled.Add(1)
		return nil, nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Publish(":POSSESSION:", i))
	}

	close(release)
	d.Close()
	assert.Equal(t, int32(5), handled.Load())
	assert.Zero(t, d.QueueDepth())

	assert.ErrorIs(t, d.Publish(":POSSESSION:", 6), ErrClosed)
	d.Close()
}
