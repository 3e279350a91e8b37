package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PutGetRoundTrip(t *testing.T) {
	q := NewQueue[int](4)
	q.Put(1)
	q.Put(2)

	assert.Equal(t, 1, q.Get())
	assert.Equal(t, 2, q.Get())
}

func TestQueue_TryGetEmptyReturnsFalse(t *testing.T) {
	q := NewQueue[int](4)
	_, ok := q.TryGet()
	assert.False(t, ok)
}

func TestQueue_TryPutFullTimesOut(t *testing.T) {
	q := NewQueue[int](1)
	q.Put(1)

	ok := q.TryPut(2, 20*time.Millisecond)
	assert.False(t, ok)
}

func TestQueue_FillAndDrainUnblocksStuckPut(t *testing.T) {
	q := NewQueue[int](2)
	q.Put(1)
	q.Put(2) // queue now full

	blockedPut := make(chan struct{})
	go func() {
		q.Put(3) // would block forever without FillAndDrain unblocking a Get
		close(blockedPut)
	}()

	time.Sleep(10 * time.Millisecond)
	q.FillAndDrain(-1)

	select {
	case <-blockedPut:
	case <-time.After(time.Second):
		t.Fatal("Put did not unblock after FillAndDrain")
	}
}

func TestQueue_DefaultsMaxSizeWhenNonPositive(t *testing.T) {
	q := NewQueue[int](0)
	require.Equal(t, defaultMaxSize, q.maxSize)
}
