package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue()

	var order []int
	for i := 1; i <= 3; i++ {
		require.True(t, q.Enqueue(task{fn: func() { order = append(order, i) }}))
	}
	assert.Equal(t, 3, q.Len())

	for {
		tk, ok := q.TryDequeue()
		if !ok {
			break
		}
		tk.fn()
	}
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, q.Len())
}

func TestTaskQueue_TryDequeue_Empty(t *testing.T) {
	q := newTaskQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestTaskQueue_CloseRejectsEnqueue(t *testing.T) {
	q := newTaskQueue()
	q.Close()
	q.Close() // idempotent

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(task{fn: func() {}}))

	_, ok := <-q.Wait()
	assert.False(t, ok, "signal channel should be closed")
}
