package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBufferAppendAndSnapshot(t *testing.T) {
	rb := newRingBuffer(4)
	assert.Equal(t, 0, rb.Len())
	assert.Equal(t, 4, rb.Cap())

	for _, v := range []float64{1, 2, 3} {
		rb.Append(v)
	}

	assert.Equal(t, 3, rb.Len())
	assert.Equal(t, []float64{1, 2, 3}, rb.Snapshot())
}

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := newRingBuffer(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		rb.Append(v)
	}

	assert.Equal(t, 3, rb.Len())
	assert.Equal(t, []float64{3, 4, 5}, rb.Snapshot())
}

func TestRingBufferSnapshotIsACopy(t *testing.T) {
	rb := newRingBuffer(2)
	rb.Append(1)
	rb.Append(2)

	snap := rb.Snapshot()
	rb.Append(3)

	assert.Equal(t, []float64{1, 2}, snap)
	assert.Equal(t, []float64{2, 3}, rb.Snapshot())
}

func TestRingBufferClear(t *testing.T) {
	rb := newRingBuffer(3)
	rb.Append(1)
	rb.Append(2)

	rb.Clear()

	assert.Equal(t, 0, rb.Len())
	assert.Equal(t, 3, rb.Cap())
	assert.Empty(t, rb.Snapshot())
}

func TestRingBufferResizeDropsContents(t *testing.T) {
	rb := newRingBuffer(3)
	rb.Append(1)
	rb.Append(2)

	rb.Resize(5)

	assert.Equal(t, 0, rb.Len())
	assert.Equal(t, 5, rb.Cap())
}

func TestRingBufferZeroCapacity(t *testing.T) {
	rb := newRingBuffer(0)
	rb.Append(1)
	assert.Equal(t, 0, rb.Len())
	assert.Empty(t, rb.Snapshot())
}
