package engine

// ringBuffer is a fixed-capacity float64 ring. Appends beyond capacity
// evict the oldest sample. The engine guards every ringBuffer with its
// own mutex; the type itself is not safe for concurrent use.
type ringBuffer struct {
	data  []float64
	start int
	size  int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{data: make([]float64, capacity)}
}

func (r *ringBuffer) Len() int {
	return r.size
}

func (r *ringBuffer) Cap() int {
	return len(r.data)
}

// Append adds v, evicting the oldest sample when full
func (r *ringBuffer) Append(v float64) {
	if len(r.data) == 0 {
		return
	}
	if r.size < len(r.data) {
		r.data[(r.start+r.size)%len(r.data)] = v
		r.size++
		return
	}
	r.data[r.start] = v
	r.start = (r.start + 1) % len(r.data)
}

// Snapshot returns an in-order copy of the buffered samples. The copy is
// what analysis workers operate on after the engine lock is released.
func (r *ringBuffer) Snapshot() []float64 {
	out := make([]float64, r.size)
	for i := range out {
		out[i] = r.data[(r.start+i)%len(r.data)]
	}
	return out
}

// Clear drops the contents, keeping the capacity
func (r *ringBuffer) Clear() {
	r.start = 0
	r.size = 0
}

// Resize reallocates the ring to the new capacity, discarding contents:
// a capacity change invalidates the sample/angle index alignment.
func (r *ringBuffer) Resize(capacity int) {
	r.data = make([]float64, capacity)
	r.start = 0
	r.size = 0
}
