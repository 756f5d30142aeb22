package memory

// ring is a fixed-capacity FIFO that evicts the oldest record on overflow.
type ring struct {
	buf   []Record
	start int
	n     int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]Record, capacity)}
}

func (r *ring) push(rec Record) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = rec
		r.n++
		return
	}
	r.buf[r.start] = rec
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) len() int {
	return r.n
}

// last returns up to n newest records, oldest -> newest. n <= 0 means all.
func (r *ring) last(n int) []Record {
	if n <= 0 || n > r.n {
		n = r.n
	}
	out := make([]Record, 0, n)
	for i := r.n - n; i < r.n; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}
