package telemetry

import (
	"sync"
	"time"
)

// Observation is a sample stamped by the Window that stored it.
type Observation struct {
	Seq    uint64    `json:"seq"`
	Time   time.Time `json:"time"`
	Sample Sample    `json:"sample"`
}

// Window is a bounded buffer of recent observations owned by one consumer
// (a display, the HTTP API). Sequence numbers come from the window's own
// counter and are unique only within that window.
type Window struct {
	mu       sync.Mutex
	buf      []Observation
	next     int
	full     bool
	seq      uint64
	capacity int
}

// NewWindow returns a window holding at most capacity observations. A
// capacity below one is treated as one.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]Observation, capacity), capacity: capacity}
}

// Add stores s, evicting the oldest observation when the window is full.
func (w *Window) Add(at time.Time, s Sample) Observation {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	obs := Observation{Seq: w.seq, Time: at, Sample: s}
	w.buf[w.next] = obs
	w.next = (w.next + 1) % w.capacity
	if w.next == 0 {
		w.full = true
	}
	return obs
}

// Len returns the number of stored observations.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.full {
		return w.capacity
	}
	return w.next
}

// Observations returns the stored observations, oldest first.
func (w *Window) Observations() []Observation {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.full {
		out := make([]Observation, w.next)
		copy(out, w.buf[:w.next])
		return out
	}
	out := make([]Observation, 0, w.capacity)
	out = append(out, w.buf[w.next:]...)
	out = append(out, w.buf[:w.next]...)
	return out
}

// Samples returns the stored samples, oldest first.
func (w *Window) Samples() []Sample {
	obs := w.Observations()
	out := make([]Sample, len(obs))
	for i, o := range obs {
		out[i] = o.Sample
	}
	return out
}
