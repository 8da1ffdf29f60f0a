package statsd

import (
	"sync"
	"time"
)

// Point is one metric captured by Recorder.
type Point struct {
	Kind  string // "count" or "timing"
	Name  string
	Value float64
	Tags  map[string]string
}

// Recorder is an in-memory Sink for tests and local debugging.
type Recorder struct {
	mu     sync.Mutex
	points []Point
}

var _ Sink = (*Recorder)(nil)

func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.add(Point{Kind: "count", Name: name, Value: float64(value), Tags: tags})
}

func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	r.add(Point{Kind: "timing", Name: name, Value: float64(value) / float64(time.Millisecond), Tags: tags})
}

// Points returns a copy of everything recorded so far.
func (r *Recorder) Points() []Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Point(nil), r.points...)
}

// Counts returns recorded counters named name.
func (r *Recorder) Counts(name string) []Point {
	var out []Point
	for _, p := range r.Points() {
		if p.Kind == "count" && p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

func (r *Recorder) add(p Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, p)
}
