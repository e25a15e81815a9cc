package telemetry

import (
	"math"
	"strconv"
	"strings"
)

// Point is one sample in a sensor's series. Value is nil when the device
// reported an empty or non-numeric value for the field.
type Point struct {
	Timestamp int64    `json:"t"`
	Value     *float64 `json:"v"`
}

// coerceValue turns a raw field string into its snapshot representation:
// float64 for parseable numbers, nil for empty or "N/A" sentinels and
// non-finite parses, and the trimmed original string otherwise.
func coerceValue(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "N/A") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// numericValue is the series-side coercion: anything that is not a finite
// number records as nil rather than failing the row.
func numericValue(raw string) *float64 {
	if v, ok := coerceValue(raw).(float64); ok {
		return &v
	}
	return nil
}

// series is a bounded FIFO of points backed by a ring buffer, so append and
// evict are O(1) regardless of the bound.
type series struct {
	buf   []Point
	start int
	count int
}

func newSeries(bound int) *series {
	return &series{buf: make([]Point, bound)}
}

func (s *series) append(p Point) {
	if s.count == len(s.buf) {
		// Full: overwrite the oldest point.
		s.buf[s.start] = p
		s.start = (s.start + 1) % len(s.buf)
		return
	}
	s.buf[(s.start+s.count)%len(s.buf)] = p
	s.count++
}

// points returns the buffered points oldest-first as a fresh slice.
func (s *series) points() []Point {
	out := make([]Point, s.count)
	for i := range out {
		out[i] = s.buf[(s.start+i)%len(s.buf)]
	}
	return out
}

// stringRing is a bounded FIFO of strings, used for the raw line log.
type stringRing struct {
	buf   []string
	start int
	count int
}

func newStringRing(bound int) *stringRing {
	return &stringRing{buf: make([]string, bound)}
}

func (r *stringRing) append(s string) {
	if r.count == len(r.buf) {
		r.buf[r.start] = s
		r.start = (r.start + 1) % len(r.buf)
		return
	}
	r.buf[(r.start+r.count)%len(r.buf)] = s
	r.count++
}

func (r *stringRing) strings() []string {
	out := make([]string, r.count)
	for i := range out {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
