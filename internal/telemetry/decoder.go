package telemetry

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/airsense.report/internal/sensors"
	"github.com/banshee-data/airsense.report/internal/timeutil"
)

const (
	// DefaultSeriesBound caps each sensor's buffered history.
	DefaultSeriesBound = 600
	// DefaultRawLogBound caps the raw line log.
	DefaultRawLogBound = 2000
)

// Decoder owns all decoded state for one device session. Ingest is the single
// mutation entry point; every reader gets a point-in-time copy taken under
// the same lock, so a row's effect on snapshot and series is observed all or
// nothing.
type Decoder struct {
	mu        sync.RWMutex
	clock     timeutil.Clock
	sessionID string

	seriesBound int
	rawLogBound int

	schema   []string // nil while no schema is set
	bindings []sensors.Binding
	snapshot map[string]any
	series   map[string]*series
	raw      *stringRing

	linesTotal   uint64
	rowsDecoded  uint64
	rowsRejected uint64
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithClock substitutes the clock used for arrival-time fallback.
func WithClock(c timeutil.Clock) Option {
	return func(d *Decoder) { d.clock = c }
}

// WithSeriesBound overrides the per-sensor history bound.
func WithSeriesBound(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.seriesBound = n
		}
	}
}

// WithRawLogBound overrides the raw log bound.
func WithRawLogBound(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.rawLogBound = n
		}
	}
}

// NewDecoder creates a Decoder with no schema set.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		clock:       timeutil.RealClock{},
		sessionID:   uuid.NewString(),
		seriesBound: DefaultSeriesBound,
		rawLogBound: DefaultRawLogBound,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.raw = newStringRing(d.rawLogBound)
	return d
}

// SessionID identifies this decoder instance.
func (d *Decoder) SessionID() string { return d.sessionID }

// Ingest processes one framed line from the device. Lines are expected in
// arrival order; callers must not ingest concurrently from multiple
// goroutines, since snapshot semantics are last-write-wins and series
// chronology follows arrival order.
func (d *Decoder) Ingest(line string) {
	if line == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.linesTotal++
	d.raw.append(line)

	if d.schema == nil {
		switch classifyLine(line) {
		case classHeader:
			d.setSchemaLocked(splitFields(line))
		case classDefaultCandidate:
			tokens := splitFields(line)
			if len(tokens) == len(DefaultSchema) {
				d.setSchemaLocked(slices.Clone(DefaultSchema))
				// The row that triggered adoption is itself data.
				d.decodeLocked(tokens)
			} else {
				log.Printf("telemetry: discarding %d-field candidate row, default schema has %d", len(tokens), len(DefaultSchema))
			}
		}
		return
	}

	d.decodeLocked(splitFields(line))
}

// AssumeDefaultSchema adopts the built-in schema immediately, clearing all
// decoded state.
func (d *Decoder) AssumeDefaultSchema() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setSchemaLocked(slices.Clone(DefaultSchema))
}

// SetCustomSchema parses a user-supplied delimited field list and adopts it,
// clearing all decoded state.
func (d *Decoder) SetCustomSchema(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return fmt.Errorf("empty schema")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setSchemaLocked(splitFields(spec))
	return nil
}

// setSchemaLocked replaces the schema and wipes snapshot and series, even for
// field names unchanged between old and new schema. The raw log survives.
func (d *Decoder) setSchemaLocked(schema []string) {
	d.schema = schema
	d.bindings = sensors.Bind(schema)
	d.snapshot = make(map[string]any, len(schema))
	d.series = make(map[string]*series, len(d.bindings))
	for _, b := range d.bindings {
		d.series[b.Key] = newSeries(d.seriesBound)
	}
}

// decodeLocked applies one tokenized row to the stores. Arity mismatches are
// rejected whole: no partial snapshot or series update ever lands.
func (d *Decoder) decodeLocked(tokens []string) {
	if len(tokens) != len(d.schema) {
		d.rowsRejected++
		log.Printf("telemetry: rejecting row with %d fields, schema has %d", len(tokens), len(d.schema))
		return
	}

	fields := make(map[string]string, len(tokens))
	for i, name := range d.schema {
		fields[name] = tokens[i]
	}

	ts := resolveTimestamp(fields, d.clock)

	snapshot := make(map[string]any, len(d.schema))
	for name, raw := range fields {
		snapshot[name] = coerceValue(raw)
	}
	d.snapshot = snapshot

	for _, b := range d.bindings {
		d.series[b.Key].append(Point{Timestamp: ts, Value: numericValue(fields[b.Field])})
	}

	d.rowsDecoded++
}

// CurrentSchema returns a copy of the active schema, or nil when unset.
func (d *Decoder) CurrentSchema() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.schema)
}

// Snapshot returns a point-in-time copy of the latest coerced value per
// schema field. Values are float64, string, or nil.
func (d *Decoder) Snapshot() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]any, len(d.snapshot))
	for k, v := range d.snapshot {
		out[k] = v
	}
	return out
}

// Series returns a point-in-time copy of the buffered history for one sensor
// key, oldest first. Unknown or absent sensors yield an empty slice.
func (d *Decoder) Series(key string) []Point {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := d.series[key]; ok {
		return s.points()
	}
	return []Point{}
}

// PresentSensors returns the catalog sensors represented in the current
// schema, in catalog order.
func (d *Decoder) PresentSensors() []sensors.Binding {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.bindings)
}

// RawLog returns a copy of the bounded raw line log, oldest first.
func (d *Decoder) RawLog() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.raw.strings()
}

// Counters reports lifetime ingest counters for health reporting.
func (d *Decoder) Counters() (linesTotal, rowsDecoded, rowsRejected uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.linesTotal, d.rowsDecoded, d.rowsRejected
}

// AllSeries returns every present sensor and a copy of its series under one
// lock acquisition, so export tables and stats are internally consistent.
func (d *Decoder) AllSeries() ([]sensors.Binding, map[string][]Point) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	bindings := slices.Clone(d.bindings)
	out := make(map[string][]Point, len(bindings))
	for _, b := range bindings {
		out[b.Key] = d.series[b.Key].points()
	}
	return bindings, out
}
