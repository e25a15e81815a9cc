package telemetry

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SensorStats summarizes the buffered window for one present sensor. Null
// samples are excluded; Count is the number of numeric samples.
type SensorStats struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Unit   string  `json:"unit"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SeriesStats computes summary statistics over the current series window for
// every present sensor, in catalog order.
func (d *Decoder) SeriesStats() []SensorStats {
	bindings, byKey := d.AllSeries()

	out := make([]SensorStats, 0, len(bindings))
	for _, b := range bindings {
		vals := make([]float64, 0, len(byKey[b.Key]))
		for _, p := range byKey[b.Key] {
			if p.Value != nil {
				vals = append(vals, *p.Value)
			}
		}

		s := SensorStats{Key: b.Key, Label: b.Label, Unit: b.Unit, Count: len(vals)}
		if len(vals) > 0 {
			s.Mean = stat.Mean(vals, nil)
			s.Min = floats.Min(vals)
			s.Max = floats.Max(vals)
		}
		if len(vals) > 1 {
			s.StdDev = stat.StdDev(vals, nil)
		}
		out = append(out, s)
	}
	return out
}
