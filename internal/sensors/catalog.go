// Package sensors defines the static catalog of channels the decoder knows
// how to classify, and resolves display units from field names.
package sensors

import "strings"

// MatchKind selects how a rule's patterns are compared against a field name.
type MatchKind int

const (
	// MatchWord compares patterns against the field's base name (the part
	// before any parenthesized unit suffix), case-insensitively.
	MatchWord MatchKind = iota
	// MatchSubstring looks for the pattern anywhere in the field name,
	// case-insensitively.
	MatchSubstring
)

// Rule classifies a schema field name as a known sensor channel.
type Rule struct {
	Key      string
	Label    string
	Unit     string // default display unit when the field carries none
	Kind     MatchKind
	Patterns []string
}

// Catalog is the ordered rule set. Order matters twice: present sensors are
// reported in catalog order, and word rules for PM1/PM10 rely on exact base
// name comparison rather than prefix matching.
var Catalog = []Rule{
	{Key: "pm1", Label: "PM1", Unit: "µg/m³", Kind: MatchWord, Patterns: []string{"pm1", "pm1.0"}},
	{Key: "pm2.5", Label: "PM2.5", Unit: "µg/m³", Kind: MatchWord, Patterns: []string{"pm2.5", "pm25"}},
	{Key: "pm10", Label: "PM10", Unit: "µg/m³", Kind: MatchWord, Patterns: []string{"pm10"}},
	{Key: "no2", Label: "NO2", Unit: "ppb", Kind: MatchWord, Patterns: []string{"no2"}},
	{Key: "co", Label: "CO", Unit: "ppm", Kind: MatchWord, Patterns: []string{"co"}},
	{Key: "co2", Label: "CO2", Unit: "ppm", Kind: MatchWord, Patterns: []string{"co2"}},
	{Key: "tvoc", Label: "TVOC", Unit: "ppb", Kind: MatchSubstring, Patterns: []string{"tvoc", "voc"}},
	{Key: "humidity", Label: "Humidity", Unit: "%", Kind: MatchSubstring, Patterns: []string{"hum"}},
	{Key: "temperature", Label: "Temperature", Unit: "°C", Kind: MatchSubstring, Patterns: []string{"temp"}},
	{Key: "pressure", Label: "Pressure", Unit: "hPa", Kind: MatchSubstring, Patterns: []string{"pres"}},
	{Key: "ch4", Label: "Methane", Unit: "ppm", Kind: MatchWord, Patterns: []string{"ch4", "methane"}},
	{Key: "signal", Label: "Signal", Unit: "dBm", Kind: MatchSubstring, Patterns: []string{"signal", "rssi"}},
	{Key: "battery", Label: "Battery", Unit: "%", Kind: MatchSubstring, Patterns: []string{"bat"}},
}

// baseName strips a trailing parenthesized unit suffix and lowercases the
// remainder: "PM2.5(UGM3)" -> "pm2.5".
func baseName(field string) string {
	name := strings.TrimSpace(field)
	if i := strings.Index(name, "("); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// Matches reports whether the rule classifies the given field name.
func (r Rule) Matches(field string) bool {
	switch r.Kind {
	case MatchWord:
		base := baseName(field)
		for _, p := range r.Patterns {
			if base == p {
				return true
			}
		}
	case MatchSubstring:
		lower := strings.ToLower(field)
		for _, p := range r.Patterns {
			if strings.Contains(lower, p) {
				return true
			}
		}
	}
	return false
}

// Binding ties a catalog rule to the schema field it matched. When several
// fields match the same rule, the first in schema order wins.
type Binding struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Unit  string `json:"unit"`
	Field string `json:"field"`
}

// Bind resolves the set of present sensors for a schema, in catalog order.
func Bind(schema []string) []Binding {
	var bindings []Binding
	for _, rule := range Catalog {
		for _, field := range schema {
			if rule.Matches(field) {
				bindings = append(bindings, Binding{
					Key:   rule.Key,
					Label: rule.Label,
					Unit:  UnitFor(field, rule.Unit),
					Field: field,
				})
				break
			}
		}
	}
	return bindings
}
