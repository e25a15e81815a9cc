// Package export renders decoder state as CSV tables: comma delimited, CRLF
// row terminators, double-quote escaping, and a UTF-8 byte-order mark so
// spreadsheet tools pick up the encoding.
package export

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/airsense.report/internal/sensors"
	"github.com/banshee-data/airsense.report/internal/telemetry"
)

// ErrNoData is returned when there is nothing to export. Callers surface it
// to the user instead of producing an empty table.
var ErrNoData = errors.New("no data to export")

const (
	bom           = "\ufeff"
	rowTerminator = "\r\n"

	// timeLayout renders a local ISO-8601-like instant with a numeric UTC
	// offset, e.g. 2025-09-22T14:07:03.123-06:00.
	timeLayout = "2006-01-02T15:04:05.000-07:00"
)

// quoteCell applies standard CSV quoting: cells containing a comma, quote, or
// newline are wrapped in quotes with embedded quotes doubled.
func quoteCell(cell string) string {
	if strings.ContainsAny(cell, ",\"\r\n") {
		return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
	}
	return cell
}

func writeRow(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(quoteCell(c))
	}
	b.WriteString(rowTerminator)
}

// RawLog renders the raw line log as a single-column table.
func RawLog(lines []string) (string, error) {
	if len(lines) == 0 {
		return "", ErrNoData
	}

	var b strings.Builder
	b.WriteString(bom)
	writeRow(&b, []string{"Line"})
	for _, line := range lines {
		writeRow(&b, []string{line})
	}
	return b.String(), nil
}

// Series renders a wide table: one row per distinct timestamp across all
// present sensors (ascending), one column per sensor labeled "Label (unit)",
// empty cells where a sensor has no point at that exact timestamp.
func Series(bindings []sensors.Binding, byKey map[string][]telemetry.Point) (string, error) {
	total := 0
	for _, b := range bindings {
		total += len(byKey[b.Key])
	}
	if len(bindings) == 0 || total == 0 {
		return "", ErrNoData
	}

	// Union of timestamps, ascending.
	seen := make(map[int64]bool)
	var timestamps []int64
	for _, b := range bindings {
		for _, p := range byKey[b.Key] {
			if !seen[p.Timestamp] {
				seen[p.Timestamp] = true
				timestamps = append(timestamps, p.Timestamp)
			}
		}
	}
	slices.Sort(timestamps)

	// Per-sensor timestamp index. Later points win on duplicate timestamps,
	// matching snapshot last-write-wins semantics.
	indexes := make([]map[int64]*float64, len(bindings))
	for i, b := range bindings {
		idx := make(map[int64]*float64, len(byKey[b.Key]))
		for _, p := range byKey[b.Key] {
			idx[p.Timestamp] = p.Value
		}
		indexes[i] = idx
	}

	var b strings.Builder
	b.WriteString(bom)

	header := make([]string, 0, len(bindings)+1)
	header = append(header, "Time")
	for _, bind := range bindings {
		header = append(header, bind.Label+" ("+bind.Unit+")")
	}
	writeRow(&b, header)

	row := make([]string, len(bindings)+1)
	for _, ts := range timestamps {
		row[0] = time.UnixMilli(ts).Format(timeLayout)
		for i := range bindings {
			row[i+1] = ""
			if v, ok := indexes[i][ts]; ok && v != nil {
				row[i+1] = strconv.FormatFloat(*v, 'f', -1, 64)
			}
		}
		writeRow(&b, row)
	}
	return b.String(), nil
}
