// Package telemetry decodes the line-oriented, comma-delimited stream an
// air-quality sensor emits over its serial port. The device ships no
// out-of-band schema: the column layout is inferred from the first usable
// lines of the live stream, rows are decoded against it, and the results are
// held as a latest-value snapshot plus bounded per-sensor time series.
package telemetry

import "bytes"

// ScanLines is a bufio.SplitFunc that frames telemetry lines. Devices in the
// field terminate lines with LF, CR, or CRLF, sometimes mixed within one
// stream, so all three are treated as interchangeable. A trailing
// unterminated fragment is emitted once at EOF.
//
// Framing is invariant to how the byte stream was split into reads: a CR as
// the final byte of a read is held back until the next read shows whether an
// LF follows.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// CR: swallow a following LF if present.
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		// CR is the last byte buffered. At EOF it terminates the line;
		// otherwise wait for more data to see whether an LF follows.
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}

	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
