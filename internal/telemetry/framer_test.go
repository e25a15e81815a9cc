package telemetry

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// chunkReader returns at most chunk bytes per Read call, forcing the scanner
// to see the stream split at every possible boundary.
type chunkReader struct {
	data  []byte
	chunk int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.chunk
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func scanAll(t *testing.T, r io.Reader) []string {
	t.Helper()
	scan := bufio.NewScanner(r)
	scan.Split(ScanLines)
	var lines []string
	for scan.Scan() {
		lines = append(lines, scan.Text())
	}
	if err := scan.Err(); err != nil {
		t.Fatalf("scan error: %v", err)
	}
	return lines
}

func TestScanLinesTerminators(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lf", "a\nb\nc\n", []string{"a", "b", "c"}},
		{"cr", "a\rb\rc\r", []string{"a", "b", "c"}},
		{"crlf", "a\r\nb\r\nc\r\n", []string{"a", "b", "c"}},
		{"mixed", "a\nb\rc\r\nd\n", []string{"a", "b", "c", "d"}},
		{"trailing remainder", "a\nb", []string{"a", "b"}},
		{"lone line no terminator", "abc", []string{"abc"}},
		{"empty lines preserved", "a\n\nb\n", []string{"a", "", "b"}},
		{"crlf not doubled", "a\r\n\r\nb\r\n", []string{"a", "", "b"}},
		{"empty input", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scanAll(t, strings.NewReader(tt.input))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// The framed line sequence must be invariant to how the byte stream was
// split into reads, including a CRLF straddling a read boundary.
func TestScanLinesChunkInvariance(t *testing.T) {
	input := "DeviceId,PM1(UGM3)\r\nD1,12.3\nD1,13.1\rD1,14.0\r\npartial"
	want := scanAll(t, strings.NewReader(input))

	for chunk := 1; chunk <= len(input); chunk++ {
		got := scanAll(t, &chunkReader{data: []byte(input), chunk: chunk})
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("chunk size %d framed differently (-want +got):\n%s", chunk, diff)
		}
	}
}

// Mixed terminators frame identically to the all-LF equivalent stream.
func TestScanLinesMixedMatchesAllLF(t *testing.T) {
	mixed := "a,1\r\nb,2\rc,3\nd,4\r\n"
	allLF := "a,1\nb,2\nc,3\nd,4\n"

	got := scanAll(t, strings.NewReader(mixed))
	want := scanAll(t, strings.NewReader(allLF))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mixed terminators framed differently from all-LF (-want +got):\n%s", diff)
	}
}
