package telemetry

import "strings"

// Delimiter separates fields on the wire and in user-supplied schema strings.
const Delimiter = ","

// DefaultSchema is the factory column layout adopted when a device sends data
// rows without ever sending a textual header.
var DefaultSchema = []string{
	"DeviceId",
	"PM1(UGM3)",
	"PM2.5(UGM3)",
	"PM10(UGM3)",
	"NO2(PPB)",
	"CO(PPM)",
	"HUM(%)",
	"TEMP(C)",
	"PRES(HPA)",
	"LAT",
	"LON",
	"BATTERY(%)",
	"DATE",
	"TIME",
}

// splitFields tokenizes a delimited line, trimming whitespace per token.
func splitFields(line string) []string {
	parts := strings.Split(line, Delimiter)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func hasDelimiter(line string) bool {
	return strings.Contains(line, Delimiter)
}

func hasAlpha(line string) bool {
	for _, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// numericCharset reports whether the line consists only of the characters a
// headerless data row may contain: digits, spaces, and ". , : -".
func numericCharset(line string) bool {
	for _, r := range line {
		switch {
		case r >= '0' && r <= '9':
		case r == ' ' || r == '.' || r == ',' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}

// lineClass is the outcome of classifying one line while no schema is set.
type lineClass int

const (
	// classNoise: the line cannot set a schema and is discarded.
	classNoise lineClass = iota
	// classHeader: a textual header line; its tokens become the schema.
	classHeader
	// classDefaultCandidate: a headerless data row that may adopt the
	// default schema if its arity matches.
	classDefaultCandidate
)

// classifyLine implements the schema detection transition table. It is only
// consulted while the schema is unset.
func classifyLine(line string) lineClass {
	if !hasDelimiter(line) {
		return classNoise
	}
	if hasAlpha(line) {
		return classHeader
	}
	if numericCharset(line) {
		return classDefaultCandidate
	}
	return classNoise
}
