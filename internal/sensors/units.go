package sensors

import "strings"

// unitDisplay maps the unit codes devices embed in field names to their
// display form. Unknown codes pass through verbatim.
var unitDisplay = map[string]string{
	"UGM3": "µg/m³",
	"HPA":  "hPa",
	"C":    "°C",
	"PPM":  "ppm",
	"PPB":  "ppb",
	"%":    "%",
}

// unitCode extracts the parenthesized suffix from a field name, if any:
// "TEMP(C)" -> "C". The comparison against the display table is
// case-insensitive on the code.
func unitCode(field string) (string, bool) {
	name := strings.TrimSpace(field)
	open := strings.Index(name, "(")
	if open < 0 {
		return "", false
	}
	end := strings.LastIndex(name, ")")
	if end <= open {
		return "", false
	}
	return strings.TrimSpace(name[open+1 : end]), true
}

// UnitFor resolves the display unit for a field name. A parenthesized suffix
// takes precedence over the fallback (normally the matching rule's default
// unit).
func UnitFor(field, fallback string) string {
	code, ok := unitCode(field)
	if !ok || code == "" {
		return fallback
	}
	if display, ok := unitDisplay[strings.ToUpper(code)]; ok {
		return display
	}
	return code
}
