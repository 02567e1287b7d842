package tabular

import "strings"

// CleanCell removes spreadsheet artifacts from a cell value:
// surrounding whitespace, an Excel formula prefix (="...") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// ParseBool accepts true/false, yes/no, t/f, y/n, x and 1/0.
// ok is false for empty or unrecognised input.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(CleanCell(s)) {
	case "true", "t", "yes", "y", "x", "1", "1.0":
		return true, true
	case "false", "f", "no", "n", "0", "0.0":
		return false, true
	default:
		return false, false
	}
}
