package wireformat

import "strings"

// QuotedValue is a decoded quoted scalar found next to a field marker.
type QuotedValue struct {
	Quote byte
	Value string
	// Start is the offset of the opening quote, End the offset just past the closing one.
	Start int
	End   int
}

// ScanQuoted finds the first `'field':` or `"field":` marker in text that is
// immediately followed by a quoted scalar and returns the decoded value.
// Markers followed by anything else (objects, lists, bare words) are skipped.
func ScanQuoted(text, field string) (QuotedValue, bool) {
	offset := 0
	for {
		markerStart, valueStart, ok := findFieldMarker(text, field, offset)
		if !ok {
			return QuotedValue{}, false
		}
		if value, ok := scanQuotedAt(text, valueStart); ok {
			return value, true
		}
		offset = markerStart + 1
	}
}

// findFieldMarker locates a quoted key followed by optional whitespace and a
// colon. It returns the offset of the key's opening quote and the offset just
// past the colon.
func findFieldMarker(text, field string, from int) (int, int, bool) {
	if field == "" {
		return 0, 0, false
	}
	i := from
	for i < len(text) {
		idx := strings.Index(text[i:], field)
		if idx < 0 {
			return 0, 0, false
		}
		pos := i + idx
		i = pos + 1

		if pos == 0 || pos+len(field) >= len(text) {
			continue
		}
		quote := text[pos-1]
		if !isQuote(quote) || text[pos+len(field)] != quote {
			continue
		}
		colon := skipSpace(text, pos+len(field)+1)
		if colon >= len(text) || text[colon] != ':' {
			continue
		}
		return pos - 1, colon + 1, true
	}
	return 0, 0, false
}

// scanQuotedAt reads a quoted scalar starting at the first non-space byte at or
// after pos. Escaped delimiters and any other escaped byte are skipped over;
// an unterminated string does not match.
func scanQuotedAt(text string, pos int) (QuotedValue, bool) {
	start := skipSpace(text, pos)
	if start >= len(text) || !isQuote(text[start]) {
		return QuotedValue{}, false
	}
	quote := text[start]
	for k := start + 1; k < len(text); k++ {
		switch text[k] {
		case '\\':
			k++
		case quote:
			return QuotedValue{
				Quote: quote,
				Value: decodeEscapes(text[start+1:k], quote),
				Start: start,
				End:   k + 1,
			}, true
		}
	}
	return QuotedValue{}, false
}

// decodeEscapes turns `\n` into a line break and `\<quote>` into the quote.
// Every other backslash pair is kept verbatim.
func decodeEscapes(raw string, quote byte) string {
	if strings.IndexByte(raw, '\\') < 0 {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		next := raw[i+1]
		switch next {
		case 'n':
			b.WriteByte('\n')
		case quote:
			b.WriteByte(quote)
		default:
			b.WriteByte(c)
			b.WriteByte(next)
		}
		i++
	}
	return b.String()
}

func skipSpace(text string, pos int) int {
	for pos < len(text) {
		switch text[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"'
}
