package converter

import "context"

// StaticExtractor is the no-API-key fallback for local development. It pulls
// literal text strings straight out of the PDF stream and emits them as
// description-only rows, which is enough to exercise the full workflow
// end to end without an extractor credential.
type StaticExtractor struct{}

func NewStaticExtractor() *StaticExtractor {
	return &StaticExtractor{}
}

func (e *StaticExtractor) Extract(ctx context.Context, pdf []byte) ([]Row, error) {
	var rows []Row
	for _, text := range literalStrings(pdf, 200) {
		rows = append(rows, Row{Description: text})
	}
	if len(rows) == 0 {
		rows = append(rows, Row{Description: "(sin texto extraíble)"})
	}
	return rows, nil
}

// literalStrings scans for PDF literal strings "(...)". Escapes and nesting
// are ignored; this is a development aid, not a parser.
func literalStrings(data []byte, max int) []string {
	var out []string
	depth, start := 0, 0
	for i, b := range data {
		switch b {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			if depth > 0 {
				depth--
				if depth == 0 && i > start {
					s := data[start:i]
					if printable(s) {
						out = append(out, string(s))
						if len(out) >= max {
							return out
						}
					}
				}
			}
		}
	}
	return out
}

func printable(s []byte) bool {
	for _, b := range s {
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return len(s) > 0
}
