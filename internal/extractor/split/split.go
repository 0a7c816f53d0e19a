// Package split is an offline extractor that treats a skill-set cell as a
// delimited list.
package split

import (
	"context"
	"strings"
)

// Extractor splits on commas, semicolons, pipes and line breaks.
type Extractor struct{}

func New() Extractor { return Extractor{} }

// Extract returns the trimmed, non-empty pieces of text in input order.
func (Extractor) Extract(_ context.Context, text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';', '|', '\n', '\r':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
