package tabular

import (
	"strconv"
	"strings"

	"github.com/aretw0/storyline/pkg/domain"
)

// splitLine splits a row on commas, honoring double-quoted fields.
// A quote toggles the quoted state and is dropped from the output; a comma
// inside quotes belongs to the field. Every field is trimmed.
func splitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

// parsePosition parses "x, y" into a Position. It never fails: empty or
// malformed input yields the origin.
func parsePosition(s string) domain.Position {
	if strings.TrimSpace(s) == "" {
		return domain.Position{}
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.Position{}
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return domain.Position{}
	}
	return domain.Position{X: x, Y: y}
}
