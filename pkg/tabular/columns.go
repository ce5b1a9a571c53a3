package tabular

import "strings"

// Column names recognized in the header row.
const (
	ColType         = "type"
	ColNodeID       = "nodeId"
	ColBackgroundID = "backgroundId"
	ColNextNodeID   = "nextNodeId"
	ColQuestionText = "questionText"
	ColCharacter    = "character"
	ColPosition     = "position"
	ColSpeaker      = "speaker"
	ColContent      = "content"
	ColChoices      = "choices"
	ColChoiceNext   = "choiceNext"
)

// ExpectedColumns lists every column the builder reads.
var ExpectedColumns = []string{
	ColType, ColNodeID, ColBackgroundID, ColNextNodeID, ColQuestionText,
	ColCharacter, ColPosition, ColSpeaker, ColContent, ColChoices, ColChoiceNext,
}

// fieldIndices maps a column name to its index in a row.
type fieldIndices map[string]int

func newFieldIndices(header []string) fieldIndices {
	idx := make(fieldIndices, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" {
			continue
		}
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

// missing returns the expected columns absent from the header, in declaration order.
func (f fieldIndices) missing() []string {
	var out []string
	for _, col := range ExpectedColumns {
		if _, ok := f[col]; !ok {
			out = append(out, col)
		}
	}
	return out
}

// get returns the cell for a column. Missing columns and short rows read as "".
func (f fieldIndices) get(fields []string, col string) string {
	i, ok := f[col]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

func (f fieldIndices) has(col string) bool {
	_, ok := f[col]
	return ok
}
