package persistence

import (
	"fmt"
	"time"

	"github.com/aretw0/storyline/internal/runtime"
	"github.com/aretw0/storyline/pkg/domain"
)

// PreviewLength is the number of characters kept in a preview.
const PreviewLength = 22

// Snapshot captures the session position, transcript and a preview.
func Snapshot(s *runtime.Session, now time.Time, labels domain.Labels) domain.SaveRecord {
	rec := domain.SaveRecord{
		DialogIndex: s.LineIndex(),
		SaveTime:    now.Format(domain.SaveTimeLayout),
		History:     ToRecords(s.History()),
	}
	if n := s.CurrentNode(); n != nil {
		rec.NodeID = n.ID
		rec.PreviewText = previewFor(n, s.LineIndex(), labels.OrDefault())
	}
	return rec
}

// Restore creates a session positioned as rec describes. Only the saved node
// is entered, so hooks see no visit to the root.
func Restore(rec *domain.SaveRecord, graph *domain.Graph, opts ...runtime.Option) (*runtime.Session, error) {
	if rec == nil {
		return nil, domain.ErrSaveNotFound
	}
	s, err := runtime.NewDetached(graph, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.RestoreFromSnapshot(rec.NodeID, rec.DialogIndex, FromRecords(rec.History)); err != nil {
		return nil, fmt.Errorf("failed to restore save at node %q: %w", rec.NodeID, err)
	}
	return s, nil
}

// Preview keeps the first n characters of text and appends "..." only when
// something was cut.
func Preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

func previewFor(n *domain.Node, lineIndex int, labels domain.Labels) string {
	switch {
	case n.IsDialog():
		lines := n.Dialog.Lines
		if len(lines) == 0 {
			return ""
		}
		line := lines[min(lineIndex, len(lines)-1)]
		return line.Speaker + ": " + Preview(line.Content, PreviewLength)
	case n.IsChoice():
		return labels.Question + ": " + Preview(n.Choice.Question, PreviewLength)
	}
	return ""
}

// ToRecords converts transcript entries to their persisted shape.
func ToRecords(history []domain.HistoryEntry) []domain.HistoryRecord {
	out := make([]domain.HistoryRecord, len(history))
	for i, h := range history {
		out[i] = domain.HistoryRecord{Speaker: h.Speaker, Content: h.Content}
	}
	return out
}

// FromRecords converts persisted records back to transcript entries.
func FromRecords(records []domain.HistoryRecord) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(records))
	for i, r := range records {
		out[i] = domain.HistoryEntry{Speaker: r.Speaker, Content: r.Content}
	}
	return out
}
