package domain

// SaveTimeLayout is the layout of SaveRecord.SaveTime.
const SaveTimeLayout = "2006-01-02 15:04"

// HistoryRecord is the persisted shape of a HistoryEntry.
type HistoryRecord struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// SaveRecord is the persisted projection of a traversal session, stored per save slot.
type SaveRecord struct {
	NodeID      string          `json:"nodeId"`
	DialogIndex int             `json:"dialogIndex"`
	SaveTime    string          `json:"saveTime"`
	PreviewText string          `json:"previewText"`
	History     []HistoryRecord `json:"history"`
}

// Clone returns a deep copy of the record.
func (r *SaveRecord) Clone() *SaveRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.History != nil {
		out.History = make([]HistoryRecord, len(r.History))
		copy(out.History, r.History)
	}
	return &out
}
