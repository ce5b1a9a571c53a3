package domain

// Frame is a pure projection of session state for presentation collaborators.
// The engine never renders; hosts ask for a Frame after each transition.
type Frame struct {
	NodeID       string               `json:"node_id"`
	Kind         NodeKind             `json:"kind"`
	BackgroundID string               `json:"background_id"`
	Characters   []CharacterPlacement `json:"characters,omitempty"`

	// Speaker and Content hold the current dialog line, or the context line
	// re-displayed under a choice after a rewind or restore (Replay is true then).
	Speaker string `json:"speaker,omitempty"`
	Content string `json:"content,omitempty"`
	Replay  bool   `json:"replay,omitempty"`

	Question string   `json:"question,omitempty"`
	Choices  []string `json:"choices,omitempty"`

	Terminal bool `json:"terminal"`
}
