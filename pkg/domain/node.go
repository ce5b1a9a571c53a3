package domain

// NodeKind discriminates the Node variants.
type NodeKind string

const (
	// KindDialog is a node that shows a sequence of dialog lines and then
	// continues to a single next node.
	KindDialog NodeKind = "DialogNode"
	// KindChoice is a node that asks a question and branches on the player's answer.
	KindChoice NodeKind = "ChoiceNode"
)

// Valid reports whether k is a known node kind.
func (k NodeKind) Valid() bool {
	return k == KindDialog || k == KindChoice
}

// Position is a 2D placement in presentation space.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// CharacterPlacement places a character sprite on the stage.
// Order within a node is presentation relevant (creation/z order).
type CharacterPlacement struct {
	CharacterID string   `json:"character_id" yaml:"character_id"`
	Position    Position `json:"position" yaml:"position"`
}

// DialogLine is a single line spoken in a dialog node.
type DialogLine struct {
	Speaker string `json:"speaker" yaml:"speaker"`
	Content string `json:"content" yaml:"content"`
}

// Choice is one selectable answer of a choice node.
type Choice struct {
	Text       string `json:"text" yaml:"text"`
	NextNodeID string `json:"next_node_id" yaml:"next_node_id"`
}

// DialogBody holds the Dialog variant data.
type DialogBody struct {
	Lines []DialogLine `json:"lines" yaml:"lines"`

	// NextNodeID is visited once all lines are exhausted.
	// Empty means a dead end.
	NextNodeID string `json:"next_node_id,omitempty" yaml:"next_node_id,omitempty"`
}

// ChoiceBody holds the Choice variant data.
type ChoiceBody struct {
	Question string   `json:"question" yaml:"question"`
	Choices  []Choice `json:"choices" yaml:"choices"`
}

// Node represents a point in the story graph.
// Exactly one of Dialog or Choice is set, according to Kind.
type Node struct {
	ID           string               `json:"id" yaml:"id"`
	Kind         NodeKind             `json:"kind" yaml:"kind"`
	BackgroundID string               `json:"background_id" yaml:"background_id"`
	Characters   []CharacterPlacement `json:"characters,omitempty" yaml:"characters,omitempty"`

	Dialog *DialogBody `json:"dialog,omitempty" yaml:"dialog,omitempty"`
	Choice *ChoiceBody `json:"choice,omitempty" yaml:"choice,omitempty"`
}

// NewDialogNode creates a dialog node.
func NewDialogNode(id, backgroundID string, characters []CharacterPlacement, lines []DialogLine, nextNodeID string) *Node {
	return &Node{
		ID:           id,
		Kind:         KindDialog,
		BackgroundID: backgroundID,
		Characters:   characters,
		Dialog: &DialogBody{
			Lines:      lines,
			NextNodeID: nextNodeID,
		},
	}
}

// NewChoiceNode creates a choice node.
func NewChoiceNode(id, backgroundID string, characters []CharacterPlacement, question string, choices []Choice) *Node {
	return &Node{
		ID:           id,
		Kind:         KindChoice,
		BackgroundID: backgroundID,
		Characters:   characters,
		Choice: &ChoiceBody{
			Question: question,
			Choices:  choices,
		},
	}
}

// IsDialog reports whether the node is a well-formed dialog node.
func (n *Node) IsDialog() bool {
	return n != nil && n.Kind == KindDialog && n.Dialog != nil
}

// IsChoice reports whether the node is a well-formed choice node.
func (n *Node) IsChoice() bool {
	return n != nil && n.Kind == KindChoice && n.Choice != nil
}

// Targets returns every outgoing node reference, in declaration order.
// Empty references are skipped.
func (n *Node) Targets() []string {
	var out []string
	switch {
	case n.IsDialog():
		if n.Dialog.NextNodeID != "" {
			out = append(out, n.Dialog.NextNodeID)
		}
	case n.IsChoice():
		for _, c := range n.Choice.Choices {
			if c.NextNodeID != "" {
				out = append(out, c.NextNodeID)
			}
		}
	}
	return out
}
