package runtime

import (
	"context"
	"time"

	"github.com/aretw0/storyline/pkg/domain"
)

// Enter moves the session to nodeID at the given line index without touching
// the visited log or the mark stacks. A dialog node whose lines are already
// exhausted advances immediately.
func (s *Session) Enter(nodeID string, lineIndex int) error {
	node, ok := s.graph.GetNode(nodeID)
	if !ok {
		return s.record(domain.NewDiagnostic(domain.DiagDangling, nodeID, "node %q does not exist", nodeID))
	}
	if lineIndex < 0 {
		return s.record(domain.NewDiagnostic(domain.DiagInvalidOp, nodeID, "negative line index %d", lineIndex))
	}
	return s.enter(node, lineIndex, false)
}

// NextLine records the line being shown and moves to the next one, advancing
// to the next node when the lines are exhausted. Reaching a dead end is not an
// error; the session becomes Terminal and a dead_end diagnostic is recorded.
func (s *Session) NextLine() error {
	if s.State() != ShowingDialogLine {
		return s.record(domain.NewDiagnostic(domain.DiagInvalidOp, "", "next line requested while %s", s.State()))
	}

	line := s.current.Dialog.Lines[s.lineIndex]
	s.history = append(s.history, domain.HistoryEntry{Speaker: line.Speaker, Content: line.Content})
	if s.hooks.OnLine != nil {
		s.hooks.OnLine(context.Background(), &domain.LineEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventLine},
			NodeID:    s.current.ID,
			Index:     s.lineIndex,
			Line:      line,
		})
	}

	s.lineIndex++
	if s.lineIndex < len(s.current.Dialog.Lines) {
		return nil
	}
	return s.advance(s.current, 0)
}

// SelectChoice picks the choice at index on the current choice node.
// The question and answer are recorded in the history before the target is
// resolved, so an unresolved target leaves them recorded and the session on
// the choice node.
func (s *Session) SelectChoice(index int) error {
	if s.State() != ShowingChoice {
		return s.record(domain.NewDiagnostic(domain.DiagInvalidOp, "", "choice requested while %s", s.State()))
	}
	node := s.current
	if index < 0 || index >= len(node.Choice.Choices) {
		return s.record(domain.NewDiagnostic(domain.DiagInvalidOp, "",
			"choice index %d out of range [0,%d)", index, len(node.Choice.Choices)))
	}

	choice := node.Choice.Choices[index]
	s.history = append(s.history,
		domain.HistoryEntry{Speaker: s.labels.Question, Content: node.Choice.Question},
		domain.HistoryEntry{Speaker: s.labels.Answer, Content: choice.Text},
	)
	if s.hooks.OnChoice != nil {
		s.hooks.OnChoice(context.Background(), &domain.ChoiceEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventChoice},
			NodeID:    node.ID,
			Index:     index,
			Text:      choice.Text,
		})
	}

	s.leave(node)
	s.choiceMarks = append(s.choiceMarks, len(s.visited)-1)

	target, ok := s.graph.GetNode(choice.NextNodeID)
	if !ok {
		return s.record(domain.NewDiagnostic(domain.DiagDangling, node.ID,
			"choice %d points to unknown node %q", index, choice.NextNodeID))
	}
	return s.enter(target, 0, false)
}

// RewindToLastChoice returns to the most recent choice node. The history is
// kept; dialog marks made after that choice are discarded.
func (s *Session) RewindToLastChoice() error {
	if len(s.choiceMarks) == 0 {
		return s.record(domain.NewDiagnostic(domain.DiagInvalidOp, "", "no choice to rewind to"))
	}

	k := s.choiceMarks[len(s.choiceMarks)-1]
	s.choiceMarks = s.choiceMarks[:len(s.choiceMarks)-1]
	target := s.visited[k]
	s.visited = s.visited[:k+1]
	for len(s.dialogMarks) > 0 && s.dialogMarks[len(s.dialogMarks)-1] > k {
		s.dialogMarks = s.dialogMarks[:len(s.dialogMarks)-1]
	}

	s.logger.Debug("Rewinding to last choice", "node_id", target.ID, "mark", k)
	if s.hooks.OnRewind != nil {
		s.hooks.OnRewind(context.Background(), &domain.ChoiceEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRewind},
			NodeID:    target.ID,
			Index:     k,
		})
	}
	return s.enter(target, 0, true)
}

// RestoreFromSnapshot replaces the session position and transcript. The
// visited log, both mark stacks and the diagnostics are cleared. Once the
// saved node resolves the restore succeeds: a follow-on advance that cannot
// proceed leaves the session parked there, as it was when saved.
func (s *Session) RestoreFromSnapshot(nodeID string, lineIndex int, history []domain.HistoryEntry) error {
	node, ok := s.graph.GetNode(nodeID)
	if !ok {
		return s.record(domain.NewDiagnostic(domain.DiagDangling, nodeID, "saved node %q does not exist", nodeID))
	}
	if lineIndex < 0 {
		return s.record(domain.NewDiagnostic(domain.DiagInvalidOp, nodeID, "negative line index %d", lineIndex))
	}

	s.history = append([]domain.HistoryEntry(nil), history...)
	s.visited = nil
	s.dialogMarks = nil
	s.choiceMarks = nil
	s.diagnostics = nil
	if err := s.enter(node, lineIndex, true); err != nil && !isRecoverable(err) {
		return err
	}
	return nil
}

// JumpTo moves to any node for debugging. The stacks are untouched and the
// target is remembered in the jump history.
func (s *Session) JumpTo(nodeID string) error {
	node, ok := s.graph.GetNode(nodeID)
	if !ok {
		return s.record(domain.NewDiagnostic(domain.DiagDangling, nodeID, "jump target %q does not exist", nodeID))
	}

	jumps := []string{nodeID}
	for _, id := range s.jumps {
		if id != nodeID && len(jumps) < maxJumpHistory {
			jumps = append(jumps, id)
		}
	}
	s.jumps = jumps
	return s.enter(node, 0, true)
}

// JumpHistory returns recent jump targets, most recent first.
func (s *Session) JumpHistory() []string {
	return append([]string(nil), s.jumps...)
}

// enter places the session on node. A dialog node whose lines are exhausted
// advances immediately.
func (s *Session) enter(node *domain.Node, lineIndex int, replay bool) error {
	return s.enterHop(node, lineIndex, replay, 0)
}

func (s *Session) enterHop(node *domain.Node, lineIndex int, replay bool, hops int) error {
	s.current = node
	s.lineIndex = lineIndex
	s.parked = false
	s.context = nil

	s.logger.Debug("Entering node", "node_id", node.ID, "kind", node.Kind, "line", lineIndex)
	if s.hooks.OnNodeEnter != nil {
		s.hooks.OnNodeEnter(context.Background(), &domain.NodeEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEnter},
			NodeID:    node.ID,
			NodeKind:  node.Kind,
		})
	}

	if node.IsChoice() {
		if replay {
			s.context = s.contextLine()
		}
		return nil
	}
	if !node.IsDialog() {
		s.parked = true
		return s.record(domain.NewDiagnostic(domain.DiagStructural, node.ID, "%s node has no body", node.Kind))
	}
	if lineIndex < len(node.Dialog.Lines) {
		return nil
	}
	return s.advance(node, hops)
}

// advance leaves an exhausted dialog node for its next node. A chain of
// dialog nodes without lines longer than the graph is a cycle and parks the
// session.
func (s *Session) advance(node *domain.Node, hops int) error {
	if node.Dialog.NextNodeID == "" {
		s.parked = true
		s.record(domain.NewDiagnostic(domain.DiagDeadEnd, node.ID, "no next node"))
		return nil
	}
	if hops > s.graph.Len() {
		s.parked = true
		return s.record(domain.NewDiagnostic(domain.DiagDeadEnd, node.ID, "cycle of dialog nodes without lines"))
	}

	s.leave(node)
	s.dialogMarks = append(s.dialogMarks, len(s.visited)-1)

	next, ok := s.graph.GetNode(node.Dialog.NextNodeID)
	if !ok {
		s.parked = true
		return s.record(domain.NewDiagnostic(domain.DiagDangling, node.ID,
			"next node %q does not exist", node.Dialog.NextNodeID))
	}
	return s.enterHop(next, 0, false, hops+1)
}

// leave appends node to the visited log.
func (s *Session) leave(node *domain.Node) {
	s.visited = append(s.visited, node)
	if s.hooks.OnNodeLeave != nil {
		s.hooks.OnNodeLeave(context.Background(), &domain.NodeEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeLeave},
			NodeID:    node.ID,
			NodeKind:  node.Kind,
		})
	}
}

// contextLine returns the last line of the dialog node on top of the dialog
// mark stack.
func (s *Session) contextLine() *domain.DialogLine {
	if len(s.dialogMarks) == 0 {
		return nil
	}
	n := s.visited[s.dialogMarks[len(s.dialogMarks)-1]]
	if !n.IsDialog() || len(n.Dialog.Lines) == 0 {
		return nil
	}
	line := n.Dialog.Lines[len(n.Dialog.Lines)-1]
	return &line
}
