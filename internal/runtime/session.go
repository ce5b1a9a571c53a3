package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/storyline/pkg/domain"
)

// StateKind is the observable state of a traversal session.
type StateKind int

const (
	ShowingDialogLine StateKind = iota
	ShowingChoice
	Terminal
)

func (k StateKind) String() string {
	switch k {
	case ShowingDialogLine:
		return "showing_dialog_line"
	case ShowingChoice:
		return "showing_choice"
	default:
		return "terminal"
	}
}

const (
	maxDiagnostics = 64
	maxJumpHistory = 5
)

// Session walks a story graph for a single playthrough.
//
// The visited log is an append-only arena; the two mark stacks hold indices
// into it. A Session is not safe for concurrent use.
type Session struct {
	graph  *domain.Graph
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	labels domain.Labels

	current   *domain.Node
	lineIndex int
	// parked is set when the current node cannot proceed (dead end or
	// unresolved target).
	parked bool
	// context is the line re-displayed under a choice after rewind or restore.
	context *domain.DialogLine

	visited     []*domain.Node
	dialogMarks []int
	choiceMarks []int
	history     []domain.HistoryEntry
	diagnostics []domain.Diagnostic
	jumps       []string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger. Defaults to a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// WithLabels sets the speaker labels recorded when a choice is made.
func WithLabels(labels domain.Labels) Option {
	return func(s *Session) {
		s.labels = labels.OrDefault()
	}
}

// NewSession starts a session at the graph root.
func NewSession(graph *domain.Graph, opts ...Option) (*Session, error) {
	if graph == nil || graph.Root() == nil {
		return nil, domain.ErrEmptyGraph
	}
	s := newSession(graph, opts...)
	err := s.enter(graph.Root(), 0, false)
	if err != nil && !isRecoverable(err) {
		return nil, err
	}
	return s, nil
}

// NewSessionAt starts a session at the given node.
func NewSessionAt(graph *domain.Graph, nodeID string, opts ...Option) (*Session, error) {
	if graph == nil || graph.Root() == nil {
		return nil, domain.ErrEmptyGraph
	}
	node, ok := graph.GetNode(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	s := newSession(graph, opts...)
	err := s.enter(node, 0, false)
	if err != nil && !isRecoverable(err) {
		return nil, err
	}
	return s, nil
}

// NewDetached creates a session that is on no node yet. It fires no hooks
// until it is positioned with Enter, JumpTo or RestoreFromSnapshot.
func NewDetached(graph *domain.Graph, opts ...Option) (*Session, error) {
	if graph == nil || graph.Root() == nil {
		return nil, domain.ErrEmptyGraph
	}
	return newSession(graph, opts...), nil
}

func newSession(graph *domain.Graph, opts ...Option) *Session {
	s := &Session{
		graph:  graph,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		labels: domain.DefaultLabels(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// isRecoverable reports whether an error left the session usable. A session
// created on a node whose automatic advance fails is still returned.
func isRecoverable(err error) bool {
	var d domain.Diagnostic
	return errors.As(err, &d)
}

// Graph returns the graph this session walks.
func (s *Session) Graph() *domain.Graph {
	return s.graph
}

// Labels returns the speaker labels used for choices.
func (s *Session) Labels() domain.Labels {
	return s.labels
}

// State reports the current state of the state machine.
func (s *Session) State() StateKind {
	if s.current == nil || s.parked {
		return Terminal
	}
	switch {
	case s.current.IsChoice():
		return ShowingChoice
	case s.current.IsDialog():
		if s.lineIndex < len(s.current.Dialog.Lines) {
			return ShowingDialogLine
		}
	}
	return Terminal
}

// CurrentNode returns the node the session is on.
func (s *Session) CurrentNode() *domain.Node {
	return s.current
}

// LineIndex returns the dialog line cursor.
func (s *Session) LineIndex() int {
	return s.lineIndex
}

// CurrentLine returns the dialog line being shown, if any.
func (s *Session) CurrentLine() (domain.DialogLine, bool) {
	if s.State() != ShowingDialogLine {
		return domain.DialogLine{}, false
	}
	return s.current.Dialog.Lines[s.lineIndex], true
}

// History returns a copy of the transcript.
func (s *Session) History() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// Visited returns the ids of the nodes left behind, in traversal order.
func (s *Session) Visited() []string {
	out := make([]string, len(s.visited))
	for i, n := range s.visited {
		out[i] = n.ID
	}
	return out
}

// DialogMarks returns a copy of the dialog mark stack, bottom first.
func (s *Session) DialogMarks() []int {
	return append([]int(nil), s.dialogMarks...)
}

// ChoiceMarks returns a copy of the choice mark stack, bottom first.
func (s *Session) ChoiceMarks() []int {
	return append([]int(nil), s.choiceMarks...)
}

// CanRewind reports whether a choice is available to rewind to.
func (s *Session) CanRewind() bool {
	return len(s.choiceMarks) > 0
}

// Diagnostics returns the most recent diagnostics, oldest first.
func (s *Session) Diagnostics() []domain.Diagnostic {
	return append([]domain.Diagnostic(nil), s.diagnostics...)
}

// record logs a diagnostic, keeps it and forwards it to the hooks.
func (s *Session) record(d domain.Diagnostic) domain.Diagnostic {
	if d.NodeID == "" && s.current != nil {
		d.NodeID = s.current.ID
	}
	if d.Kind == domain.DiagDeadEnd {
		s.logger.Info("Reached dead end", "node_id", d.NodeID)
	} else {
		s.logger.Warn("Traversal diagnostic", "kind", d.Kind, "node_id", d.NodeID, "message", d.Message)
	}
	s.diagnostics = append(s.diagnostics, d)
	if len(s.diagnostics) > maxDiagnostics {
		s.diagnostics = s.diagnostics[len(s.diagnostics)-maxDiagnostics:]
	}
	if s.hooks.OnDiagnostic != nil {
		s.hooks.OnDiagnostic(context.Background(), &d)
	}
	return d
}
