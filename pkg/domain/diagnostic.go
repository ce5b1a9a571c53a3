package domain

import "fmt"

// DiagnosticKind names the diagnostics taxonomy.
type DiagnosticKind string

const (
	// DiagStructural marks a malformed row, block or node; unwraps to ErrStructural.
	DiagStructural DiagnosticKind = "structural_parse_warning"
	// DiagDangling marks a reference to a node id missing from the graph; unwraps to ErrDanglingReference.
	DiagDangling DiagnosticKind = "dangling_reference"
	// DiagInvalidOp marks an operation not allowed in the current state; unwraps to ErrInvalidOperation.
	DiagInvalidOp DiagnosticKind = "invalid_operation"
	// DiagDeadEnd marks a dialog node with nowhere to go; unwraps to ErrDeadEnd.
	DiagDeadEnd DiagnosticKind = "dead_end"
)

// Diagnostic is a recoverable problem reported by the builder or the
// traversal engine. None of them is fatal.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	NodeID  string         `json:"node_id,omitempty"`
	Line    int            `json:"line,omitempty"` // 1-based source line, builder only
	Message string         `json:"message"`
}

// NewDiagnostic builds a diagnostic with a formatted message.
func NewDiagnostic(kind DiagnosticKind, nodeID string, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:    kind,
		NodeID:  nodeID,
		Message: fmt.Sprintf(format, args...),
	}
}

func (d Diagnostic) Error() string {
	prefix := string(d.Kind)
	if d.NodeID != "" {
		prefix += " [" + d.NodeID + "]"
	}
	if d.Line > 0 {
		prefix += fmt.Sprintf(" (line %d)", d.Line)
	}
	return prefix + ": " + d.Message
}

// Unwrap exposes the kind sentinel so callers can use errors.Is.
func (d Diagnostic) Unwrap() error {
	switch d.Kind {
	case DiagStructural:
		return ErrStructural
	case DiagDangling:
		return ErrDanglingReference
	case DiagInvalidOp:
		return ErrInvalidOperation
	case DiagDeadEnd:
		return ErrDeadEnd
	}
	return nil
}
