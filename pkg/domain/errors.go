package domain

import "errors"

// ErrDuplicateNodeID is returned when a node id is added twice to a graph.
var ErrDuplicateNodeID = errors.New("duplicate node id")

// ErrMalformedNode is returned when a node's body does not match its kind.
var ErrMalformedNode = errors.New("malformed node")

// ErrNodeNotFound is returned when a node id does not resolve in the graph.
var ErrNodeNotFound = errors.New("node not found")

// ErrEmptyGraph is returned when a session is requested on a graph without a root.
var ErrEmptyGraph = errors.New("graph has no root node")

// ErrSaveNotFound is returned when a save key cannot be found in the store.
var ErrSaveNotFound = errors.New("save not found")

// ErrAssetNotFound is returned when a logical asset id cannot be resolved.
var ErrAssetNotFound = errors.New("asset not found")

// Diagnostic kinds. A Diagnostic unwraps to one of these.
var (
	// ErrStructural marks a StructuralParseWarning: malformed row, missing
	// column, unrecognized node type or duplicate node id.
	ErrStructural = errors.New("structural parse warning")

	// ErrDanglingReference marks a transition whose target does not resolve.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrInvalidOperation marks an operation called in the wrong state or
	// with an out of range argument.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrDeadEnd marks a dialog node whose lines are exhausted and that has
	// no next node. It is informational: the story simply ended there.
	ErrDeadEnd = errors.New("dead end")
)
