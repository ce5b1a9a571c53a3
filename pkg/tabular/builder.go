package tabular

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/pkg/domain"
)

const (
	// DefaultMarker opens a new node block when it prefixes a row's first cell.
	DefaultMarker = "#"

	// MinColumns is the minimum number of cells for a row to be considered well formed.
	MinColumns = 5
)

// Builder converts tabular text into a story graph.
type Builder struct {
	logger     *slog.Logger
	marker     string
	minColumns int
}

// Option configures the Builder.
type Option func(*Builder)

// WithLogger sets the logger used to report structural warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMarker overrides the block marker prefix.
func WithMarker(marker string) Option {
	return func(b *Builder) {
		if marker != "" {
			b.marker = marker
		}
	}
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		logger:     logging.NewNop(),
		marker:     DefaultMarker,
		minColumns: MinColumns,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build parses text with a default Builder.
func Build(text string, opts ...Option) (*domain.Graph, []domain.Diagnostic) {
	return New(opts...).Build(text)
}

// Parse reads all of r and builds the graph. Only read failures are returned as error.
func (b *Builder) Parse(r io.Reader) (*domain.Graph, []domain.Diagnostic, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read story source: %w", err)
	}
	g, diags := b.Build(string(data))
	return g, diags, nil
}

// row is a non-blank source line with its 1-based line number.
type row struct {
	num  int
	text string
}

// block is the run of rows describing a single node.
type block []row

// Build parses text into a graph. It never fails: structural problems are
// reported as diagnostics and the offending unit is skipped.
func (b *Builder) Build(text string) (*domain.Graph, []domain.Diagnostic) {
	graph := domain.NewGraph()
	var diags []domain.Diagnostic
	report := func(d domain.Diagnostic) {
		b.logger.Warn("Structural parse warning", "node_id", d.NodeID, "line", d.Line, "msg", d.Message)
		diags = append(diags, d)
	}

	rows := nonBlankRows(text)
	if len(rows) == 0 {
		report(domain.NewDiagnostic(domain.DiagStructural, "", "story source is empty"))
		return graph, diags
	}

	fields := newFieldIndices(splitLine(rows[0].text))
	for _, col := range fields.missing() {
		d := domain.NewDiagnostic(domain.DiagStructural, "", "header is missing expected column %q", col)
		d.Line = rows[0].num
		report(d)
	}

	blocks := b.groupBlocks(rows[1:])
	b.logger.Debug("Story blocks grouped", "count", len(blocks))

	for _, blk := range blocks {
		node, blockDiags := b.buildNode(fields, blk)
		for _, d := range blockDiags {
			report(d)
		}
		if node == nil {
			continue
		}
		if err := graph.AddNode(node); err != nil {
			d := domain.NewDiagnostic(domain.DiagStructural, node.ID, "%v", err)
			d.Line = blk[0].num
			report(d)
			continue
		}
		b.logger.Debug("Node added", "node_id", node.ID, "kind", node.Kind)
	}

	return graph, diags
}

func nonBlankRows(text string) []row {
	var rows []row
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, row{num: i + 1, text: line})
	}
	return rows
}

// groupBlocks splits rows into node blocks. Rows before the first marker are discarded.
func (b *Builder) groupBlocks(rows []row) []block {
	var (
		blocks  []block
		current block
		open    bool
	)
	for _, r := range rows {
		if b.isMarker(r.text) {
			if open {
				blocks = append(blocks, current)
			}
			current = block{r}
			open = true
			continue
		}
		if open {
			current = append(current, r)
		}
	}
	if open {
		blocks = append(blocks, current)
	}
	return blocks
}

func (b *Builder) isMarker(line string) bool {
	first := line
	if i := strings.IndexByte(line, ','); i >= 0 {
		first = line[:i]
	}
	first = strings.TrimSpace(strings.Trim(strings.TrimSpace(first), `"`))
	return strings.HasPrefix(first, b.marker)
}

// buildNode turns a block into a typed node. A nil node means the block was dropped.
func (b *Builder) buildNode(fields fieldIndices, blk block) (*domain.Node, []domain.Diagnostic) {
	var diags []domain.Diagnostic
	warn := func(line int, nodeID, format string, args ...any) {
		d := domain.NewDiagnostic(domain.DiagStructural, nodeID, format, args...)
		d.Line = line
		diags = append(diags, d)
	}

	head := splitLine(blk[0].text)
	if len(head) < b.minColumns {
		warn(blk[0].num, "", "node row has %d columns, need at least %d; block skipped", len(head), b.minColumns)
		return nil, diags
	}

	kind := domain.NodeKind(fields.get(head, ColType))
	nodeID := fields.get(head, ColNodeID)
	backgroundID := fields.get(head, ColBackgroundID)

	if !kind.Valid() {
		warn(blk[0].num, nodeID, "unrecognized node type %q; block skipped", string(kind))
		return nil, diags
	}
	if nodeID == "" {
		warn(blk[0].num, "", "node row has no %s; block skipped", ColNodeID)
		return nil, diags
	}

	for _, col := range requiredColumns(kind) {
		if !fields.has(col) {
			warn(blk[0].num, nodeID, "column %q missing from header; %s data unavailable", col, kind)
		}
	}

	var (
		characters []domain.CharacterPlacement
		lines      []domain.DialogLine
		choices    []domain.Choice
		question   string
	)

	for i, r := range blk {
		cells := head
		if i > 0 {
			cells = splitLine(r.text)
			if len(cells) < b.minColumns {
				warn(r.num, nodeID, "row has %d columns, need at least %d; row skipped", len(cells), b.minColumns)
				continue
			}
		}

		if character := fields.get(cells, ColCharacter); character != "" {
			characters = append(characters, domain.CharacterPlacement{
				CharacterID: character,
				Position:    parsePosition(fields.get(cells, ColPosition)),
			})
		}

		switch kind {
		case domain.KindDialog:
			speaker, content := fields.get(cells, ColSpeaker), fields.get(cells, ColContent)
			if speaker != "" && content != "" {
				lines = append(lines, domain.DialogLine{Speaker: speaker, Content: content})
			}
		case domain.KindChoice:
			if q := fields.get(cells, ColQuestionText); q != "" {
				question = q
			}
			text, next := fields.get(cells, ColChoices), fields.get(cells, ColChoiceNext)
			if text != "" && next != "" {
				choices = append(choices, domain.Choice{Text: text, NextNodeID: next})
			}
		}
	}

	switch kind {
	case domain.KindDialog:
		return domain.NewDialogNode(nodeID, backgroundID, characters, lines, fields.get(head, ColNextNodeID)), diags
	case domain.KindChoice:
		return domain.NewChoiceNode(nodeID, backgroundID, characters, question, choices), diags
	}
	return nil, diags
}

func requiredColumns(kind domain.NodeKind) []string {
	switch kind {
	case domain.KindDialog:
		return []string{ColSpeaker, ColContent}
	case domain.KindChoice:
		return []string{ColQuestionText, ColChoices, ColChoiceNext}
	}
	return nil
}

// Strict folds diagnostics into a single error, for authoring-time tooling
// that wants to treat structural warnings as failures. It returns nil when
// there are none.
func Strict(diags []domain.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	errs := make([]error, 0, len(diags))
	for _, d := range diags {
		errs = append(errs, d)
	}
	return fmt.Errorf("story has %d structural problems: %w", len(diags), errors.Join(errs...))
}
