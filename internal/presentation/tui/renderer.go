package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer turns markdown into terminal output.
type Renderer func(string) (string, error)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() Renderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return PlainRenderer
	}
	return r.Render
}

// PlainRenderer returns markdown untouched.
func PlainRenderer(markdown string) (string, error) {
	return markdown, nil
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// RendererFor picks glamour for terminals and plain text otherwise, so piped
// transcripts stay free of escape codes.
func RendererFor(w io.Writer) Renderer {
	if IsTerminal(w) {
		return NewRenderer()
	}
	return PlainRenderer
}

// FrameMarkdown formats a frame for display.
func FrameMarkdown(f domain.Frame) string {
	var sb strings.Builder
	if f.Speaker != "" || f.Content != "" {
		if f.Replay {
			sb.WriteString("_(earlier)_ ")
		}
		if f.Speaker != "" {
			fmt.Fprintf(&sb, "**%s**: ", f.Speaker)
		}
		sb.WriteString(f.Content)
		sb.WriteString("\n\n")
	}
	if f.Kind == domain.KindChoice && !f.Terminal {
		fmt.Fprintf(&sb, "### %s\n\n", f.Question)
		for i, c := range f.Choices {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, c)
		}
	}
	if f.Terminal {
		sb.WriteString("*The End*\n")
	}
	return sb.String()
}

// HistoryMarkdown formats a transcript.
func HistoryMarkdown(history []domain.HistoryEntry) string {
	if len(history) == 0 {
		return "_Nothing yet._\n"
	}
	var sb strings.Builder
	for _, h := range history {
		fmt.Fprintf(&sb, "- **%s**: %s\n", h.Speaker, h.Content)
	}
	return sb.String()
}
