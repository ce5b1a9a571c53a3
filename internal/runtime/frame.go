package runtime

import "github.com/aretw0/storyline/pkg/domain"

// Frame projects the current state for presentation.
func (s *Session) Frame() domain.Frame {
	if s.current == nil {
		return domain.Frame{Terminal: true}
	}
	n := s.current
	f := domain.Frame{
		NodeID:       n.ID,
		Kind:         n.Kind,
		BackgroundID: n.BackgroundID,
		Characters:   append([]domain.CharacterPlacement(nil), n.Characters...),
		Terminal:     s.State() == Terminal,
	}

	switch {
	case n.IsDialog():
		if line, ok := s.CurrentLine(); ok {
			f.Speaker, f.Content = line.Speaker, line.Content
		}
	case n.IsChoice():
		f.Question = n.Choice.Question
		f.Choices = make([]string, len(n.Choice.Choices))
		for i, c := range n.Choice.Choices {
			f.Choices[i] = c.Text
		}
		if s.context != nil {
			f.Speaker, f.Content, f.Replay = s.context.Speaker, s.context.Content, true
		}
	}
	return f
}
