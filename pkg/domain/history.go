package domain

// Default speaker labels used when a choice is recorded in the transcript.
const (
	DefaultQuestionLabel = "Facing a choice"
	DefaultAnswerLabel   = "Your choice"
)

// HistoryEntry is one line of the flattened transcript: a dialog line that
// was shown, or a question/answer pair recorded when a choice was made.
type HistoryEntry struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// Labels configures the speaker labels written for choices.
type Labels struct {
	Question string `json:"question" yaml:"question" mapstructure:"question"`
	Answer   string `json:"answer" yaml:"answer" mapstructure:"answer"`
}

// DefaultLabels returns the built-in labels.
func DefaultLabels() Labels {
	return Labels{
		Question: DefaultQuestionLabel,
		Answer:   DefaultAnswerLabel,
	}
}

// OrDefault fills empty labels with the built-in ones.
func (l Labels) OrDefault() Labels {
	if l.Question == "" {
		l.Question = DefaultQuestionLabel
	}
	if l.Answer == "" {
		l.Answer = DefaultAnswerLabel
	}
	return l
}
