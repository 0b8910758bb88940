package quiz

import "github.com/p-n-ai/pai-reader/internal/content"

// ActionKind names a session operation.
type ActionKind string

const (
	ActionSelectLevel        ActionKind = "select_level"
	ActionToggleTopic        ActionKind = "toggle_topic"
	ActionStartLearning      ActionKind = "start_learning"
	ActionGenerationComplete ActionKind = "generation_complete"
	ActionProceedToQuiz      ActionKind = "proceed_to_quiz"
	ActionSelectAnswer       ActionKind = "select_answer"
	ActionSubmit             ActionKind = "submit"
	ActionViewResults        ActionKind = "view_results"
	ActionReset              ActionKind = "reset"
)

// Action is a serialisable operation request. Only the fields relevant to
// Kind are read.
type Action struct {
	Kind       ActionKind    `json:"type"`
	Level      content.Level `json:"level,omitempty"`
	Topic      content.Topic `json:"topic,omitempty"`
	QuestionID int           `json:"question_id,omitempty"`
	Option     int           `json:"option"`

	generation uint64
}

func SelectLevel(l content.Level) Action { return Action{Kind: ActionSelectLevel, Level: l} }
func ToggleTopic(t content.Topic) Action { return Action{Kind: ActionToggleTopic, Topic: t} }
func StartLearning() Action              { return Action{Kind: ActionStartLearning} }
func ProceedToQuiz() Action              { return Action{Kind: ActionProceedToQuiz} }
func Submit() Action                     { return Action{Kind: ActionSubmit} }
func ViewResults() Action                { return Action{Kind: ActionViewResults} }
func Reset() Action                      { return Action{Kind: ActionReset} }

func SelectAnswer(questionID, option int) Action {
	return Action{Kind: ActionSelectAnswer, QuestionID: questionID, Option: option}
}

// Known reports whether k is an action a caller may request.
// generation_complete is issued by the session itself.
func (k ActionKind) Known() bool {
	switch k {
	case ActionSelectLevel, ActionToggleTopic, ActionStartLearning, ActionProceedToQuiz,
		ActionSelectAnswer, ActionSubmit, ActionViewResults, ActionReset:
		return true
	}
	return false
}
