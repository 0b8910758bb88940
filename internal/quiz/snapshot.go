package quiz

import (
	"maps"
	"math"
	"slices"

	"github.com/p-n-ai/pai-reader/internal/content"
)

// Snapshot is a read-only copy of the session state handed to presentation
// layers. Mutating it has no effect on the session.
type Snapshot struct {
	Version    uint64          `json:"version"`
	Stage      Stage           `json:"stage"`
	Level      content.Level   `json:"level,omitempty"`
	Topics     []content.Topic `json:"topics"`
	Generating bool            `json:"generating"`
	Answers    map[int]int     `json:"answers"`
	Submitted  bool            `json:"submitted"`
	Score      int             `json:"score"`
	Answered   int             `json:"answered"`
	Total      int             `json:"total"`
	Progress   int             `json:"progress"`
}

func snapshotOf(c *content.Catalog, st state) Snapshot {
	topics := slices.Clone(st.topics)
	if topics == nil {
		topics = []content.Topic{}
	}
	return Snapshot{
		Version:    st.version,
		Stage:      st.stage,
		Level:      st.level,
		Topics:     topics,
		Generating: st.generating,
		Answers:    maps.Clone(st.answers),
		Submitted:  st.submitted,
		Score:      Score(c, st.answers, st.submitted),
		Answered:   len(st.answers),
		Total:      c.QuestionCount(),
		Progress:   Progress(len(st.answers), c.QuestionCount()),
	}
}

// PrimaryTopic is the first topic selected, if any.
func (s Snapshot) PrimaryTopic() (content.Topic, bool) {
	if len(s.Topics) == 0 {
		return "", false
	}
	return s.Topics[0], true
}

// HasTopic reports whether t is in the topic selection.
func (s Snapshot) HasTopic(t content.Topic) bool {
	return slices.Contains(s.Topics, t)
}

// CanStartLearning reports whether StartLearning would be accepted.
func (s Snapshot) CanStartLearning() bool {
	return s.Stage == StageOnboarding && !s.Generating && s.Level != "" && len(s.Topics) > 0
}

// Answer returns the selected option for a question.
func (s Snapshot) Answer(questionID int) (int, bool) {
	i, ok := s.Answers[questionID]
	return i, ok
}

// Score counts the answers matching the answer key. It is zero until the
// answers are submitted.
func Score(c *content.Catalog, answers map[int]int, submitted bool) int {
	if !submitted {
		return 0
	}
	score := 0
	for _, q := range c.Questions() {
		if a, ok := answers[q.ID]; ok && a == q.Answer {
			score++
		}
	}
	return score
}

// Progress is the rounded percentage of answered questions.
func Progress(answered, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(answered) / float64(total) * 100))
}

// Outcome classifies a submitted answer.
type Outcome string

const (
	OutcomeCorrect    Outcome = "correct"
	OutcomeWrong      Outcome = "wrong"
	OutcomeUnanswered Outcome = "unanswered"
)

// QuestionReview is the per-question feedback shown after submission.
// Selected is -1 for an unanswered question.
type QuestionReview struct {
	QuestionID int     `json:"question_id"`
	Selected   int     `json:"selected"`
	Correct    int     `json:"correct"`
	Outcome    Outcome `json:"outcome"`
}

// Review grades a submitted snapshot question by question. It returns nil
// before submission so the answer key is never revealed early.
func Review(c *content.Catalog, s Snapshot) []QuestionReview {
	if !s.Submitted {
		return nil
	}
	qs := c.Questions()
	out := make([]QuestionReview, 0, len(qs))
	for _, q := range qs {
		r := QuestionReview{QuestionID: q.ID, Selected: -1, Correct: q.Answer, Outcome: OutcomeUnanswered}
		if a, ok := s.Answers[q.ID]; ok {
			r.Selected = a
			r.Outcome = OutcomeWrong
			if a == q.Answer {
				r.Outcome = OutcomeCorrect
			}
		}
		out = append(out, r)
	}
	return out
}
