package agent

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-reader/internal/content"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

// OptionLetter returns the display letter for an option index.
func OptionLetter(i int) string {
	if i < 0 || i >= content.OptionCount {
		return "-"
	}
	return string(rune('A' + i))
}

// ParseOption accepts a letter (A-D) or a 1-based number (1-4).
func ParseOption(s string) (int, bool) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) != 1 {
		return 0, false
	}
	c := s[0]
	switch {
	case c >= 'A' && c < 'A'+content.OptionCount:
		return int(c - 'A'), true
	case c >= '1' && c < '1'+content.OptionCount:
		return int(c - '1'), true
	}
	return 0, false
}

// RenderView renders the screen for the snapshot's current stage.
func RenderView(c *content.Catalog, s quiz.Snapshot) string {
	switch s.Stage {
	case quiz.StageReading:
		return RenderReading(c, s)
	case quiz.StageQuiz:
		return RenderQuiz(c, s)
	case quiz.StageResults:
		return RenderResults(c, s)
	default:
		return RenderOnboarding(c, s)
	}
}

// RenderOnboarding lists levels and topics with the current selection.
func RenderOnboarding(c *content.Catalog, s quiz.Snapshot) string {
	var b strings.Builder
	b.WriteString("*Choose your level and topics*\n\n")

	b.WriteString("Levels (CEFR):\n")
	for _, l := range c.Levels() {
		mark := "  "
		if l.Key == s.Level {
			mark = "> "
		}
		fmt.Fprintf(&b, "%s%s %s\n", mark, l.Label, l.Description)
	}

	b.WriteString("\nTopics (pick one or more):\n")
	for _, t := range c.Topics() {
		box := "[ ]"
		if s.HasTopic(t.Key) {
			box = "[x]"
		}
		fmt.Fprintf(&b, "%s %s (%s)\n", box, t.Label, t.Key)
	}

	b.WriteString("\n")
	switch {
	case s.Generating:
		b.WriteString("Generating...")
	case s.CanStartLearning():
		b.WriteString("Ready. Send `go` to start learning.")
	default:
		b.WriteString("Send `level B1` and `topic travel`, then `go`.")
	}
	return b.String()
}

// RenderReading shows the passage with the learner's selection.
func RenderReading(c *content.Catalog, s quiz.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", c.Title())
	fmt.Fprintf(&b, "Level %s", s.Level)
	if primary, ok := s.PrimaryTopic(); ok {
		label := string(primary)
		if info, ok := c.Topic(primary); ok {
			label = info.Label
		}
		fmt.Fprintf(&b, " | %s", label)
	}
	fmt.Fprintf(&b, " | Approx. %d words\n\n", c.ApproxWords())
	b.WriteString(strings.TrimSpace(c.Passage()))
	b.WriteString("\n\nSend `quiz` when you are ready.")
	return b.String()
}

// RenderQuiz lists the questions with the chosen answers and progress.
func RenderQuiz(c *content.Catalog, s quiz.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Quiz* %d/%d answered (%d%%)\n", s.Answered, s.Total, s.Progress)
	b.WriteString("Select one answer for each question, then submit to see feedback.\n")

	for _, q := range c.Questions() {
		fmt.Fprintf(&b, "\n*%d.* %s\n", q.ID, q.Prompt)
		selected, answered := s.Answer(q.ID)
		for i, opt := range q.Options {
			mark := "  "
			if answered && selected == i {
				mark = "> "
			}
			fmt.Fprintf(&b, "%s%s) %s\n", mark, OptionLetter(i), opt)
		}
	}

	b.WriteString("\n")
	if s.Submitted {
		fmt.Fprintf(&b, "Score: %d/%d. Send `results` to view results.", s.Score, s.Total)
	} else {
		b.WriteString("Answer with `answer 1 B`. Send `submit` when done.")
	}
	return b.String()
}

// RenderResults shows the score, per-question feedback and key vocabulary.
func RenderResults(c *content.Catalog, s quiz.Snapshot) string {
	var b strings.Builder
	b.WriteString("*Great job!*\n")
	fmt.Fprintf(&b, "You scored %d out of %d\n\n", s.Score, s.Total)

	for _, r := range quiz.Review(c, s) {
		switch r.Outcome {
		case quiz.OutcomeCorrect:
			fmt.Fprintf(&b, "%d. %s correct\n", r.QuestionID, OptionLetter(r.Selected))
		case quiz.OutcomeWrong:
			fmt.Fprintf(&b, "%d. %s wrong, answer %s\n", r.QuestionID, OptionLetter(r.Selected), OptionLetter(r.Correct))
		default:
			fmt.Fprintf(&b, "%d. unanswered, answer %s\n", r.QuestionID, OptionLetter(r.Correct))
		}
	}

	b.WriteString("\n*Key Vocabulary*\n")
	for _, v := range c.Vocabulary() {
		fmt.Fprintf(&b, "%s: %s\n", v.Term, v.Definition)
	}

	b.WriteString("\nWant to explore another topic or level? Send `reset`.")
	return b.String()
}

// RenderStatus summarises the session in one line.
func RenderStatus(s quiz.Snapshot) string {
	topics := make([]string, len(s.Topics))
	for i, t := range s.Topics {
		topics[i] = string(t)
	}
	level := string(s.Level)
	if level == "" {
		level = "none"
	}
	topicList := strings.Join(topics, ", ")
	if topicList == "" {
		topicList = "none"
	}

	status := fmt.Sprintf("Stage: %s | Level: %s | Topics: %s | Answered: %d/%d (%d%%)",
		s.Stage, level, topicList, s.Answered, s.Total, s.Progress)
	if s.Generating {
		status += " | Generating..."
	}
	if s.Submitted {
		status += fmt.Sprintf(" | Score: %d/%d", s.Score, s.Total)
	}
	return status
}
