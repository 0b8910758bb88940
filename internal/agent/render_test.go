package agent_test

import (
	"strings"
	"testing"

	"github.com/p-n-ai/pai-reader/internal/agent"
	"github.com/p-n-ai/pai-reader/internal/content"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

func TestParseOption(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"A", 0, true},
		{"b", 1, true},
		{"D", 3, true},
		{"1", 0, true},
		{"4", 3, true},
		{"E", 0, false},
		{"0", 0, false},
		{"5", 0, false},
		{"AB", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := agent.ParseOption(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseOption(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestOptionLetter(t *testing.T) {
	if got := agent.OptionLetter(2); got != "C" {
		t.Errorf("OptionLetter(2) = %q, want C", got)
	}
	if got := agent.OptionLetter(-1); got != "-" {
		t.Errorf("OptionLetter(-1) = %q, want -", got)
	}
}

func TestRenderView_PerStage(t *testing.T) {
	c := testCatalog(t)
	sched := &quiz.ManualScheduler{}
	sess := quiz.New(c, quiz.WithScheduler(sched))

	view := agent.RenderView(c, sess.Snapshot())
	if !strings.Contains(view, "A1 Beginner") || !strings.Contains(view, "[ ] Travel (travel)") {
		t.Errorf("onboarding view = %s", view)
	}

	sess.SelectLevel("B1")
	sess.ToggleTopic("travel")
	view = agent.RenderView(c, sess.Snapshot())
	if !strings.Contains(view, "> B1 Intermediate") || !strings.Contains(view, "[x] Travel") {
		t.Errorf("onboarding selection not shown: %s", view)
	}
	if !strings.Contains(view, "Send `go`") {
		t.Errorf("ready hint missing: %s", view)
	}

	sess.StartLearning()
	if view := agent.RenderView(c, sess.Snapshot()); !strings.Contains(view, "Generating...") {
		t.Errorf("generating view = %s", view)
	}

	sched.Fire()
	view = agent.RenderView(c, sess.Snapshot())
	if !strings.Contains(view, "Level B1 | Travel | Approx. 180 words") {
		t.Errorf("reading header = %s", view)
	}

	sess.ProceedToQuiz()
	sess.SelectAnswer(1, 1)
	view = agent.RenderView(c, sess.Snapshot())
	if !strings.Contains(view, "1/5 answered (20%)") || !strings.Contains(view, "> B) A person who helps by choice") {
		t.Errorf("quiz view = %s", view)
	}

	sess.SelectAnswer(2, 0)
	sess.Submit()
	sess.ViewResults()
	view = agent.RenderView(c, sess.Snapshot())
	for _, want := range []string{"You scored 1 out of 5", "1. B correct", "2. A wrong, answer C", "3. unanswered, answer A", "Compost:"} {
		if !strings.Contains(view, want) {
			t.Errorf("results view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	got := agent.RenderStatus(quiz.Snapshot{Stage: quiz.StageOnboarding, Topics: nil, Total: 5})
	want := "Stage: onboarding | Level: none | Topics: none | Answered: 0/5 (0%)"
	if got != want {
		t.Errorf("RenderStatus() = %q, want %q", got, want)
	}

	got = agent.RenderStatus(quiz.Snapshot{
		Stage: quiz.StageQuiz, Level: "A2", Topics: []content.Topic{"travel", "health"},
		Answered: 5, Total: 5, Progress: 100, Submitted: true, Score: 3,
	})
	if !strings.HasSuffix(got, "| Score: 3/5") || !strings.Contains(got, "Topics: travel, health") {
		t.Errorf("RenderStatus() = %q", got)
	}
}
