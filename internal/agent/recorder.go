package agent

import (
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-reader/internal/quiz"
)

// NewRecorder returns a quiz listener that logs every applied transition as
// an event. Logging failures are reported and never block the session.
func NewRecorder(logger EventLogger, sessionID string, owner Owner) quiz.Listener {
	return func(c quiz.Change) {
		event := EventFromChange(c)
		event.SessionID = sessionID
		event.UserID = owner.UserID
		event.Channel = owner.Channel
		event.CreatedAt = time.Now()

		if err := logger.LogEvent(event); err != nil {
			slog.Warn("failed to log quiz event",
				"error", err,
				"type", event.EventType,
				"session_id", sessionID,
			)
		}
	}
}

// EventFromChange maps an applied transition to an event without session
// identity.
func EventFromChange(c quiz.Change) Event {
	snap := c.Snapshot
	a := c.Action

	switch a.Kind {
	case quiz.ActionSelectLevel:
		return Event{EventType: EventLevelSelected, Data: map[string]any{"level": string(snap.Level)}}
	case quiz.ActionToggleTopic:
		return Event{EventType: EventTopicToggled, Data: map[string]any{
			"topic":    string(a.Topic),
			"selected": snap.HasTopic(a.Topic),
		}}
	case quiz.ActionStartLearning:
		return Event{EventType: EventGenerationStarted, Data: map[string]any{
			"level":  string(snap.Level),
			"topics": topicStrings(snap),
		}}
	case quiz.ActionGenerationComplete:
		return Event{EventType: EventGenerationComplete, Data: map[string]any{}}
	case quiz.ActionProceedToQuiz:
		return Event{EventType: EventQuizStarted, Data: map[string]any{}}
	case quiz.ActionSelectAnswer:
		return Event{EventType: EventAnswerSelected, Data: map[string]any{
			"question_id": a.QuestionID,
			"option":      a.Option,
			"answered":    snap.Answered,
		}}
	case quiz.ActionSubmit:
		primary, _ := snap.PrimaryTopic()
		return Event{EventType: EventQuizSubmitted, Data: map[string]any{
			"score":         snap.Score,
			"total":         snap.Total,
			"answered":      snap.Answered,
			"level":         string(snap.Level),
			"primary_topic": string(primary),
		}}
	case quiz.ActionViewResults:
		return Event{EventType: EventResultsViewed, Data: map[string]any{"score": snap.Score}}
	case quiz.ActionReset:
		return Event{EventType: EventSessionReset, Data: map[string]any{}}
	}
	return Event{EventType: string(a.Kind), Data: map[string]any{}}
}

func topicStrings(s quiz.Snapshot) []string {
	out := make([]string, len(s.Topics))
	for i, t := range s.Topics {
		out[i] = string(t)
	}
	return out
}
