// Package agent drives quiz sessions from chat messages: it keeps one session
// per conversation, maps text commands to quiz actions, renders each stage as
// Markdown and logs applied transitions as analytics events.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/p-n-ai/pai-reader/internal/chat"
	"github.com/p-n-ai/pai-reader/internal/content"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

// ParseMode is the Markdown flavour of rendered views.
const ParseMode = "Markdown"

// Sender delivers messages produced outside a request, such as the reading
// view once generation completes. *chat.Gateway implements it.
type Sender interface {
	Send(ctx context.Context, msg chat.OutboundMessage) error
}

// EngineConfig holds dependencies for the agent engine.
type EngineConfig struct {
	Store  *SessionStore
	Sender Sender
}

// Engine is the core message processor.
type Engine struct {
	store  *SessionStore
	sender Sender
}

// NewEngine creates a new agent engine.
func NewEngine(cfg EngineConfig) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewSessionStore(StoreConfig{})
	}
	return &Engine{
		store:  store,
		sender: cfg.Sender,
	}
}

// Store returns the session store the engine uses.
func (e *Engine) Store() *SessionStore {
	return e.store
}

// SessionKey is the store key of the session for a chat user.
func SessionKey(channel, userID string) string {
	return channel + ":" + userID
}

// ProcessMessage handles an incoming message and returns a response.
func (e *Engine) ProcessMessage(ctx context.Context, msg chat.InboundMessage) (string, error) {
	slog.Info("processing message",
		"channel", msg.Channel,
		"user_id", msg.UserID,
		"text_len", len(msg.Text),
	)

	entry := e.session(msg)
	sess := entry.Session
	c := sess.Catalog()

	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(msg.Text), "/"))
	if len(fields) == 0 {
		return helpText(), nil
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "start":
		snap := sess.Snapshot()
		if snap.Stage != quiz.StageOnboarding || snap.Generating {
			snap = sess.Reset()
		}
		return welcomeText(msg) + "\n\n" + RenderOnboarding(c, snap), nil

	case "help":
		return helpText(), nil

	case "status":
		return RenderStatus(sess.Snapshot()), nil

	case "level":
		return e.handleLevel(sess, args), nil

	case "topic", "topics":
		return e.handleTopic(sess, args), nil

	case "go", "learn":
		return e.handleGo(sess), nil

	case "quiz", "next":
		snap := sess.ProceedToQuiz()
		if snap.Stage != quiz.StageQuiz {
			return notNow(snap), nil
		}
		return RenderQuiz(c, snap), nil

	case "answer":
		return e.handleAnswer(sess, args), nil

	case "submit":
		snap := sess.Submit()
		if !snap.Submitted {
			return notNow(snap), nil
		}
		return fmt.Sprintf("Submitted. Score: %d/%d\nSend `results` to view results.", snap.Score, snap.Total), nil

	case "results":
		snap := sess.ViewResults()
		if snap.Stage != quiz.StageResults {
			return notNow(snap), nil
		}
		return RenderResults(c, snap), nil

	case "reset", "restart":
		return "Starting over.\n\n" + RenderOnboarding(c, sess.Reset()), nil

	default:
		return fmt.Sprintf("Unknown command: %s\nSend `help` to see what you can do.", cmd), nil
	}
}

func (e *Engine) session(msg chat.InboundMessage) *Entry {
	owner := Owner{UserID: msg.UserID, Channel: msg.Channel}
	entry, created := e.store.GetOrCreate(SessionKey(msg.Channel, msg.UserID), owner)
	if created && e.sender != nil {
		entry.OnRelease(entry.Session.Subscribe(e.pushReading(entry.Session, owner)))
	}
	return entry
}

// pushReading sends the reading view when the generation step completes.
// The timer fires outside any request, so the view is pushed.
func (e *Engine) pushReading(sess *quiz.Session, owner Owner) quiz.Listener {
	return func(c quiz.Change) {
		if c.Action.Kind != quiz.ActionGenerationComplete {
			return
		}
		err := e.sender.Send(context.Background(), chat.OutboundMessage{
			Channel:   owner.Channel,
			UserID:    owner.UserID,
			Text:      RenderReading(sess.Catalog(), c.Snapshot),
			ParseMode: ParseMode,
		})
		if err != nil {
			slog.Error("failed to push reading view",
				"error", err,
				"channel", owner.Channel,
				"user_id", owner.UserID,
			)
		}
	}
}

func (e *Engine) handleLevel(sess *quiz.Session, args []string) string {
	c := sess.Catalog()
	if len(args) == 0 {
		return RenderOnboarding(c, sess.Snapshot())
	}
	key := content.Level(strings.ToUpper(args[0]))
	if _, ok := c.Level(key); !ok {
		return fmt.Sprintf("Unknown level: %s\nChoose one of %s.", args[0], levelKeys(c))
	}
	snap := sess.SelectLevel(key)
	if snap.Stage != quiz.StageOnboarding || snap.Generating || snap.Level != key {
		return notNow(snap)
	}
	return RenderOnboarding(c, snap)
}

func (e *Engine) handleTopic(sess *quiz.Session, args []string) string {
	c := sess.Catalog()
	if len(args) == 0 {
		return RenderOnboarding(c, sess.Snapshot())
	}
	// Every topic is checked before any is toggled.
	keys := make([]content.Topic, 0, len(args))
	for _, arg := range args {
		key := content.Topic(strings.ToLower(strings.Trim(arg, ",")))
		if _, ok := c.Topic(key); !ok {
			return fmt.Sprintf("Unknown topic: %s\nChoose from %s.", arg, topicKeys(c))
		}
		keys = append(keys, key)
	}
	before := sess.Snapshot()
	for _, key := range keys {
		sess.ToggleTopic(key)
	}
	snap := sess.Snapshot()
	if snap.Version == before.Version {
		return notNow(snap)
	}
	return RenderOnboarding(c, snap)
}

func (e *Engine) handleGo(sess *quiz.Session) string {
	before := sess.Snapshot()
	switch {
	case before.Generating:
		return "Generating... your reading will arrive shortly."
	case before.Stage != quiz.StageOnboarding:
		return notNow(before)
	case before.Level == "":
		return "Pick a level first, for example `level B1`."
	case len(before.Topics) == 0:
		return "Pick at least one topic first, for example `topic travel`."
	}

	snap := sess.StartLearning()
	if !snap.Generating {
		return notNow(snap)
	}
	if e.sender == nil {
		return "Generating... send `status` to check, then `quiz` once the reading appears."
	}
	return "Generating your reading material..."
}

func (e *Engine) handleAnswer(sess *quiz.Session, args []string) string {
	if len(args) < 2 {
		return "Usage: `answer <question> <A-D>`, for example `answer 1 B`."
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Sprintf("Question must be a number, got %s.", args[0])
	}
	if _, ok := sess.Catalog().Question(id); !ok {
		return fmt.Sprintf("There is no question %d.", id)
	}
	opt, ok := ParseOption(args[1])
	if !ok {
		return fmt.Sprintf("Answer must be A-D or 1-4, got %s.", args[1])
	}

	snap := sess.SelectAnswer(id, opt)
	if got, ok := snap.Answer(id); !ok || got != opt || snap.Stage != quiz.StageQuiz || snap.Submitted {
		return notNow(snap)
	}
	return fmt.Sprintf("Question %d: %s\n%d/%d answered (%d%%)",
		id, OptionLetter(opt), snap.Answered, snap.Total, snap.Progress)
}

// notNow explains why a command had no effect in the current stage.
func notNow(s quiz.Snapshot) string {
	var hint string
	switch {
	case s.Generating:
		hint = "Generating... please wait for your reading."
	case s.Stage == quiz.StageOnboarding:
		hint = "Choose a level and topics, then send `go`."
	case s.Stage == quiz.StageReading:
		hint = "Finish reading, then send `quiz`."
	case s.Stage == quiz.StageQuiz && s.Submitted:
		hint = "Your answers are submitted. Send `results`."
	case s.Stage == quiz.StageQuiz:
		hint = "Answer the questions, then send `submit`."
	default:
		hint = "Send `reset` to try another topic or level."
	}
	return "That is not available right now. " + hint
}

func levelKeys(c *content.Catalog) string {
	var keys []string
	for _, l := range c.Levels() {
		keys = append(keys, string(l.Key))
	}
	return strings.Join(keys, ", ")
}

func topicKeys(c *content.Catalog) string {
	var keys []string
	for _, t := range c.Topics() {
		keys = append(keys, string(t.Key))
	}
	return strings.Join(keys, ", ")
}

func welcomeText(msg chat.InboundMessage) string {
	name := msg.FirstName
	if name == "" {
		name = msg.Username
	}
	if name == "" {
		name = "reader"
	}
	return fmt.Sprintf("Hi %s! Welcome to English Reader.\nPersonalized reading, simple practice.", name)
}

func helpText() string {
	return `*English Reader*
level <A1|A2|B1|B2>  choose your level
topic <name>         add or remove a topic
go                   generate your reading
quiz                 start the quiz
answer <n> <A-D>     answer question n
submit               lock your answers
results              view score and vocabulary
status               where you are
reset                start over`
}
