package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-reader/internal/platform/metrics"
)

const dbTimeout = 5 * time.Second

// Event types recorded for applied quiz transitions.
const (
	EventLevelSelected      = "level_selected"
	EventTopicToggled       = "topic_toggled"
	EventGenerationStarted  = "generation_started"
	EventGenerationComplete = "generation_complete"
	EventQuizStarted        = "quiz_started"
	EventAnswerSelected     = "answer_selected"
	EventQuizSubmitted      = "quiz_submitted"
	EventResultsViewed      = "results_viewed"
	EventSessionReset       = "session_reset"
)

// Event represents an analytics event for one session.
type Event struct {
	SessionID string
	UserID    string
	Channel   string
	EventType string
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// Types returns the recorded event types in order.
func (l *MemoryEventLogger) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.EventType
	}
	return out
}

// MultiEventLogger fans events out to several loggers. Every logger sees
// every event; errors are joined.
type MultiEventLogger []EventLogger

func (m MultiEventLogger) LogEvent(event Event) error {
	var errs []error
	for _, l := range m {
		if err := l.LogEvent(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MetricsEventLogger counts events in Prometheus.
type MetricsEventLogger struct {
	m *metrics.Metrics
}

func NewMetricsEventLogger(m *metrics.Metrics) *MetricsEventLogger {
	return &MetricsEventLogger{m: m}
}

func (l *MetricsEventLogger) LogEvent(event Event) error {
	l.m.ObserveEvent(event.EventType)
	if event.EventType == EventQuizSubmitted {
		if score, ok := event.Data["score"].(int); ok {
			l.m.ObserveScore(score)
		}
	}
	return nil
}

// PostgresEventLogger inserts events into quiz_events and records submitted
// results in quiz_results.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO quiz_events (session_id, user_id, channel, event_type, data, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		event.SessionID,
		event.UserID,
		event.Channel,
		event.EventType,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if event.EventType == EventQuizSubmitted {
		if err := l.recordResult(ctx, event, createdAt); err != nil {
			return err
		}
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"session_id", event.SessionID,
		"user_id", event.UserID,
	)
	return nil
}

func (l *PostgresEventLogger) recordResult(ctx context.Context, event Event, at time.Time) error {
	level, _ := event.Data["level"].(string)
	topic, _ := event.Data["primary_topic"].(string)
	score, _ := event.Data["score"].(int)
	total, _ := event.Data["total"].(int)

	_, err := l.pool.Exec(ctx,
		`INSERT INTO quiz_results (session_id, user_id, channel, level, primary_topic, score, total, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (session_id) DO UPDATE SET
		   level = EXCLUDED.level,
		   primary_topic = EXCLUDED.primary_topic,
		   score = EXCLUDED.score,
		   total = EXCLUDED.total,
		   submitted_at = EXCLUDED.submitted_at`,
		event.SessionID, event.UserID, event.Channel, level, topic, score, total, at,
	)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}
