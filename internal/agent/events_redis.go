package agent

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	statsEventsKey = "reader:stats:events"
	statsScoresKey = "reader:stats:scores"
	statsLevelsKey = "reader:stats:levels"
)

// Stats aggregates quiz activity across all sessions.
type Stats struct {
	Events      map[string]int64 `json:"events"`
	Scores      map[int]int64    `json:"scores"`
	Levels      map[string]int64 `json:"levels"`
	Submissions int64            `json:"submissions"`
}

// RedisStatsLogger keeps running counters of quiz events in Redis hashes.
type RedisStatsLogger struct {
	client redis.UniversalClient
}

func NewRedisStatsLogger(client redis.UniversalClient) *RedisStatsLogger {
	return &RedisStatsLogger{client: client}
}

func (l *RedisStatsLogger) LogEvent(event Event) error {
	if l == nil || l.client == nil {
		return fmt.Errorf("stats logger client is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	pipe := l.client.TxPipeline()
	pipe.HIncrBy(ctx, statsEventsKey, event.EventType, 1)
	if event.EventType == EventQuizSubmitted {
		if score, ok := event.Data["score"].(int); ok {
			pipe.HIncrBy(ctx, statsScoresKey, strconv.Itoa(score), 1)
		}
		if level, ok := event.Data["level"].(string); ok && level != "" {
			pipe.HIncrBy(ctx, statsLevelsKey, level, 1)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update stats: %w", err)
	}
	return nil
}

// Stats reads the aggregated counters.
func (l *RedisStatsLogger) Stats(ctx context.Context) (Stats, error) {
	events, err := readCounts(ctx, l.client, statsEventsKey)
	if err != nil {
		return Stats{}, err
	}
	levels, err := readCounts(ctx, l.client, statsLevelsKey)
	if err != nil {
		return Stats{}, err
	}
	rawScores, err := readCounts(ctx, l.client, statsScoresKey)
	if err != nil {
		return Stats{}, err
	}

	scores := make(map[int]int64, len(rawScores))
	for k, v := range rawScores {
		score, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		scores[score] = v
	}

	return Stats{
		Events:      events,
		Scores:      scores,
		Levels:      levels,
		Submissions: events[EventQuizSubmitted],
	}, nil
}

func readCounts(ctx context.Context, client redis.UniversalClient, key string) (map[string]int64, error) {
	raw, err := client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}
