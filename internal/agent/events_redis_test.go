package agent_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-reader/internal/agent"
)

func newRedisStats(t *testing.T) (*agent.RedisStatsLogger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return agent.NewRedisStatsLogger(client), mr
}

func TestRedisStatsLogger_CountsEvents(t *testing.T) {
	stats, mr := newRedisStats(t)

	for _, typ := range []string{agent.EventLevelSelected, agent.EventLevelSelected, agent.EventQuizStarted} {
		require.NoError(t, stats.LogEvent(agent.Event{SessionID: "s", EventType: typ}))
	}

	assert.Equal(t, "2", mr.HGet("reader:stats:events", agent.EventLevelSelected))
	assert.Equal(t, "1", mr.HGet("reader:stats:events", agent.EventQuizStarted))
}

func TestRedisStatsLogger_Submissions(t *testing.T) {
	stats, _ := newRedisStats(t)

	submit := func(score int, level string) {
		require.NoError(t, stats.LogEvent(agent.Event{
			SessionID: "s",
			EventType: agent.EventQuizSubmitted,
			Data:      map[string]any{"score": score, "level": level},
		}))
	}
	submit(5, "B1")
	submit(5, "A2")
	submit(2, "B1")

	got, err := stats.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Submissions)
	assert.Equal(t, map[int]int64{5: 2, 2: 1}, got.Scores)
	assert.Equal(t, map[string]int64{"B1": 2, "A2": 1}, got.Levels)
	assert.Equal(t, int64(3), got.Events[agent.EventQuizSubmitted])
}

func TestRedisStatsLogger_Empty(t *testing.T) {
	stats, _ := newRedisStats(t)

	got, err := stats.Stats(t.Context())
	require.NoError(t, err)
	assert.Zero(t, got.Submissions)
	assert.Empty(t, got.Scores)
}

func TestRedisStatsLogger_Errors(t *testing.T) {
	assert.Error(t, agent.NewRedisStatsLogger(nil).LogEvent(agent.Event{EventType: "x"}))

	stats, mr := newRedisStats(t)
	assert.Error(t, stats.LogEvent(agent.Event{}))

	mr.Close()
	assert.Error(t, stats.LogEvent(agent.Event{EventType: agent.EventQuizStarted}))
}
