package export_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-reader/internal/content"
	"github.com/p-n-ai/pai-reader/internal/export"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

func submittedSnapshot(t *testing.T, answers map[int]int) (*content.Catalog, quiz.Snapshot) {
	t.Helper()
	c := content.Default()
	sched := &quiz.ManualScheduler{}
	sess := quiz.New(c, quiz.WithScheduler(sched))
	sess.SelectLevel(content.LevelB1)
	sess.ToggleTopic(content.TopicHealth)
	sess.ToggleTopic(content.TopicTravel)
	sess.StartLearning()
	sched.Fire()
	sess.ProceedToQuiz()
	for id, opt := range answers {
		sess.SelectAnswer(id, opt)
	}
	return c, sess.Submit()
}

func TestWrite_NotSubmitted(t *testing.T) {
	c := content.Default()
	snap := quiz.New(c).Snapshot()

	err := export.Write(&bytes.Buffer{}, c, snap, export.Meta{})
	assert.True(t, errors.Is(err, export.ErrNotSubmitted))
}

func TestWrite_Workbook(t *testing.T) {
	c, snap := submittedSnapshot(t, map[int]int{1: 1, 2: 0, 4: 1})
	require.Equal(t, 2, snap.Score)

	var buf bytes.Buffer
	meta := export.Meta{SessionID: "sess-1", GeneratedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)}
	require.NoError(t, export.Write(&buf, c, snap, meta))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{export.ResultsSheet, export.VocabularySheet}, f.GetSheetList())

	rows, err := f.GetRows(export.ResultsSheet)
	require.NoError(t, err)

	assert.Equal(t, "Community Garden Morning", rows[0][0])
	assert.Equal(t, []string{"Session", "sess-1"}, rows[1])
	assert.Equal(t, []string{"Level", "B1"}, rows[2])
	assert.Equal(t, []string{"Topics", "health, travel"}, rows[3])
	assert.Equal(t, []string{"Primary topic", "health"}, rows[4])
	assert.Equal(t, []string{"Score", "2/5"}, rows[5])
	assert.Equal(t, []string{"Generated", "2026-03-01T09:30:00Z"}, rows[6])

	assert.Equal(t, "Outcome", rows[8][5])
	q1 := rows[9]
	assert.Equal(t, "1", q1[0])
	assert.Equal(t, "vocab", q1[1])
	assert.Equal(t, "B) A person who helps by choice", q1[3])
	assert.Equal(t, "correct", q1[5])

	assert.Equal(t, "wrong", rows[10][5])
	assert.Equal(t, "", rows[11][3])
	assert.Equal(t, "unanswered", rows[11][5])
	assert.Len(t, rows, 14)

	vocab, err := f.GetRows(export.VocabularySheet)
	require.NoError(t, err)
	require.Len(t, vocab, 6)
	assert.Equal(t, []string{"Term", "Definition"}, vocab[0])
	assert.Equal(t, "Volunteer", vocab[1][0])
}
