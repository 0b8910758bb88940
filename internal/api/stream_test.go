package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-reader/internal/api"
	"github.com/p-n-ai/pai-reader/internal/content"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

func dialStream(t *testing.T, ts *testServer, id string) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + id + "/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn, ctx
}

func readView(t *testing.T, ctx context.Context, conn *websocket.Conn) api.SessionView {
	t.Helper()
	var view api.SessionView
	require.NoError(t, wsjson.Read(ctx, conn, &view))
	return view
}

func TestStream_PushesTransitions(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	id := ts.create(t).ID
	entry, err := ts.store.Get(id)
	require.NoError(t, err)

	conn, ctx := dialStream(t, ts, id)

	view := readView(t, ctx, conn)
	assert.Equal(t, id, view.ID)
	assert.Equal(t, quiz.StageOnboarding, view.Snapshot.Stage)

	entry.Session.SelectLevel(content.LevelB2)
	view = readView(t, ctx, conn)
	assert.Equal(t, content.LevelB2, view.Snapshot.Level)

	entry.Session.ToggleTopic(content.TopicHealth)
	entry.Session.StartLearning()

	// Intermediate snapshots may be coalesced; versions never go backwards.
	last := view.Snapshot.Version
	for !view.Snapshot.Generating {
		view = readView(t, ctx, conn)
		assert.Greater(t, view.Snapshot.Version, last)
		last = view.Snapshot.Version
	}

	ts.sched.Fire()
	view = readView(t, ctx, conn)
	assert.Equal(t, quiz.StageReading, view.Snapshot.Stage)
	assert.False(t, view.Snapshot.Generating)
}

func TestStream_RejectedActionSendsNothing(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	id := ts.create(t).ID
	entry, err := ts.store.Get(id)
	require.NoError(t, err)

	conn, ctx := dialStream(t, ts, id)
	readView(t, ctx, conn)

	entry.Session.ProceedToQuiz()
	entry.Session.SelectLevel(content.LevelA2)

	view := readView(t, ctx, conn)
	assert.Equal(t, content.LevelA2, view.Snapshot.Level)
	assert.Equal(t, quiz.StageOnboarding, view.Snapshot.Stage)
}

func TestStream_UnknownSession(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/sessions/6f1c3c1e-8a53-4c1b-9a53-3d1d2f1c0b7a/stream")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
