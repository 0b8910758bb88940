package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-reader/internal/agent"
	"github.com/p-n-ai/pai-reader/internal/api"
	"github.com/p-n-ai/pai-reader/internal/export"
	"github.com/p-n-ai/pai-reader/internal/platform/metrics"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	handler http.Handler
	sched   *quiz.ManualScheduler
	store   *agent.SessionStore
	events  *agent.MemoryEventLogger
}

func newTestServer(t *testing.T, opts api.Options) *testServer {
	t.Helper()
	sched := &quiz.ManualScheduler{}
	events := agent.NewMemoryEventLogger()
	store := agent.NewSessionStore(agent.StoreConfig{
		Events:  events,
		Options: []quiz.Option{quiz.WithScheduler(sched)},
	})
	opts.Store = store
	return &testServer{
		handler: api.NewServer(opts).Router(),
		sched:   sched,
		store:   store,
		events:  events,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (ts *testServer) create(t *testing.T) api.SessionView {
	t.Helper()
	rec, env := ts.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{"user_id": "u-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var view api.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func (ts *testServer) act(t *testing.T, id string, action map[string]any) (int, api.SessionView) {
	t.Helper()
	rec, env := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/actions", action)
	var view api.SessionView
	if env.Success {
		require.NoError(t, json.Unmarshal(env.Data, &view))
	}
	return rec.Code, view
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	rec, env := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

type checkFunc func(context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestReady(t *testing.T) {
	ts := newTestServer(t, api.Options{Checks: map[string]api.HealthChecker{
		"database": checkFunc(func(context.Context) error { return nil }),
	}})
	rec, _ := ts.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts = newTestServer(t, api.Options{Checks: map[string]api.HealthChecker{
		"cache": checkFunc(func(context.Context) error { return errors.New("down") }),
	}})
	rec, env := ts.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_ready", env.Error.Code)
}

func TestCatalog_OmitsAnswerKey(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	rec, env := ts.do(t, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cat api.CatalogView
	require.NoError(t, json.Unmarshal(env.Data, &cat))
	assert.Len(t, cat.Levels, 4)
	assert.Len(t, cat.Topics, 5)
	assert.Equal(t, "Community Garden Morning", cat.Material.Title)
	assert.Len(t, cat.Material.Questions, 5)
	assert.NotContains(t, string(env.Data), `"answer"`)
}

func TestSession_FullFlow(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	view := ts.create(t)
	id := view.ID
	assert.Equal(t, quiz.StageOnboarding, view.Snapshot.Stage)
	assert.Empty(t, view.Snapshot.Topics)

	code, view := ts.act(t, id, map[string]any{"type": "select_level", "level": "B1"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, *view.Applied)

	ts.act(t, id, map[string]any{"type": "toggle_topic", "topic": "travel"})
	_, view = ts.act(t, id, map[string]any{"type": "start_learning"})
	assert.True(t, view.Snapshot.Generating)

	_, view = ts.act(t, id, map[string]any{"type": "toggle_topic", "topic": "health"})
	assert.False(t, *view.Applied, "actions are rejected while generating")

	ts.sched.Fire()
	rec, env := ts.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, quiz.StageReading, view.Snapshot.Stage)

	ts.act(t, id, map[string]any{"type": "proceed_to_quiz"})
	for qid, opt := range map[int]int{1: 1, 2: 2, 3: 0, 4: 1, 5: 1} {
		code, _ := ts.act(t, id, map[string]any{"type": "select_answer", "question_id": qid, "option": opt})
		require.Equal(t, http.StatusOK, code)
	}

	_, view = ts.act(t, id, map[string]any{"type": "submit"})
	assert.True(t, view.Snapshot.Submitted)
	assert.Equal(t, 5, view.Snapshot.Score)
	require.Len(t, view.Review, 5)
	assert.Equal(t, quiz.OutcomeCorrect, view.Review[0].Outcome)

	_, view = ts.act(t, id, map[string]any{"type": "view_results"})
	assert.Equal(t, quiz.StageResults, view.Snapshot.Stage)

	_, view = ts.act(t, id, map[string]any{"type": "reset"})
	assert.Equal(t, quiz.StageOnboarding, view.Snapshot.Stage)
	assert.Empty(t, view.Review)

	types := ts.events.Types()
	assert.Equal(t, agent.EventLevelSelected, types[0])
	assert.Equal(t, agent.EventSessionReset, types[len(types)-1])
	for _, e := range ts.events.Events() {
		assert.Equal(t, id, e.SessionID)
		assert.Equal(t, "u-1", e.UserID)
		assert.Equal(t, api.ChannelName, e.Channel)
	}
}

func TestSession_ReviewHiddenBeforeSubmit(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	id := ts.create(t).ID
	ts.act(t, id, map[string]any{"type": "select_level", "level": "A1"})

	rec, _ := ts.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.NotContains(t, rec.Body.String(), `"review"`)
}

func TestAction_Validation(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	id := ts.create(t).ID

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"unknown type", map[string]any{"type": "teleport"}, http.StatusBadRequest},
		{"internal type", map[string]any{"type": "generation_complete"}, http.StatusBadRequest},
		{"level missing", map[string]any{"type": "select_level"}, http.StatusBadRequest},
		{"topic missing", map[string]any{"type": "toggle_topic"}, http.StatusBadRequest},
		{"option missing", map[string]any{"type": "select_answer", "question_id": 1}, http.StatusBadRequest},
		{"unknown level is a no-op", map[string]any{"type": "select_level", "level": "C2"}, http.StatusOK},
		{"answer out of stage is a no-op", map[string]any{"type": "select_answer", "question_id": 1, "option": 0}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, view := ts.act(t, id, tt.body)
			assert.Equal(t, tt.status, code)
			if code == http.StatusOK {
				assert.False(t, *view.Applied)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/actions", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestBody_TooLarge(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	id := ts.create(t).ID
	huge := `{"type":"select_level","level":"` + strings.Repeat("B", 8<<10) + `"}`

	for _, path := range []string{"/api/v1/sessions", "/api/v1/sessions/" + id + "/actions"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(huge))
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	assert.Equal(t, 1, ts.store.Len())
}

func TestSession_NotFoundAndInvalidID(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	rec, env := ts.do(t, http.MethodGet, "/api/v1/sessions/6f1c3c1e-8a53-4c1b-9a53-3d1d2f1c0b7a", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", env.Error.Code)
}

func TestSession_Delete(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	id := ts.create(t).ID
	require.Equal(t, 1, ts.store.Len())

	rec, _ := ts.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, ts.store.Len())

	rec, _ = ts.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSession_EmptyBody(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	id := ts.create(t).ID

	rec, env := ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/export.xlsx", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_submitted", env.Error.Code)

	ts.act(t, id, map[string]any{"type": "select_level", "level": "A2"})
	ts.act(t, id, map[string]any{"type": "toggle_topic", "topic": "lifestyle"})
	ts.act(t, id, map[string]any{"type": "start_learning"})
	ts.sched.Fire()
	ts.act(t, id, map[string]any{"type": "proceed_to_quiz"})
	ts.act(t, id, map[string]any{"type": "select_answer", "question_id": 3, "option": 0})
	ts.act(t, id, map[string]any{"type": "submit"})

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), id)

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	score, err := f.GetCellValue(export.ResultsSheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "1/5", score)
}

type fakeStats struct{ stats agent.Stats }

func (f fakeStats) Stats(context.Context) (agent.Stats, error) { return f.stats, nil }

func TestStats(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	rec, env := ts.do(t, http.MethodGet, "/api/v1/stats", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "stats_disabled", env.Error.Code)

	ts = newTestServer(t, api.Options{Stats: fakeStats{agent.Stats{Submissions: 7}}})
	rec, env = ts.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got agent.Stats
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, int64(7), got.Submissions)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(nil)
	ts := newTestServer(t, api.Options{Metrics: m})

	ts.do(t, http.MethodGet, "/healthz", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reader_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestCORS_Preflight(t *testing.T) {
	ts := newTestServer(t, api.Options{AllowedOrigins: []string{"https://reader.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "https://reader.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://reader.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestActionRequest_Action(t *testing.T) {
	qid, opt := 2, 3
	a, err := api.ActionRequest{Type: quiz.ActionSelectAnswer, QuestionID: &qid, Option: &opt}.Action()
	require.NoError(t, err)
	assert.Equal(t, quiz.SelectAnswer(2, 3), a)

	a, err = api.ActionRequest{Type: quiz.ActionReset}.Action()
	require.NoError(t, err)
	assert.Equal(t, quiz.Reset(), a)
}
