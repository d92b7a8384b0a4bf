package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnagent/internal/conversation"
	"vulnagent/internal/domain/remediation"
	vaerrors "vulnagent/internal/errors"
	"vulnagent/internal/observability"
	jsonx "vulnagent/internal/shared/json"
)

type queueInvoker struct {
	mu       sync.Mutex
	bodies   []string
	err      error
	requests []remediation.InvocationRequest
}

func (q *queueInvoker) Invoke(_ context.Context, req remediation.InvocationRequest) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requests = append(q.requests, req)
	if q.err != nil {
		return "", q.err
	}
	body := q.bodies[0]
	q.bodies = q.bodies[1:]
	return body, nil
}

const (
	awaitingBody  = `"{'gather_phase': {'content': [{'text': 'Plan: upgrade libfoo'}]}, 'status': 'awaiting_human_input', 'conversation_id': 'conv-7', 'human_prompt': 'Approve?'}"`
	completedBody = `"{'status': 'completed', 'gather_phase': {'content': [{'text': 'Found 3 CVEs'}]}}"`
)

type decoded struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Data    map[string]any `json:"data"`
}

func newTestServer(t *testing.T, invoker *queueInvoker, config Config, opts ...Option) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return New(conversation.NewService(invoker), config, opts...)
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, decoded) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out decoded
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestAnalyzeDecisionFlow(t *testing.T) {
	invoker := &queueInvoker{bodies: []string{awaitingBody, completedBody}}
	s := newTestServer(t, invoker, Config{Addr: ":0"})

	rec, out := do(t, s, http.MethodPost, "/api/analyze", `{"prompt":"scan","swarm_mode":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, out.Success)
	view := out.Data["view"].(map[string]any)
	assert.Equal(t, true, view["awaiting_input"])
	assert.Equal(t, "conv-7", view["conversation_id"])
	assert.Equal(t, "Approve?", view["human_prompt"])

	rec, out = do(t, s, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "awaiting_human_input", out.Data["state"])

	rec, out = do(t, s, http.MethodPost, "/api/handoff/decision", `{"decision":"reject"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", out.Data["view"].(map[string]any)["status"])

	require.Len(t, invoker.requests, 2)
	assert.Equal(t, "reject", invoker.requests[1].HumanResponse)
	require.NotNil(t, invoker.requests[1].ConversationID)
	assert.Equal(t, "conv-7", *invoker.requests[1].ConversationID)

	rec, out = do(t, s, http.MethodGet, "/api/conversations/conv-7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reject", out.Data["decision"])

	rec, out = do(t, s, http.MethodGet, "/api/conversations?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Success)
}

func TestErrorStatusMapping(t *testing.T) {
	t.Run("state error", func(t *testing.T) {
		s := newTestServer(t, &queueInvoker{}, Config{})
		rec, out := do(t, s, http.MethodPost, "/api/handoff/decision", `{"decision":"approve"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No human handoff is pending", out.Error)
	})

	t.Run("blank prompt", func(t *testing.T) {
		s := newTestServer(t, &queueInvoker{}, Config{})
		rec, out := do(t, s, http.MethodPost, "/api/analyze", `{"prompt":"   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Please enter a prompt", out.Error)
	})

	t.Run("semantic error", func(t *testing.T) {
		s := newTestServer(t, &queueInvoker{bodies: []string{`{"error": "model overloaded"}`}}, Config{})
		rec, out := do(t, s, http.MethodPost, "/api/analyze", `{"prompt":"scan"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "model overloaded", out.Error)
	})

	t.Run("transport error", func(t *testing.T) {
		s := newTestServer(t, &queueInvoker{err: vaerrors.NewTransportError(nil, 500, "")}, Config{})
		rec, out := do(t, s, http.MethodPost, "/api/analyze", `{"prompt":"scan"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "HTTP error! status: 500", out.Error)
	})

	t.Run("invalid json", func(t *testing.T) {
		s := newTestServer(t, &queueInvoker{}, Config{})
		rec, _ := do(t, s, http.MethodPost, "/api/analyze", `{"prompt":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCancelHandoff(t *testing.T) {
	s := newTestServer(t, &queueInvoker{bodies: []string{awaitingBody}}, Config{})
	rec, _ := do(t, s, http.MethodPost, "/api/analyze", `{"prompt":"scan","swarm_mode":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := do(t, s, http.MethodPost, "/api/handoff/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := out.Data["view"].(map[string]any)
	assert.Equal(t, "Human handoff cancelled by user", view["error"])
	_, hasEnvelope := out.Data["envelope"]
	assert.False(t, hasEnvelope)
}

func TestNormalizeEndpoint(t *testing.T) {
	invoker := &queueInvoker{}
	s := newTestServer(t, invoker, Config{})

	body, err := jsonx.Marshal(map[string]any{"raw": completedBody, "swarm_mode": true})
	require.NoError(t, err)
	rec, out := do(t, s, http.MethodPost, "/api/normalize", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	sections := out.Data["view"].(map[string]any)["sections"].([]any)
	require.Len(t, sections, 1)
	assert.Equal(t, "Found 3 CVEs", sections[0].(map[string]any)["content"])
	envelope := out.Data["envelope"].(map[string]any)
	assert.Equal(t, "completed", envelope["status"])
	assert.Empty(t, invoker.requests)
}

func TestConversationNotFound(t *testing.T) {
	s := newTestServer(t, &queueInvoker{}, Config{})
	rec, out := do(t, s, http.MethodGet, "/api/conversations/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, out.Success)
}

func TestConversationLogs(t *testing.T) {
	dir := t.TempDir()
	content := "2026-01-01 [INFO] [handoff] [conversation=conv-7] awaiting human input\n" +
		"2026-01-01 [INFO] [handoff] [conversation=other] ignored\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vulnagent-service.log"), []byte(content), 0o644))

	s := newTestServer(t, &queueInvoker{}, Config{LogDir: dir})
	rec, out := do(t, s, http.MethodGet, "/api/conversations/conv-7/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	service := out.Data["service"].(map[string]any)
	entries := service["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "awaiting human input")
}

func TestHealthAndMetrics(t *testing.T) {
	metrics, err := observability.NewMetricsCollector(observability.MetricsConfig{Enabled: true})
	require.NoError(t, err)
	s := newTestServer(t, &queueInvoker{}, Config{Version: "1.2.3"}, WithMetrics(metrics))

	rec, out := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out.Data["status"])
	assert.Equal(t, "1.2.3", out.Data["version"])

	metrics.ObserveOverride()
	rec, _ = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vulnagent_handoff_overrides")
}

func TestMetricsDisabledReturnsNotFound(t *testing.T) {
	s := newTestServer(t, &queueInvoker{}, Config{})
	rec, _ := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJSONMiddlewareRejectsOtherContentTypes(t *testing.T) {
	s := newTestServer(t, &queueInvoker{}, Config{})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("prompt=scan"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &queueInvoker{}, Config{AllowedOrigins: []string{"http://localhost:3000"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
