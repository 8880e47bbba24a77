package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driverlab/persona-gateway/internal/conform"
	"github.com/driverlab/persona-gateway/internal/llm"
	"github.com/driverlab/persona-gateway/internal/persona"
	"github.com/driverlab/persona-gateway/internal/scenario"
	"github.com/driverlab/persona-gateway/internal/session"
)

type fixedChat struct{ reply string }

func (f fixedChat) Chat(_ context.Context, _ llm.Request) (*llm.Result, error) {
	return &llm.Result{Text: f.reply}, nil
}

type capturingChat struct {
	reply    string
	requests []llm.Request
}

func (c *capturingChat) Chat(_ context.Context, req llm.Request) (*llm.Result, error) {
	c.requests = append(c.requests, req)
	return &llm.Result{Text: c.reply}, nil
}

func dialTestSession(t *testing.T) (*websocket.Conn, func()) {
	t.Helper()
	chat := fixedChat{reply: "Slow down a little. Keep more distance ahead."}
	cfg := session.Config{
		Chat:      chat,
		Conformer: conform.NewPipeline(chat, nil, 90),
		Scenarios: scenario.NewStore([]scenario.Scenario{{
			ID:    "traffic_jam",
			Title: "Traffic jam",
			Text:  "You are stuck in a traffic jam on the highway.",
		}}),
		MaxTokens: 90,
	}
	h := NewHandler(HandlerConfig{Engine: cfg})
	srv := httptest.NewServer(h)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestSessionRunOverWebSocket(t *testing.T) {
	conn, cleanup := dialTestSession(t)
	defer cleanup()

	require.NoError(t, conn.WriteJSON(map[string]string{
		"participant_id": "P001",
		"language":       "en",
		"endpoint":       "http://localhost:8000",
		"model":          "test-model",
	}))

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":             "run",
		"scenario_id":      "traffic_jam",
		"order_preference": session.OrderPersonalizedFirst,
		"manual_text":      "I hate this traffic.",
		"profile":          persona.Profile{Neuroticism: 5},
	}))

	var ev struct {
		Type string             `json:"type"`
		Run  *session.RunResult `json:"run"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "run_result", ev.Type)
	require.NotNil(t, ev.Run)
	require.Len(t, ev.Run.Conditions, 2)
	assert.Equal(t, session.Personalized, ev.Run.Conditions[0].Condition)
	assert.Equal(t, "I hate this traffic.", ev.Run.Transcript)
}

func TestSessionValidationErrorEvent(t *testing.T) {
	conn, cleanup := dialTestSession(t)
	defer cleanup()

	// Metadata without endpoint; the run command omits it too.
	require.NoError(t, conn.WriteJSON(map[string]string{"participant_id": "P002", "language": "en"}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        "run",
		"scenario_id": "traffic_jam",
		"manual_text": "hello",
	}))

	var ev struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "error", ev.Type)
	assert.Contains(t, ev.Message, "endpoint")
}

func TestSessionUnknownCommand(t *testing.T) {
	conn, cleanup := dialTestSession(t)
	defer cleanup()

	require.NoError(t, conn.WriteJSON(map[string]string{"participant_id": "P003"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "bogus"}))

	var ev struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "error", ev.Type)
}

func TestSessionUsesConfiguredDefaults(t *testing.T) {
	chat := &capturingChat{reply: "Slow down a little. Keep more distance ahead."}
	cfg := session.Config{
		Chat:      chat,
		Conformer: conform.NewPipeline(chat, nil, 90),
		Scenarios: scenario.NewStore([]scenario.Scenario{{
			ID:    "traffic_jam",
			Title: "Traffic jam",
			Text:  "You are stuck in a traffic jam on the highway.",
		}}),
		MaxTokens: 90,
	}
	h := NewHandler(HandlerConfig{
		Engine:          cfg,
		DefaultEndpoint: "http://localhost:11434",
		DefaultModel:    "llama3.2:3b",
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// Neither the metadata frame nor the command names an endpoint or
	// model; the handler's configured defaults fill both.
	require.NoError(t, conn.WriteJSON(map[string]string{"participant_id": "P005", "language": "en"}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        "run",
		"scenario_id": "traffic_jam",
		"manual_text": "stuck here forever",
	}))

	var ev struct {
		Type string             `json:"type"`
		Run  *session.RunResult `json:"run"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "run_result", ev.Type)
	require.NotNil(t, ev.Run)
	require.NotEmpty(t, chat.requests)
	assert.Equal(t, "http://localhost:11434", chat.requests[0].Endpoint)
	assert.Equal(t, "llama3.2:3b", chat.requests[0].Model)
}

func TestSessionCheckinOverWebSocket(t *testing.T) {
	conn, cleanup := dialTestSession(t)
	defer cleanup()

	require.NoError(t, conn.WriteJSON(map[string]string{
		"participant_id": "P004",
		"language":       "en",
		"endpoint":       "http://localhost:8000",
		"model":          "test-model",
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        "checkin",
		"scenario_id": "traffic_jam",
	}))

	var ev struct {
		Type    string                   `json:"type"`
		CheckIn *session.ConditionResult `json:"checkin"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "checkin_result", ev.Type)
	require.NotNil(t, ev.CheckIn)
	assert.NotEmpty(t, ev.CheckIn.Response)
}
