// Package ws runs one participant session over a WebSocket: the client
// sends a metadata frame first, then run and check-in commands as JSON
// text frames, and receives result events. Conversation history lives
// for the duration of the connection.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/driverlab/persona-gateway/internal/metrics"
	"github.com/driverlab/persona-gateway/internal/session"
	"github.com/driverlab/persona-gateway/internal/trace"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared collaborators for all sessions. Engine
// is a prototype; each session gets its own copy with a session-scoped
// tracer. DefaultEndpoint and DefaultModel fill commands that carry
// neither their own value nor one from the metadata frame.
type HandlerConfig struct {
	Engine          session.Config
	TraceStore      *trace.Store
	DefaultEndpoint string
	DefaultModel    string
	MaxConcurrent   int
}

// Handler manages WebSocket study sessions with admission control.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates a session handler with a concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 20
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, maxConc),
	}
}

// sessionMetadata is the first text frame sent by the client.
type sessionMetadata struct {
	ParticipantID string `json:"participant_id"`
	Language      string `json:"language"`
	Endpoint      string `json:"endpoint"`
	Model         string `json:"model"`
}

// command is any subsequent client frame. Run fields are embedded so the
// client can override per-command what the metadata frame established.
type command struct {
	Type string `json:"type"` // "run" or "checkin"
	session.RunRequest
}

// event is one server-to-client frame.
type event struct {
	Type    string                   `json:"type"`
	Message string                   `json:"message,omitempty"`
	Run     *session.RunResult       `json:"run,omitempty"`
	CheckIn *session.ConditionResult `json:"checkin,omitempty"`
}

// ServeHTTP upgrades the connection and runs the session loop.
// Returns 503 when at capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()

	h.runSession(conn)
}

func (h *Handler) runSession(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, err := readMetadata(conn)
	if err != nil {
		slog.Error("read session metadata", "error", err)
		return
	}

	sessionID := uuid.NewString()
	engineCfg := h.cfg.Engine
	if h.cfg.TraceStore != nil {
		metaJSON, _ := json.Marshal(meta)
		if err = h.cfg.TraceStore.CreateSession(sessionID, meta.ParticipantID, string(metaJSON)); err != nil {
			slog.Warn("trace session create failed", "error", err)
		}
		tracer := trace.NewTracer(h.cfg.TraceStore, sessionID)
		engineCfg.Tracer = tracer
		defer func() {
			tracer.Close()
			if endErr := h.cfg.TraceStore.EndSession(sessionID); endErr != nil {
				slog.Warn("trace session end failed", "error", endErr)
			}
		}()
	}
	engine := session.NewEngine(engineCfg)

	slog.Info("session started", "session_id", sessionID, "participant_id", meta.ParticipantID, "language", meta.Language)

	send := newEventSender(conn)
	hist := session.NewHistory()

	for {
		var cmd command
		if err = conn.ReadJSON(&cmd); err != nil {
			slog.Info("session closed", "session_id", sessionID, "error", err)
			return
		}

		req := cmd.RunRequest
		h.applyDefaults(&req, meta)

		switch cmd.Type {
		case "run":
			res, runErr := engine.Run(ctx, req, hist)
			if runErr != nil {
				send(event{Type: "error", Message: runErr.Error()})
				continue
			}
			send(event{Type: "run_result", Run: res})
		case "checkin":
			res, ciErr := engine.CheckIn(ctx, req)
			if ciErr != nil {
				send(event{Type: "error", Message: ciErr.Error()})
				continue
			}
			send(event{Type: "checkin_result", CheckIn: res})
		default:
			send(event{Type: "error", Message: "unknown command type"})
		}
	}
}

func (h *Handler) applyDefaults(req *session.RunRequest, meta *sessionMetadata) {
	if req.ParticipantID == "" {
		req.ParticipantID = meta.ParticipantID
	}
	if req.Language == "" {
		req.Language = meta.Language
	}
	if req.Endpoint == "" {
		req.Endpoint = meta.Endpoint
	}
	if req.Endpoint == "" {
		req.Endpoint = h.cfg.DefaultEndpoint
	}
	if req.Model == "" {
		req.Model = meta.Model
	}
	if req.Model == "" {
		req.Model = h.cfg.DefaultModel
	}
}

func newEventSender(conn *websocket.Conn) func(event) {
	var mu sync.Mutex
	return func(ev event) {
		mu.Lock()
		defer mu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			slog.Error("write event", "error", err)
		}
	}
}

func readMetadata(conn *websocket.Conn) (*sessionMetadata, error) {
	var meta sessionMetadata
	if err := conn.ReadJSON(&meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
