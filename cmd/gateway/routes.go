package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driverlab/persona-gateway/internal/llm"
	"github.com/driverlab/persona-gateway/internal/results"
	"github.com/driverlab/persona-gateway/internal/scenario"
	"github.com/driverlab/persona-gateway/internal/session"
	"github.com/driverlab/persona-gateway/internal/trace"
	"github.com/driverlab/persona-gateway/internal/ws"
)

type deps struct {
	engine          *session.Engine
	registry        *sessionRegistry
	scenarios       *scenario.Store
	chat            llm.ChatCaller
	writer          *results.Writer
	traceStore      *trace.Store
	wsHandler       *ws.Handler
	defaultEndpoint string
	defaultModel    string
}

// applyDefaults fills the configured endpoint and model into requests
// that leave them blank, mirroring the prefilled connection fields of
// the operator panel.
func (d deps) applyDefaults(req *session.RunRequest) {
	if req.Endpoint == "" {
		req.Endpoint = d.defaultEndpoint
	}
	if req.Model == "" {
		req.Model = d.defaultModel
	}
}

func registerRoutes(mux *http.ServeMux, d deps) {
	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/scenarios", d.handleScenarios)
	mux.HandleFunc("GET /api/models", d.handleModels)
	mux.HandleFunc("POST /api/llm/test", d.handleLLMTest)
	mux.HandleFunc("POST /api/session/run", d.handleSessionRun)
	mux.HandleFunc("POST /api/session/checkin", d.handleSessionCheckin)
	mux.HandleFunc("POST /api/session/save", d.handleSessionSave)
	mux.Handle("GET /ws/session", d.wsHandler)
	registerTraceRoutes(mux, d.traceStore)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (d deps) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": d.scenarios.List()})
}

func (d deps) handleModels(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		httpError(w, http.StatusBadRequest, "missing endpoint query parameter")
		return
	}
	models, err := llm.ListOllamaModels(r.Context(), endpoint)
	if err != nil {
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (d deps) handleLLMTest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
		Model    string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	msg, err := llm.TestConnection(r.Context(), d.chat, req.Endpoint, req.Model)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": msg})
}

func (d deps) handleSessionRun(w http.ResponseWriter, r *http.Request) {
	var req session.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ParticipantID == "" {
		httpError(w, http.StatusBadRequest, "missing participant_id")
		return
	}
	d.applyDefaults(&req)

	ls := d.registry.get(req.ParticipantID)
	ls.mu.Lock()
	defer ls.mu.Unlock()

	res, err := d.engine.Run(r.Context(), req, ls.history)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	ls.lastReq = req
	ls.lastRun = res
	writeJSON(w, http.StatusOK, res)
}

func (d deps) handleSessionCheckin(w http.ResponseWriter, r *http.Request) {
	var req session.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	d.applyDefaults(&req)
	res, err := d.engine.CheckIn(r.Context(), req)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSessionSave writes the chosen condition of a participant's most
// recent run to the results file.
func (d deps) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParticipantID string `json:"participant_id"`
		Condition     string `json:"condition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ParticipantID == "" {
		httpError(w, http.StatusBadRequest, "missing participant_id")
		return
	}

	ls := d.registry.get(req.ParticipantID)
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.lastRun == nil {
		httpError(w, http.StatusConflict, "no run to save yet")
		return
	}

	var chosen *session.ConditionResult
	for i := range ls.lastRun.Conditions {
		if string(ls.lastRun.Conditions[i].Condition) == req.Condition {
			chosen = &ls.lastRun.Conditions[i]
			break
		}
	}
	if chosen == nil {
		httpError(w, http.StatusBadRequest, "unknown condition: "+req.Condition)
		return
	}

	row := results.Row{
		Timestamp:      time.Now(),
		ParticipantID:  req.ParticipantID,
		ScenarioID:     ls.lastReq.ScenarioID,
		Condition:      chosen.Condition.Title(),
		Profile:        ls.lastReq.Profile,
		PersonaSummary: ls.lastRun.PersonaSummary,
		Transcript:     ls.lastRun.Transcript,
		Response:       chosen.Response,
		LatencySec:     chosen.LatencySec,
	}
	if err := d.writer.Append(row); err != nil {
		slog.Error("results append failed", "error", err)
		httpError(w, http.StatusInternalServerError, "could not write results file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true, "path": d.writer.Path()})
}

func registerTraceRoutes(mux *http.ServeMux, store *trace.Store) {
	disabled := func(w http.ResponseWriter, _ *http.Request) {
		httpError(w, http.StatusNotFound, "tracing disabled")
	}
	if store == nil {
		mux.HandleFunc("GET /api/traces/sessions", disabled)
		mux.HandleFunc("GET /api/traces/sessions/{id}", disabled)
		mux.HandleFunc("GET /api/traces/sessions/{id}/runs/{runId}", disabled)
		return
	}

	mux.HandleFunc("GET /api/traces/sessions", func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)
		sessions, total, err := store.ListSessions(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "total": total})
	})

	mux.HandleFunc("GET /api/traces/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sess, runs, err := store.GetSession(r.PathValue("id"))
		if err != nil {
			httpError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": sess, "runs": runs})
	})

	mux.HandleFunc("GET /api/traces/sessions/{id}/runs/{runId}", func(w http.ResponseWriter, r *http.Request) {
		run, spans, err := store.GetRun(r.PathValue("id"), r.PathValue("runId"))
		if err != nil {
			httpError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"run": run, "spans": spans})
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
