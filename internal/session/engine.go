package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/driverlab/persona-gateway/internal/conform"
	"github.com/driverlab/persona-gateway/internal/lang"
	"github.com/driverlab/persona-gateway/internal/llm"
	"github.com/driverlab/persona-gateway/internal/metrics"
	"github.com/driverlab/persona-gateway/internal/persona"
	"github.com/driverlab/persona-gateway/internal/prompts"
	"github.com/driverlab/persona-gateway/internal/scenario"
	"github.com/driverlab/persona-gateway/internal/speech"
)

// Tracer persists run records and per-stage spans. Satisfied by
// trace.Tracer.
type Tracer interface {
	StartRun(condition, scenarioID, language string) string
	EndRun(runID string, durationMs float64, transcript, response, status string)
	RecordSpan(runID, name string, startedAt time.Time, durationMs float64, input, output, status, errMsg string)
}

// Config wires the engine's collaborators. Transcriber and Synthesizer
// are optional; without them runs fall back to typed or scenario text
// and skip audio output. Tracer may be nil.
type Config struct {
	Chat        llm.ChatCaller
	Conformer   *conform.Pipeline
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
	Scenarios   *scenario.Store
	Tracer      Tracer
	MaxTokens   int
}

// Engine runs the two-condition dialogue exchange for one participant
// action. It is not safe for concurrent use on a single History.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.Tracer == nil {
		cfg.Tracer = noopTracer{}
	}
	return &Engine{cfg: cfg}
}

type noopTracer struct{}

func (noopTracer) StartRun(_, _, _ string) string { return "" }

func (noopTracer) EndRun(_ string, _ float64, _, _, _ string) {}

func (noopTracer) RecordSpan(_, _ string, _ time.Time, _ float64, _, _, _, _ string) {}

// RunRequest is one participant exchange as submitted by the operator.
type RunRequest struct {
	ParticipantID   string          `json:"participant_id"`
	ScenarioID      string          `json:"scenario_id"`
	Profile         persona.Profile `json:"profile"`
	OrderPreference string          `json:"order_preference"`
	Language        string          `json:"language"`
	Endpoint        string          `json:"endpoint"`
	Model           string          `json:"model"`
	AudioPath       string          `json:"audio_path,omitempty"`
	ManualText      string          `json:"manual_text,omitempty"`
}

// ConditionResult is the outcome of one condition within a run. On a
// model failure Response carries the labeled error text and LatencySec
// is zero; the run as a whole still succeeds.
type ConditionResult struct {
	Condition  Condition `json:"condition"`
	Response   string    `json:"response"`
	AudioPath  string    `json:"audio_path,omitempty"`
	LatencySec float64   `json:"latency_sec"`
	Prompt     string    `json:"prompt_debug,omitempty"`
	Errored    bool      `json:"errored,omitempty"`
}

// RunResult is everything one run produced, in presentation order.
type RunResult struct {
	Transcript     string            `json:"transcript"`
	TranscriptNote string            `json:"transcript_note,omitempty"`
	Language       lang.Lang         `json:"language"`
	PersonaSummary string            `json:"persona_summary"`
	Order          Order             `json:"order"`
	Conditions     []ConditionResult `json:"conditions"`
	WEREstimate    float64           `json:"wer_estimate,omitempty"`
}

// Run executes both conditions sequentially against the same transcript
// and appends each exchange to its condition's history. Validation
// failures abort before any model call; per-condition model failures
// degrade that condition only.
func (e *Engine) Run(ctx context.Context, req RunRequest, hist *History) (*RunResult, error) {
	if strings.TrimSpace(req.Endpoint) == "" {
		return nil, fmt.Errorf("enter an LLM endpoint (e.g. http://localhost:8000)")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("enter a model name (e.g. llama-2-7b-chat)")
	}
	if req.ScenarioID == "" || !e.cfg.Scenarios.Has(req.ScenarioID) {
		return nil, fmt.Errorf("select a scenario first")
	}

	req.Profile = req.Profile.Clamped()

	sessionLang := lang.Parse(req.Language)
	tr := e.resolveTranscript(ctx, req, sessionLang)

	responseLang := sessionLang
	if tr.detected.Supported() {
		responseLang = tr.detected
	}

	summary := persona.Summary(req.Profile, responseLang)
	driverContext := scenario.DriverContext(e.cfg.Scenarios.Text(req.ScenarioID, responseLang), responseLang)
	baseSystem := prompts.System(driverContext, responseLang)
	userPrompt := prompts.User(tr.text, responseLang)

	order := ResolveOrder(req.OrderPreference)
	result := &RunResult{
		Transcript:     tr.text,
		TranscriptNote: tr.note,
		Language:       responseLang,
		PersonaSummary: summary,
		Order:          order,
		WEREstimate:    tr.wer,
	}

	for i, cond := range order {
		system := baseSystem
		if cond == Personalized {
			system = prompts.SystemPersonalized(driverContext, summary, responseLang)
		}
		result.Conditions = append(result.Conditions,
			e.runCondition(ctx, req, hist, cond, i+1, system, userPrompt, responseLang))
	}

	metrics.RunsTotal.Inc()
	return result, nil
}

// runCondition performs one condition's model call, conformance, and
// synthesis, and appends the exchange to that condition's history.
func (e *Engine) runCondition(ctx context.Context, req RunRequest, hist *History, cond Condition, seq int, system, user string, l lang.Lang) ConditionResult {
	runID := e.cfg.Tracer.StartRun(string(cond), req.ScenarioID, string(l))
	start := time.Now()

	res, err := e.cfg.Chat.Chat(ctx, llm.Request{
		Endpoint:     req.Endpoint,
		Model:        req.Model,
		SystemPrompt: system,
		UserPrompt:   user,
		History:      toMessages(hist.Read(cond)),
		MaxTokens:    e.cfg.MaxTokens,
	})
	if err != nil {
		e.cfg.Tracer.RecordSpan(runID, "llm", start, float64(time.Since(start).Milliseconds()), user, "", "error", err.Error())
		errText := fmt.Sprintf("%s error: %v", cond.Title(), err)
		hist.Append(cond, user, errText)
		metrics.ConditionsTotal.WithLabelValues(string(cond), "error").Inc()
		e.cfg.Tracer.EndRun(runID, float64(time.Since(start).Milliseconds()), user, errText, "error")
		slog.Error("condition failed", "condition", cond, "error", err)
		return ConditionResult{
			Condition: cond,
			Response:  errText,
			Prompt:    prompts.Debug(system, user),
			Errored:   true,
		}
	}

	e.cfg.Tracer.RecordSpan(runID, "llm", start, float64(time.Since(start).Milliseconds()), user, res.Text, "completed", "")

	confStart := time.Now()
	cleaned := e.cfg.Conformer.Conform(ctx, res.Text, l, req.Endpoint, req.Model)
	e.cfg.Tracer.RecordSpan(runID, "conform", confStart, float64(time.Since(confStart).Milliseconds()), res.Text, cleaned, "completed", "")

	audioPath := ""
	if e.cfg.Synthesizer != nil {
		tag := fmt.Sprintf("%s_%d", cond, seq)
		ttsStart := time.Now()
		path, ttsErr := e.cfg.Synthesizer.Synthesize(ctx, cleaned, l, tag)
		audioPath = path
		ttsStatus, ttsErrMsg := "completed", ""
		if ttsErr != nil {
			ttsStatus, ttsErrMsg = "error", ttsErr.Error()
			cleaned = cleaned + "\n[" + ttsNote(l) + "]"
			slog.Warn("tts degraded", "condition", cond, "error", ttsErr)
		}
		e.cfg.Tracer.RecordSpan(runID, "tts", ttsStart, float64(time.Since(ttsStart).Milliseconds()), cleaned, path, ttsStatus, ttsErrMsg)
	}

	latency := time.Since(start)
	hist.Append(cond, user, cleaned)
	metrics.ConditionsTotal.WithLabelValues(string(cond), "ok").Inc()
	metrics.E2EDuration.Observe(latency.Seconds())
	e.cfg.Tracer.EndRun(runID, float64(latency.Milliseconds()), user, cleaned, "completed")
	slog.Info("condition completed", "condition", cond, "latency_ms", latency.Milliseconds())

	return ConditionResult{
		Condition:  cond,
		Response:   cleaned,
		AudioPath:  audioPath,
		LatencySec: latency.Seconds(),
		Prompt:     prompts.Debug(system, user),
	}
}

// transcriptResult is the outcome of the transcript fallback chain.
type transcriptResult struct {
	text     string
	note     string
	detected lang.Lang
	wer      float64
}

// resolveTranscript picks the driver transcript: typed text wins, then
// ASR, then the scenario's own text. The note tells the operator when
// something fell back; the WER estimate is only set for real ASR text.
func (e *Engine) resolveTranscript(ctx context.Context, req RunRequest, hint lang.Lang) transcriptResult {
	if manual := strings.TrimSpace(req.ManualText); manual != "" {
		return transcriptResult{text: manual, detected: lang.Unknown}
	}

	fallback := e.cfg.Scenarios.Text(req.ScenarioID, hint)

	if req.AudioPath == "" || e.cfg.Transcriber == nil {
		return transcriptResult{text: fallback, note: "No audio captured. Using scenario text instead.", detected: lang.Unknown}
	}

	tr, err := e.cfg.Transcriber.Transcribe(ctx, req.AudioPath, hint)
	if err != nil {
		return transcriptResult{text: fallback, note: fmt.Sprintf("Transcription failed: %v", err), detected: lang.Unknown}
	}

	text := strings.TrimSpace(tr.Text)
	if speech.IsNoiseTranscript(text) {
		metrics.ASRNoiseFiltered.Inc()
		return transcriptResult{text: fallback, note: "No speech detected. Using scenario text instead.", detected: lang.Unknown}
	}

	wer := speech.ComputeWER(fallback, text)
	metrics.ASRWEREstimate.Set(wer)

	return transcriptResult{text: text, detected: tr.Language, wer: wer}
}

// CheckIn generates the single empathetic opening line. It is always
// persona-conditioned, uses no conversation history, and does not touch
// the run histories.
func (e *Engine) CheckIn(ctx context.Context, req RunRequest) (*ConditionResult, error) {
	if strings.TrimSpace(req.Endpoint) == "" {
		return nil, fmt.Errorf("enter an LLM endpoint (e.g. http://localhost:8000)")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("enter a model name (e.g. llama-2-7b-chat)")
	}
	if req.ScenarioID == "" || !e.cfg.Scenarios.Has(req.ScenarioID) {
		return nil, fmt.Errorf("select a scenario first")
	}

	req.Profile = req.Profile.Clamped()

	l := lang.Parse(req.Language)
	summary := persona.Summary(req.Profile, l)
	driverContext := scenario.DriverContext(e.cfg.Scenarios.Text(req.ScenarioID, l), l)
	system := prompts.CheckinSystem(driverContext, summary, l)
	user := prompts.CheckinUser(l)
	debug := prompts.Debug(system, user)

	start := time.Now()
	res, err := e.cfg.Chat.Chat(ctx, llm.Request{
		Endpoint:     req.Endpoint,
		Model:        req.Model,
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    e.cfg.MaxTokens,
	})
	if err != nil {
		return &ConditionResult{
			Response: fmt.Sprintf("Check-in error: %v", err),
			Prompt:   debug,
			Errored:  true,
		}, nil
	}

	cleaned := e.cfg.Conformer.Conform(ctx, res.Text, l, req.Endpoint, req.Model)

	audioPath := ""
	if e.cfg.Synthesizer != nil {
		path, ttsErr := e.cfg.Synthesizer.Synthesize(ctx, cleaned, l, "checkin")
		audioPath = path
		if ttsErr != nil {
			cleaned = cleaned + "\n[" + ttsNote(l) + "]"
		}
	}

	metrics.CheckinsTotal.Inc()
	return &ConditionResult{
		Response:   cleaned,
		AudioPath:  audioPath,
		LatencySec: time.Since(start).Seconds(),
		Prompt:     debug,
	}, nil
}

func ttsNote(l lang.Lang) string {
	if l == lang.DE {
		return "TTS aktuell nicht verfügbar, bitte Text lesen."
	}
	return "TTS unavailable right now, please read the text."
}

func toMessages(turns []Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}
