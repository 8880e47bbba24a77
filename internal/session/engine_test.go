package session

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driverlab/persona-gateway/internal/conform"
	"github.com/driverlab/persona-gateway/internal/lang"
	"github.com/driverlab/persona-gateway/internal/llm"
	"github.com/driverlab/persona-gateway/internal/persona"
	"github.com/driverlab/persona-gateway/internal/scenario"
	"github.com/driverlab/persona-gateway/internal/speech"
)

type recordingChat struct {
	reply    string
	err      error
	requests []llm.Request
}

func (r *recordingChat) Chat(_ context.Context, req llm.Request) (*llm.Result, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Result{Text: r.reply, LatencyMs: 5}, nil
}

type stubTranscriber struct {
	text     string
	language lang.Lang
	err      error
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ string, _ lang.Lang) (*speech.Transcription, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &speech.Transcription{Text: s.text, Language: s.language}, nil
}

type stubSynthesizer struct {
	err   error
	calls []string
}

func (s *stubSynthesizer) Synthesize(_ context.Context, _ string, _ lang.Lang, tag string) (string, error) {
	s.calls = append(s.calls, tag)
	if s.err != nil {
		return "/tmp/fallback_silent.wav", s.err
	}
	return "/tmp/" + tag + ".wav", nil
}

type recordingTracer struct {
	started []string
	ended   []string
	spans   []string
}

func (r *recordingTracer) StartRun(condition, scenarioID, _ string) string {
	r.started = append(r.started, condition)
	return condition + "/" + scenarioID
}

func (r *recordingTracer) EndRun(_ string, _ float64, _, _, status string) {
	r.ended = append(r.ended, status)
}

func (r *recordingTracer) RecordSpan(_, name string, _ time.Time, _ float64, _, _, status, _ string) {
	r.spans = append(r.spans, name+":"+status)
}

func testScenarios(t *testing.T) *scenario.Store {
	t.Helper()
	return scenario.NewStore([]scenario.Scenario{
		{
			ID:     "traffic_jam",
			Title:  "Traffic jam",
			Text:   "You are stuck in a traffic jam on the highway.",
			TextDE: "Du stehst im Stau auf der Autobahn.",
		},
	})
}

func testEngine(chat llm.ChatCaller, tr speech.Transcriber, syn speech.Synthesizer, t *testing.T) *Engine {
	t.Helper()
	return NewEngine(Config{
		Chat:        chat,
		Conformer:   conform.NewPipeline(chat, nil, 90),
		Transcriber: tr,
		Synthesizer: syn,
		Scenarios:   testScenarios(t),
		MaxTokens:   90,
	})
}

func baseRequest() RunRequest {
	return RunRequest{
		ParticipantID:   "P001",
		ScenarioID:      "traffic_jam",
		Profile:         persona.Profile{Openness: 3, Conscientiousness: 3, Extraversion: 3, Agreeableness: 3, Neuroticism: 5},
		OrderPreference: OrderPersonalizedFirst,
		Language:        "en",
		Endpoint:        "http://localhost:8000",
		Model:           "test-model",
		ManualText:      "I am so annoyed by this jam.",
	}
}

func TestRunBothConditions(t *testing.T) {
	chat := &recordingChat{reply: "Slow down a little. Keep more distance ahead."}
	syn := &stubSynthesizer{}
	e := testEngine(chat, nil, syn, t)
	hist := NewHistory()

	res, err := e.Run(context.Background(), baseRequest(), hist)
	require.NoError(t, err)
	require.Len(t, res.Conditions, 2)

	assert.Equal(t, Order{Personalized, NonPersonalized}, res.Order)
	assert.Equal(t, Personalized, res.Conditions[0].Condition)
	assert.Equal(t, NonPersonalized, res.Conditions[1].Condition)

	for _, c := range res.Conditions {
		assert.Equal(t, "Slow down a little. Keep more distance ahead.", c.Response)
		assert.False(t, c.Errored)
		assert.NotEmpty(t, c.AudioPath)
		assert.Greater(t, c.LatencySec, 0.0)
	}

	require.Len(t, chat.requests, 2)
	assert.Contains(t, chat.requests[0].SystemPrompt, "Persona hints:")
	assert.NotContains(t, chat.requests[1].SystemPrompt, "Persona hints:")
	assert.Contains(t, chat.requests[0].UserPrompt, "I am so annoyed by this jam.")

	assert.Equal(t, 2, hist.Len(Personalized))
	assert.Equal(t, 2, hist.Len(NonPersonalized))
	assert.Equal(t, []string{"personalized_1", "non_personalized_2"}, syn.calls)
}

func TestRunValidation(t *testing.T) {
	e := testEngine(&recordingChat{reply: "x."}, nil, nil, t)
	hist := NewHistory()

	req := baseRequest()
	req.Endpoint = "  "
	_, err := e.Run(context.Background(), req, hist)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")

	req = baseRequest()
	req.Model = ""
	_, err = e.Run(context.Background(), req, hist)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")

	req = baseRequest()
	req.ScenarioID = "unknown"
	_, err = e.Run(context.Background(), req, hist)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario")

	assert.Zero(t, hist.Len(Personalized))
}

func TestRunModelFailureDegradesConditionOnly(t *testing.T) {
	chat := &recordingChat{err: fmt.Errorf("connection refused")}
	e := testEngine(chat, nil, nil, t)
	hist := NewHistory()

	res, err := e.Run(context.Background(), baseRequest(), hist)
	require.NoError(t, err)
	require.Len(t, res.Conditions, 2)

	assert.True(t, res.Conditions[0].Errored)
	assert.True(t, strings.HasPrefix(res.Conditions[0].Response, "Personalized error:"))
	assert.True(t, strings.HasPrefix(res.Conditions[1].Response, "Non_Personalized error:"))
	assert.Zero(t, res.Conditions[0].LatencySec)

	// Error paths still append exactly one user and one assistant turn.
	assert.Equal(t, 2, hist.Len(Personalized))
	assert.Equal(t, 2, hist.Len(NonPersonalized))
	turns := hist.Read(Personalized)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Contains(t, turns[1].Content, "error:")
}

func TestRunHistoryFlowsIntoFollowUp(t *testing.T) {
	chat := &recordingChat{reply: "Slow down a little. Keep more distance ahead."}
	e := testEngine(chat, nil, nil, t)
	hist := NewHistory()

	_, err := e.Run(context.Background(), baseRequest(), hist)
	require.NoError(t, err)
	_, err = e.Run(context.Background(), baseRequest(), hist)
	require.NoError(t, err)

	require.Len(t, chat.requests, 4)
	assert.Empty(t, chat.requests[0].History)
	assert.Len(t, chat.requests[2].History, 2)
	assert.Equal(t, "user", chat.requests[2].History[0].Role)
}

func TestRunScenarioFallbackWithoutAudio(t *testing.T) {
	chat := &recordingChat{reply: "Slow down a little. Keep more distance ahead."}
	e := testEngine(chat, nil, nil, t)

	req := baseRequest()
	req.ManualText = ""
	res, err := e.Run(context.Background(), req, NewHistory())
	require.NoError(t, err)
	assert.Equal(t, "You are stuck in a traffic jam on the highway.", res.Transcript)
	assert.Contains(t, res.TranscriptNote, "Using scenario text")
}

func TestRunTranscriptionFailureFallsBack(t *testing.T) {
	chat := &recordingChat{reply: "Slow down a little. Keep more distance ahead."}
	tr := &stubTranscriber{err: fmt.Errorf("whisper down")}
	e := testEngine(chat, tr, nil, t)

	req := baseRequest()
	req.ManualText = ""
	req.AudioPath = "/tmp/clip.wav"
	res, err := e.Run(context.Background(), req, NewHistory())
	require.NoError(t, err)
	assert.Equal(t, "You are stuck in a traffic jam on the highway.", res.Transcript)
	assert.Contains(t, res.TranscriptNote, "Transcription failed")
}

func TestRunNoiseTranscriptFallsBack(t *testing.T) {
	chat := &recordingChat{reply: "Slow down a little. Keep more distance ahead."}
	tr := &stubTranscriber{text: "*static*", language: lang.EN}
	e := testEngine(chat, tr, nil, t)

	req := baseRequest()
	req.ManualText = ""
	req.AudioPath = "/tmp/clip.wav"
	res, err := e.Run(context.Background(), req, NewHistory())
	require.NoError(t, err)
	assert.Equal(t, "You are stuck in a traffic jam on the highway.", res.Transcript)
}

func TestRunDetectedLanguageOverridesSession(t *testing.T) {
	chat := &recordingChat{reply: "Bleib gelassen im Stau. Atme einmal tief durch."}
	tr := &stubTranscriber{text: "Ich stehe schon ewig im Stau", language: lang.DE}
	e := testEngine(chat, tr, nil, t)

	req := baseRequest()
	req.ManualText = ""
	req.AudioPath = "/tmp/clip.wav"
	req.Language = "en"
	res, err := e.Run(context.Background(), req, NewHistory())
	require.NoError(t, err)

	assert.Equal(t, lang.DE, res.Language)
	assert.Greater(t, res.WEREstimate, 0.0)
	assert.Contains(t, chat.requests[0].SystemPrompt, "Sprach-Assistent")
	assert.Contains(t, chat.requests[0].UserPrompt, "Fahrer-Transkript")
}

func TestRunTTSFailureAnnotatesText(t *testing.T) {
	chat := &recordingChat{reply: "Slow down a little. Keep more distance ahead."}
	syn := &stubSynthesizer{err: fmt.Errorf("voice model missing")}
	e := testEngine(chat, nil, syn, t)
	hist := NewHistory()

	res, err := e.Run(context.Background(), baseRequest(), hist)
	require.NoError(t, err)
	assert.Contains(t, res.Conditions[0].Response, "[TTS unavailable right now, please read the text.]")

	turns := hist.Read(Personalized)
	assert.Contains(t, turns[1].Content, "TTS unavailable")
}

func TestRunRecordsStageSpans(t *testing.T) {
	chat := &recordingChat{reply: "Slow down a little. Keep more distance ahead."}
	tracer := &recordingTracer{}
	e := NewEngine(Config{
		Chat:        chat,
		Conformer:   conform.NewPipeline(chat, nil, 90),
		Synthesizer: &stubSynthesizer{},
		Scenarios:   testScenarios(t),
		Tracer:      tracer,
		MaxTokens:   90,
	})

	_, err := e.Run(context.Background(), baseRequest(), NewHistory())
	require.NoError(t, err)

	assert.Equal(t, []string{"personalized", "non_personalized"}, tracer.started)
	assert.Equal(t, []string{
		"llm:completed", "conform:completed", "tts:completed",
		"llm:completed", "conform:completed", "tts:completed",
	}, tracer.spans)
	assert.Equal(t, []string{"completed", "completed"}, tracer.ended)
}

func TestRunModelFailureRecordsErrorSpan(t *testing.T) {
	chat := &recordingChat{err: fmt.Errorf("connection refused")}
	tracer := &recordingTracer{}
	e := NewEngine(Config{
		Chat:      chat,
		Conformer: conform.NewPipeline(chat, nil, 90),
		Scenarios: testScenarios(t),
		Tracer:    tracer,
		MaxTokens: 90,
	})

	_, err := e.Run(context.Background(), baseRequest(), NewHistory())
	require.NoError(t, err)
	assert.Equal(t, []string{"llm:error", "llm:error"}, tracer.spans)
	assert.Equal(t, []string{"error", "error"}, tracer.ended)
}

func TestRunClampsProfileScores(t *testing.T) {
	chat := &recordingChat{reply: "Slow down a little. Keep more distance ahead."}
	e := testEngine(chat, nil, nil, t)

	req := baseRequest()
	req.Profile.Neuroticism = 99
	req.Profile.Openness = -3
	res, err := e.Run(context.Background(), req, NewHistory())
	require.NoError(t, err)
	assert.Contains(t, res.PersonaSummary, "N=5")
	assert.Contains(t, res.PersonaSummary, "O=1")
	assert.NotContains(t, res.PersonaSummary, "99")
}

func TestCheckInClampsProfileScores(t *testing.T) {
	chat := &recordingChat{reply: "How are you doing today? Take a slow breath."}
	e := testEngine(chat, nil, nil, t)

	req := baseRequest()
	req.Profile.Neuroticism = 42
	_, err := e.CheckIn(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, chat.requests, 1)
	assert.Contains(t, chat.requests[0].SystemPrompt, "N=5")
	assert.NotContains(t, chat.requests[0].SystemPrompt, "42")
}

func TestCheckIn(t *testing.T) {
	chat := &recordingChat{reply: "How are you doing today? Take a slow breath."}
	e := testEngine(chat, nil, nil, t)

	res, err := e.CheckIn(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.False(t, res.Errored)
	// The shaper normalizes terminal marks to periods.
	assert.Equal(t, "How are you doing today. Take a slow breath.", res.Response)

	require.Len(t, chat.requests, 1)
	assert.Contains(t, chat.requests[0].SystemPrompt, "Persona hints:")
	assert.Empty(t, chat.requests[0].History)
}

func TestCheckInErrorIsReportedNotFatal(t *testing.T) {
	chat := &recordingChat{err: fmt.Errorf("timeout")}
	e := testEngine(chat, nil, nil, t)

	res, err := e.CheckIn(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.True(t, res.Errored)
	assert.True(t, strings.HasPrefix(res.Response, "Check-in error:"))
}
