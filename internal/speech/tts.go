package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driverlab/persona-gateway/internal/lang"
	"github.com/driverlab/persona-gateway/internal/metrics"
)

// Synthesizer renders a reply to a WAV file and returns its path. The
// tag prefixes the filename so booth recordings stay attributable to
// their condition.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, l lang.Lang, tag string) (string, error)
}

// AudioRenderer produces WAV bytes from text in the given language.
type AudioRenderer interface {
	Render(ctx context.Context, text string, l lang.Lang) ([]byte, error)
}

// Speaker routes synthesis to a configured backend and persists the
// audio under the output directory. On backend failure it still writes a
// short silent clip so the player UI always has a file to load; the
// error is returned alongside the fallback path.
type Speaker struct {
	router *Router[AudioRenderer]
	engine string
	dir    string
}

func NewSpeaker(backends map[string]AudioRenderer, fallback, engine, dir string) *Speaker {
	return &Speaker{
		router: NewRouter(backends, fallback),
		engine: engine,
		dir:    dir,
	}
}

func (s *Speaker) Synthesize(ctx context.Context, text string, l lang.Lang, tag string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text provided for synthesis")
	}

	start := time.Now()
	backend, err := s.router.Route(s.engine)
	if err != nil {
		return s.writeSilence(tag), err
	}

	audio, err := backend.Render(ctx, text, l)
	if err != nil {
		metrics.Errors.WithLabelValues("tts", "synth").Inc()
		return s.writeSilence(tag), fmt.Errorf("synthesize speech: %w", err)
	}

	path := s.outPath(tag)
	if err = os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}

	metrics.StageDuration.WithLabelValues("tts").Observe(time.Since(start).Seconds())
	return path, nil
}

func (s *Speaker) outPath(tag string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.wav", tag, uuid.NewString()))
}

func (s *Speaker) writeSilence(tag string) string {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_silent_%s.wav", tag, uuid.NewString()))
	if err := os.WriteFile(path, SilenceWAV(1*time.Second), 0o644); err != nil {
		return ""
	}
	return path
}

// --- Piper backend (local neural TTS, one voice model per language) ---

type piperRenderer struct {
	url    string
	voices map[lang.Lang]string
	client *http.Client
}

// NewPiperRenderer creates a renderer for a piper HTTP server. voices
// maps each locale to a piper voice model name.
func NewPiperRenderer(url string, voices map[lang.Lang]string, client *http.Client) AudioRenderer {
	return &piperRenderer{url: url, voices: voices, client: client}
}

func (p *piperRenderer) Render(ctx context.Context, text string, l lang.Lang) ([]byte, error) {
	body, err := json.Marshal(struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}{Text: text, Voice: p.voices[l]})
	if err != nil {
		return nil, fmt.Errorf("marshal piper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.url+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create piper request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doRenderRequest(p.client, req)
}

// --- OpenAI-compatible backend (any server exposing /v1/audio/speech) ---

type openaiRenderer struct {
	url    string
	model  string
	voice  string
	client *http.Client
}

func NewOpenAIRenderer(url, model, voice string, client *http.Client) AudioRenderer {
	return &openaiRenderer{url: url, model: model, voice: voice, client: client}
}

func (o *openaiRenderer) Render(ctx context.Context, text string, _ lang.Lang) ([]byte, error) {
	body, err := json.Marshal(struct {
		Input          string `json:"input"`
		Model          string `json:"model"`
		Voice          string `json:"voice"`
		ResponseFormat string `json:"response_format"`
	}{Input: text, Model: o.model, Voice: o.voice, ResponseFormat: "wav"})
	if err != nil {
		return nil, fmt.Errorf("marshal openai tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.url+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create openai tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doRenderRequest(o.client, req)
}

func doRenderRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
