// Package speech holds the audio edges of a session: transcribing the
// participant's spoken prompt and rendering the assistant reply to a WAV
// file the booth player can load.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/driverlab/persona-gateway/internal/lang"
	"github.com/driverlab/persona-gateway/internal/llm"
	"github.com/driverlab/persona-gateway/internal/metrics"
)

// Transcription is the ASR output for one recorded utterance. Language
// is what the model detected, which may differ from the session hint.
type Transcription struct {
	Text      string    `json:"text"`
	Language  lang.Lang `json:"language"`
	LatencyMs float64   `json:"latency_ms"`
}

// Transcriber converts a recorded audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, hint lang.Lang) (*Transcription, error)
}

// WhisperClient sends recordings as multipart WAV to a whisper-compatible
// HTTP endpoint. Compatible servers differ only in path, so the same
// client covers whisper.cpp (/inference) and faster-whisper sidecars
// (/transcribe); label shows up in errors and logs.
type WhisperClient struct {
	url      string
	endpoint string
	label    string
	client   *http.Client
}

// NewWhisperClient creates a client for whisper.cpp's /inference endpoint.
func NewWhisperClient(url string, poolSize int) *WhisperClient {
	return &WhisperClient{
		url:      url,
		endpoint: "/inference",
		label:    "whisper",
		client:   llm.NewPooledHTTPClient(poolSize, 60*time.Second),
	}
}

// NewFasterWhisperClient creates a client for a faster-whisper sidecar
// exposing /transcribe.
func NewFasterWhisperClient(url string, poolSize int) *WhisperClient {
	return &WhisperClient{
		url:      url,
		endpoint: "/transcribe",
		label:    "faster-whisper",
		client:   llm.NewPooledHTTPClient(poolSize, 60*time.Second),
	}
}

// Transcribe uploads the audio file with an optional language hint and
// returns the transcript plus the language the model detected.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string, hint lang.Lang) (*Transcription, error) {
	start := time.Now()

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err = part.Write(data); err != nil {
		return nil, fmt.Errorf("write wav data: %w", err)
	}
	if hint.Supported() {
		if err = writer.WriteField("language", string(hint)); err != nil {
			return nil, fmt.Errorf("write language field: %w", err)
		}
	}
	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", c.label, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("asr", "http").Inc()
		return nil, fmt.Errorf("%s request: %w", c.label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.Errors.WithLabelValues("asr", "status").Inc()
		return nil, fmt.Errorf("%s status %d: %s", c.label, resp.StatusCode, respBody)
	}

	var result whisperResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", c.label, err)
	}

	latency := time.Since(start)
	metrics.StageDuration.WithLabelValues("asr").Observe(latency.Seconds())

	return &Transcription{
		Text:      result.Text,
		Language:  lang.FromTag(result.Language),
		LatencyMs: float64(latency.Milliseconds()),
	}, nil
}

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Warmup sends a second of silence to verify the server is responsive.
func (c *WhisperClient) Warmup(ctx context.Context) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "warmup.wav")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err = part.Write(SilenceWAV(1 * time.Second)); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	if err = writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+c.endpoint, &body)
	if err != nil {
		return fmt.Errorf("create warmup request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s warmup: %w", c.label, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s warmup status %d", c.label, resp.StatusCode)
	}
	return nil
}
