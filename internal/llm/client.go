package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/driverlab/persona-gateway/internal/metrics"
)

// Message is one role/content pair in a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one blocking chat completion call.
type Request struct {
	Endpoint     string
	Model        string
	SystemPrompt string
	UserPrompt   string
	History      []Message
	MaxTokens    int
}

// Result holds the extracted reply with timing.
type Result struct {
	Text      string  `json:"text"`
	LatencyMs float64 `json:"latency_ms"`
}

// ChatCaller issues one chat completion. Implemented by Client (raw wire
// dialects) and SDKClient (openai-go).
type ChatCaller interface {
	Chat(ctx context.Context, req Request) (*Result, error)
}

// Client talks to a chat endpoint in whichever wire dialect the endpoint
// address indicates. One request per call, no streaming, fixed timeout.
type Client struct {
	maxTokens   int
	temperature float64
	topP        float64
	client      *http.Client
}

const requestTimeout = 60 * time.Second

// NewPooledHTTPClient builds the keep-alive pooled client shared by the
// chat, ASR and TTS backends. poolSize bounds idle connections per host;
// the header timeout keeps a hung backend from pinning a session for the
// full request timeout.
func NewPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       2 * time.Minute,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}

// NewClient creates a dialect-detecting chat client. maxTokens is the
// default generation budget; Request.MaxTokens overrides it per call.
func NewClient(maxTokens int, temperature, topP float64, poolSize int) *Client {
	return &Client{
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		client:      NewPooledHTTPClient(poolSize, requestTimeout),
	}
}

// Chat sends system+history+user as an ordered message array and returns
// the single reply string. Transport failures, non-2xx statuses, and
// responses without extractable content are all errors, never panics.
func (c *Client) Chat(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	dialect := DetectDialect(req.Endpoint)
	url := NormalizeURL(req.Endpoint, dialect)

	body, err := json.Marshal(c.buildPayload(req, dialect))
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "http").Inc()
		return nil, fmt.Errorf("chat request (%s): %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.Errors.WithLabelValues("llm", "status").Inc()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		hint := ""
		if dialect == DialectOllama && resp.StatusCode == http.StatusNotFound {
			hint = " (ollama: model name may not match; run `ollama list` and enter the exact name)"
		}
		return nil, fmt.Errorf("chat request failed (%s): %d %s%s", url, resp.StatusCode, errBody, hint)
	}

	text, err := extractContent(resp.Body, dialect)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "content").Inc()
		return nil, err
	}

	latency := time.Since(start)
	metrics.StageDuration.WithLabelValues("llm").Observe(latency.Seconds())

	return &Result{Text: text, LatencyMs: float64(latency.Milliseconds())}, nil
}

func (c *Client) buildPayload(req Request, dialect Dialect) map[string]any {
	messages := make([]Message, 0, len(req.History)+2)
	messages = append(messages, Message{Role: "system", Content: req.SystemPrompt})
	for _, msg := range req.History {
		if msg.Role == "" || msg.Content == "" {
			continue
		}
		messages = append(messages, msg)
	}
	messages = append(messages, Message{Role: "user", Content: req.UserPrompt})

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	payload := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	if dialect == DialectOllama {
		payload["stream"] = false
		payload["options"] = map[string]any{
			"num_predict": maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		}
		return payload
	}
	payload["max_tokens"] = maxTokens
	payload["temperature"] = c.temperature
	payload["top_p"] = c.topP
	return payload
}

type ollamaResponse struct {
	Message Message `json:"message"`
}

type openaiResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func extractContent(body io.Reader, dialect Dialect) (string, error) {
	var content string
	if dialect == DialectOllama {
		var parsed ollamaResponse
		if err := json.NewDecoder(body).Decode(&parsed); err != nil {
			return "", fmt.Errorf("decode chat response: %w", err)
		}
		content = parsed.Message.Content
	} else {
		var parsed openaiResponse
		if err := json.NewDecoder(body).Decode(&parsed); err != nil {
			return "", fmt.Errorf("decode chat response: %w", err)
		}
		if len(parsed.Choices) > 0 {
			content = parsed.Choices[0].Message.Content
		}
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("chat response missing content")
	}
	return content, nil
}
