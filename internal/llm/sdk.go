package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/driverlab/persona-gateway/internal/metrics"
)

// SDKClient issues chat completions through the official OpenAI SDK.
// Unlike Client it is bound to one endpoint at construction; operators
// select it explicitly (engine "openai-sdk") when pointing the study at
// api.openai.com or a compatible hosted service, instead of relying on
// address-based dialect detection.
type SDKClient struct {
	client      openai.Client
	maxTokens   int
	temperature float64
	topP        float64
}

// NewSDKClient creates an SDK-backed chat client. baseURL may be empty
// for the default OpenAI endpoint.
func NewSDKClient(apiKey, baseURL string, maxTokens int, temperature, topP float64) *SDKClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &SDKClient{
		client:      openai.NewClient(opts...),
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
	}
}

// Chat sends system+history+user through the SDK and returns the single
// reply string. Request.Endpoint is ignored; the client is pre-bound.
func (c *SDKClient) Chat(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	for _, msg := range req.History {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(c.temperature),
		TopP:        openai.Float(c.topP),
	})
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "sdk").Inc()
		return nil, fmt.Errorf("sdk chat request: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.Errors.WithLabelValues("llm", "content").Inc()
		return nil, fmt.Errorf("chat response missing content")
	}

	latency := time.Since(start)
	metrics.StageDuration.WithLabelValues("llm").Observe(latency.Seconds())

	return &Result{
		Text:      resp.Choices[0].Message.Content,
		LatencyMs: float64(latency.Milliseconds()),
	}, nil
}
