package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ListOllamaModels fetches the installed model names from an Ollama host.
// The operator panel shows these next to the endpoint field so that the
// 404 model-name hint can be resolved without leaving the tool.
func ListOllamaModels(ctx context.Context, endpoint string) ([]string, error) {
	url := BaseURL(endpoint) + "/api/tags"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create tags request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tags request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("tags status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}

	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// TestConnection sends a one-word ping through the given caller and
// reports latency plus the first line of the reply. Used by the operator
// panel before a participant sits down.
func TestConnection(ctx context.Context, caller ChatCaller, endpoint, model string) (string, error) {
	req := Request{
		Endpoint:     endpoint,
		Model:        model,
		SystemPrompt: "You are a concise test assistant.",
		UserPrompt:   "Reply with the single word 'pong'.",
		MaxTokens:    10,
	}

	start := time.Now()
	res, err := caller.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm test failed: %w", err)
	}

	firstLine := res.Text
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	if len(firstLine) > 200 {
		firstLine = firstLine[:200]
	}
	return fmt.Sprintf("LLM ok (%.2fs): %s", time.Since(start).Seconds(), firstLine), nil
}
