package conform

import (
	"context"
	"log/slog"

	"github.com/driverlab/persona-gateway/internal/lang"
	"github.com/driverlab/persona-gateway/internal/llm"
	"github.com/driverlab/persona-gateway/internal/metrics"
	"github.com/driverlab/persona-gateway/internal/prompts"
)

// Pipeline applies the full output-conformance chain to a raw model
// reply: sanitize, scrub leaks, repair the language once if the reply is
// dominantly in the wrong one, then shape to the two-sentence budget.
type Pipeline struct {
	chat      llm.ChatCaller
	detector  Detector
	maxTokens int
}

// NewPipeline builds a conformance pipeline. maxTokens is the normal
// generation budget; the one-shot rewrite repair uses half of it.
func NewPipeline(chat llm.ChatCaller, detector Detector, maxTokens int) *Pipeline {
	if detector == nil {
		detector = MarkerDetector{}
	}
	return &Pipeline{chat: chat, detector: detector, maxTokens: maxTokens}
}

// Conform never fails: any repair error falls back to shaping whatever
// text survived the earlier stages.
func (p *Pipeline) Conform(ctx context.Context, raw string, l lang.Lang, endpoint, model string) string {
	cleaned := Sanitize(raw)
	cleaned = ScrubLeaks(cleaned, l)

	if WrongLanguage(p.detector, cleaned, l) {
		if rewritten, ok := p.rewrite(ctx, cleaned, l, endpoint, model); ok {
			cleaned = rewritten
			metrics.LanguageRepairs.Inc()
		}
	}

	return Truncate(cleaned, l)
}

// rewrite asks the model once to restate the reply in the target
// language. The result goes through the same cleanup chain; a failed or
// empty rewrite is discarded.
func (p *Pipeline) rewrite(ctx context.Context, text string, l lang.Lang, endpoint, model string) (string, bool) {
	system, user := prompts.Rewrite(text, l)
	res, err := p.chat.Chat(ctx, llm.Request{
		Endpoint:     endpoint,
		Model:        model,
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    p.maxTokens / 2,
	})
	if err != nil {
		slog.Warn("language rewrite failed", "error", err)
		return "", false
	}

	cleaned := Sanitize(res.Text)
	cleaned = ScrubLeaks(cleaned, l)
	if cleaned == "" {
		return "", false
	}
	return Truncate(cleaned, l), true
}
