package conform

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driverlab/persona-gateway/internal/lang"
	"github.com/driverlab/persona-gateway/internal/llm"
)

type stubChat struct {
	reply   string
	err     error
	calls   int
	lastReq llm.Request
}

func (s *stubChat) Chat(_ context.Context, req llm.Request) (*llm.Result, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Result{Text: s.reply}, nil
}

func TestConformCorrectLanguageSkipsRewrite(t *testing.T) {
	chat := &stubChat{}
	p := NewPipeline(chat, nil, 90)

	got := p.Conform(context.Background(), "Slow down a little. Keep more distance ahead.", lang.EN, "http://x", "m")
	assert.Equal(t, "Slow down a little. Keep more distance ahead.", got)
	assert.Zero(t, chat.calls)
}

func TestConformWrongLanguageTriggersRewrite(t *testing.T) {
	chat := &stubChat{reply: "Bleib gelassen im Stau. Atme einmal tief durch."}
	p := NewPipeline(chat, nil, 90)

	got := p.Conform(context.Background(), "Keep calm in the traffic and watch the road ahead.", lang.DE, "http://x", "m")
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, 45, chat.lastReq.MaxTokens)
	assert.Contains(t, chat.lastReq.SystemPrompt, "Deutsch")
	assert.Equal(t, "Bleib gelassen im Stau. Atme einmal tief durch.", got)
}

func TestConformRewriteFailureKeepsOriginal(t *testing.T) {
	chat := &stubChat{err: fmt.Errorf("endpoint down")}
	p := NewPipeline(chat, nil, 90)

	got := p.Conform(context.Background(), "Keep calm in the busy traffic and watch the road ahead now.", lang.DE, "http://x", "m")
	assert.Equal(t, 1, chat.calls)
	// Shaped output still arrives even though the repair failed.
	assert.NotEmpty(t, got)
	sentences := splitSentences(got)
	assert.Len(t, sentences, 2)
}

func TestConformSanitizesBeforeDetection(t *testing.T) {
	chat := &stubChat{}
	p := NewPipeline(chat, nil, 90)

	got := p.Conform(context.Background(), "Sure, slow down a little. *nods* [pause] Keep more distance ahead.", lang.EN, "http://x", "m")
	assert.Equal(t, "slow down a little. Keep more distance ahead.", got)
	assert.Zero(t, chat.calls)
}
