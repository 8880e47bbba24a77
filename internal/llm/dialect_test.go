package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		endpoint string
		want     Dialect
	}{
		{"http://localhost:11434", DialectOllama},
		{"http://localhost:11434/api/chat", DialectOllama},
		{"http://ollama.lab.internal:8080", DialectOllama},
		{"http://192.168.0.5:11434/", DialectOllama},
		{"https://api.openai.com/v1/chat/completions", DialectOpenAI},
		{"http://localhost:8000/v1/chat/completions", DialectOpenAI},
		{"http://localhost:8000", DialectOpenAI},
		{"", DialectOpenAI},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectDialect(tt.endpoint), "endpoint %q", tt.endpoint)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		endpoint string
		dialect  Dialect
		want     string
	}{
		{"http://localhost:11434", DialectOllama, "http://localhost:11434/api/chat"},
		{"http://localhost:11434/", DialectOllama, "http://localhost:11434/api/chat"},
		{"http://localhost:11434/api", DialectOllama, "http://localhost:11434/api/chat"},
		{"http://localhost:11434/api/chat", DialectOllama, "http://localhost:11434/api/chat"},
		{"http://localhost:8000", DialectOpenAI, "http://localhost:8000/v1/chat/completions"},
		{"http://localhost:8000/v1", DialectOpenAI, "http://localhost:8000/v1/chat/completions"},
		{"http://localhost:8000/v1/chat/completions", DialectOpenAI, "http://localhost:8000/v1/chat/completions"},
		{"https://api.openai.com/v1/", DialectOpenAI, "https://api.openai.com/v1/chat/completions"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.endpoint, tt.dialect), "endpoint %q", tt.endpoint)
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"http://localhost:11434/api/chat", "http://localhost:11434"},
		{"http://localhost:11434/api", "http://localhost:11434"},
		{"http://localhost:11434", "http://localhost:11434"},
		{"http://localhost:8000/v1/chat/completions", "http://localhost:8000"},
		{"http://localhost:8000/v1", "http://localhost:8000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BaseURL(tt.endpoint), "endpoint %q", tt.endpoint)
	}
}
