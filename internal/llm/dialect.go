package llm

import "strings"

// Dialect is the wire format a chat endpoint speaks. Operators paste a
// base URL; the dialect is inferred from it rather than configured.
type Dialect string

const (
	// DialectOllama is the Ollama /api/chat format: streaming disabled
	// explicitly, sampling parameters nested under "options".
	DialectOllama Dialect = "ollama"
	// DialectOpenAI is the /v1/chat/completions format with top-level
	// sampling parameters. Default for anything unrecognized.
	DialectOpenAI Dialect = "openai"
)

// DetectDialect classifies an endpoint address by substring markers.
func DetectDialect(endpoint string) Dialect {
	lowered := strings.ToLower(endpoint)
	if strings.Contains(lowered, "api/chat") || strings.Contains(lowered, "11434") || strings.Contains(lowered, "ollama") {
		return DialectOllama
	}
	if strings.Contains(lowered, "v1/chat/completions") {
		return DialectOpenAI
	}
	return DialectOpenAI
}

// NormalizeURL completes a base address into the dialect's full chat URL,
// accepting anything from a bare host to the complete path.
func NormalizeURL(endpoint string, d Dialect) string {
	stripped := strings.TrimRight(endpoint, "/")
	if d == DialectOllama {
		if strings.HasSuffix(stripped, "/api/chat") {
			return stripped
		}
		if strings.HasSuffix(stripped, "/api") {
			return stripped + "/chat"
		}
		return stripped + "/api/chat"
	}
	if strings.HasSuffix(stripped, "/v1/chat/completions") || strings.HasSuffix(stripped, "/chat/completions") {
		return stripped
	}
	if strings.HasSuffix(stripped, "/v1") {
		return stripped + "/chat/completions"
	}
	return stripped + "/v1/chat/completions"
}

// BaseURL strips any chat path suffix back off an endpoint, for sibling
// APIs on the same host (e.g. the Ollama tags listing).
func BaseURL(endpoint string) string {
	stripped := strings.TrimRight(endpoint, "/")
	for _, suffix := range []string{"/api/chat", "/v1/chat/completions", "/chat/completions", "/api", "/v1"} {
		if strings.HasSuffix(stripped, suffix) {
			return strings.TrimSuffix(stripped, suffix)
		}
	}
	return stripped
}
