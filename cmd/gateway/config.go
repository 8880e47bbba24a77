package main

import (
	"os"
	"strconv"
)

type config struct {
	port                  string
	scenariosPath         string
	resultsPath           string
	audioDir              string
	defaultEndpoint       string
	defaultModel          string
	llmEngine             string
	llmMaxTokens          int
	llmTemperature        float64
	llmTopP               float64
	llmPoolSize           int
	asrPoolSize           int
	ttsPoolSize           int
	maxConcurrentSessions int
	asrEngine             string
	whisperURL            string
	fasterWhisperURL      string
	piperURL              string
	piperVoiceEN          string
	piperVoiceDE          string
	kokoroURL             string
	kokoroModel           string
	kokoroVoice           string
	ttsEngine             string
	openaiAPIKey          string
	openaiBaseURL         string
	traceDBURL            string
}

func loadConfig() config {
	return config{
		port:                  envStr("GATEWAY_PORT", "8000"),
		scenariosPath:         envStr("SCENARIOS_PATH", "samples/scenarios.json"),
		resultsPath:           envStr("RESULTS_PATH", "data/experiment_results.csv"),
		audioDir:              envStr("AUDIO_DIR", "data/audio"),
		defaultEndpoint:       envStr("LLM_ENDPOINT", "http://localhost:11434"),
		defaultModel:          envStr("LLM_MODEL", "llama3.2:3b"),
		llmEngine:             envStr("LLM_ENGINE", "http"),
		llmMaxTokens:          envInt("LLM_MAX_TOKENS", 90),
		llmTemperature:        envFloat("LLM_TEMPERATURE", 0.6),
		llmTopP:               envFloat("LLM_TOP_P", 0.9),
		llmPoolSize:           envInt("LLM_POOL_SIZE", 50),
		asrPoolSize:           envInt("ASR_POOL_SIZE", 10),
		ttsPoolSize:           envInt("TTS_POOL_SIZE", 10),
		maxConcurrentSessions: envInt("MAX_CONCURRENT_SESSIONS", 20),
		asrEngine:             envStr("ASR_ENGINE", "whisper"),
		whisperURL:            envStr("WHISPER_SERVER_URL", ""),
		fasterWhisperURL:      envStr("FASTER_WHISPER_URL", ""),
		piperURL:              envStr("PIPER_URL", ""),
		piperVoiceEN:          envStr("PIPER_VOICE_EN", "en_US-lessac-medium"),
		piperVoiceDE:          envStr("PIPER_VOICE_DE", "de_DE-thorsten-medium"),
		kokoroURL:             envStr("KOKORO_URL", ""),
		kokoroModel:           envStr("KOKORO_MODEL", "kokoro"),
		kokoroVoice:           envStr("KOKORO_VOICE", "af_heart"),
		ttsEngine:             envStr("TTS_ENGINE", "piper"),
		openaiAPIKey:          envStr("OPENAI_API_KEY", ""),
		openaiBaseURL:         envStr("OPENAI_BASE_URL", ""),
		traceDBURL:            envStr("TRACE_DB_URL", ""),
	}
}

func envStr(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}
