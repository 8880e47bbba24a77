// Command gateway serves the persona-conditioned dialogue study: the
// session WebSocket, the HTTP session API, scenario and model listings,
// trace queries and Prometheus metrics.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/driverlab/persona-gateway/internal/conform"
	"github.com/driverlab/persona-gateway/internal/lang"
	"github.com/driverlab/persona-gateway/internal/llm"
	"github.com/driverlab/persona-gateway/internal/results"
	"github.com/driverlab/persona-gateway/internal/scenario"
	"github.com/driverlab/persona-gateway/internal/session"
	"github.com/driverlab/persona-gateway/internal/speech"
	"github.com/driverlab/persona-gateway/internal/trace"
	"github.com/driverlab/persona-gateway/internal/ws"
)

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	if err := os.MkdirAll(cfg.audioDir, 0o755); err != nil {
		slog.Error("create audio dir", "dir", cfg.audioDir, "error", err)
		os.Exit(1)
	}

	scenarios, err := scenario.Load(cfg.scenariosPath)
	if err != nil {
		slog.Error("load scenarios", "path", cfg.scenariosPath, "error", err)
		os.Exit(1)
	}
	slog.Info("scenarios loaded", "path", cfg.scenariosPath, "count", len(scenarios.List()))

	chat := buildChatCaller(cfg)
	conformer := conform.NewPipeline(chat, nil, cfg.llmMaxTokens)
	transcriber := buildTranscriber(cfg)
	synthesizer := buildSynthesizer(cfg)

	var traceStore *trace.Store
	if cfg.traceDBURL != "" {
		traceStore, err = trace.Open(cfg.traceDBURL)
		if err != nil {
			slog.Warn("trace store unavailable, tracing disabled", "error", err)
			traceStore = nil
		} else {
			defer traceStore.Close()
			slog.Info("trace store connected")
		}
	}

	engineCfg := session.Config{
		Chat:        chat,
		Conformer:   conformer,
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Scenarios:   scenarios,
		MaxTokens:   cfg.llmMaxTokens,
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		engine:          session.NewEngine(engineCfg),
		registry:        newSessionRegistry(),
		scenarios:       scenarios,
		chat:            chat,
		writer:          results.NewWriter(cfg.resultsPath),
		traceStore:      traceStore,
		defaultEndpoint: cfg.defaultEndpoint,
		defaultModel:    cfg.defaultModel,
		wsHandler: ws.NewHandler(ws.HandlerConfig{
			Engine:          engineCfg,
			TraceStore:      traceStore,
			DefaultEndpoint: cfg.defaultEndpoint,
			DefaultModel:    cfg.defaultModel,
			MaxConcurrent:   cfg.maxConcurrentSessions,
		}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	slog.Info("gateway listening", "port", cfg.port, "llm_engine", cfg.llmEngine, "tts_engine", cfg.ttsEngine)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func buildChatCaller(cfg config) llm.ChatCaller {
	if cfg.llmEngine == "openai-sdk" {
		slog.Info("using OpenAI SDK chat client", "base_url", cfg.openaiBaseURL)
		return llm.NewSDKClient(cfg.openaiAPIKey, cfg.openaiBaseURL, cfg.llmMaxTokens, cfg.llmTemperature, cfg.llmTopP)
	}
	return llm.NewClient(cfg.llmMaxTokens, cfg.llmTemperature, cfg.llmTopP, cfg.llmPoolSize)
}

func buildTranscriber(cfg config) speech.Transcriber {
	var client *speech.WhisperClient
	switch {
	case cfg.asrEngine == "faster-whisper" && cfg.fasterWhisperURL != "":
		client = speech.NewFasterWhisperClient(cfg.fasterWhisperURL, cfg.asrPoolSize)
	case cfg.whisperURL != "":
		client = speech.NewWhisperClient(cfg.whisperURL, cfg.asrPoolSize)
	default:
		slog.Info("no ASR server configured, voice input disabled")
		return nil
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := client.Warmup(ctx); err != nil {
			slog.Warn("ASR warmup failed", "error", err)
		}
	}()
	return client
}

func buildSynthesizer(cfg config) speech.Synthesizer {
	backends := make(map[string]speech.AudioRenderer)
	client := llm.NewPooledHTTPClient(cfg.ttsPoolSize, 60*time.Second)

	if cfg.piperURL != "" {
		backends["piper"] = speech.NewPiperRenderer(cfg.piperURL, map[lang.Lang]string{
			lang.EN: cfg.piperVoiceEN,
			lang.DE: cfg.piperVoiceDE,
		}, client)
	}
	if cfg.kokoroURL != "" {
		backends["kokoro"] = speech.NewOpenAIRenderer(cfg.kokoroURL, cfg.kokoroModel, cfg.kokoroVoice, client)
	}
	if len(backends) == 0 {
		slog.Info("no TTS server configured, audio output disabled")
		return nil
	}

	fallback := "piper"
	if _, ok := backends[fallback]; !ok {
		fallback = "kokoro"
	}
	return speech.NewSpeaker(backends, fallback, cfg.ttsEngine, cfg.audioDir)
}
