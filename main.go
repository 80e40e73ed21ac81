// go_transcript: YouTube transcript MCP server.
//
// Exposes two MCP tools: youtube_transcript and transcript_methods.
// Transcripts are acquired by an ordered list of strategies (caption
// endpoint, transcript panel, captured player traffic, Invidious mirrors,
// privileged proxy, lyrics, speech-to-text) and cached in L1 + Redis.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/anatolykoptev/go_transcript/internal/background"
	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
	"github.com/anatolykoptev/go_transcript/internal/transcriptserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env")
	}
	mcpPort := env.Str("MCP_PORT", "8893")

	initEngine()
	c := engine.Cfg

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pages := sources.NewPageLoader(env.Duration("PAGE_STATE_TTL", 2*time.Minute))

	broker := background.NewBroker()
	sources.RegisterHandlers(broker, pages)
	broker.Start(ctx)
	defer broker.Stop()

	deps := sources.Deps{
		Pages:   pages,
		Channel: broker,
		Audio:   sources.NewStreamResolver(),
	}
	if c.BrowserEnabled {
		deps.Captures = sources.NewCaptureStore(env.Duration("CAPTURE_MAX_AGE", 10*time.Minute))
		deps.Browser = sources.NewBrowser(sources.BrowserOptions{
			Bin:        c.BrowserBin,
			ControlURL: c.BrowserControl,
			Headless:   true,
		}, deps.Captures)
		defer func() {
			if err := deps.Browser.Close(); err != nil {
				slog.Warn("browser close failed", slog.Any("error", err))
			}
		}()
	}

	svc := sources.NewService(sources.BuildStrategies(c, deps), sources.ConfigPreference{}, c.StrategyTimeout)

	slog.Info("starting go_transcript",
		slog.String("port", mcpPort),
		slog.String("method", c.TranscriptMethod),
		slog.Bool("browser", c.BrowserEnabled),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_transcript",
		Version: version,
	}, nil)

	actions := broker.Actions()
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	transcriptserver.RegisterTools(server, svc, names)
	slog.Info("tools registered", slog.Int("methods", len(svc.Methods(ctx))))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_transcript",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	c := engine.Config{
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.1),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 1024),
		GeminiAPIKey:         env.Str("GEMINI_API_KEY", ""),
		GeminiAPIBase:        env.Str("GEMINI_API_BASE", "https://generativelanguage.googleapis.com"),
		GeminiModel:          env.Str("GEMINI_MODEL", "gemini-2.5-flash"),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 30*time.Second),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		TranscriptMethod:     env.Str("TRANSCRIPT_METHOD", "auto"),
		TranscriptLanguage:   env.Str("TRANSCRIPT_LANGUAGE", "en"),
		StrategyTimeout:      env.Duration("STRATEGY_TIMEOUT", 30*time.Second),
		DisabledMethods:      env.List("DISABLED_METHODS", ""),
		InvidiousInstances:   env.List("INVIDIOUS_INSTANCES", ""),
		InvidiousDirectory:   env.Str("INVIDIOUS_DIRECTORY", "https://api.invidious.io/instances.json?sort_by=health"),
		MirrorProbeTimeout:   env.Duration("MIRROR_PROBE_TIMEOUT", 4*time.Second),
		MirrorTTL:            env.Duration("MIRROR_TTL", 5*time.Minute),
		BrowserEnabled:       env.Str("BROWSER_ENABLED", "false") == "true",
		BrowserBin:           env.Str("BROWSER_BIN", ""),
		BrowserControl:       env.Str("BROWSER_CONTROL_URL", ""),
		MaxAudioBytes:        int64(env.Int("MAX_AUDIO_BYTES", 20*1024*1024)),
	}
	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 24*time.Hour)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}
