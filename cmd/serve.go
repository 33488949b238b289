package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/browserpilot/gateway/internal/agent"
	"github.com/browserpilot/gateway/internal/bridge"
	"github.com/browserpilot/gateway/internal/config"
	"github.com/browserpilot/gateway/internal/gateway"
	"github.com/browserpilot/gateway/internal/httpapi"
	"github.com/browserpilot/gateway/internal/llm"
	"github.com/browserpilot/gateway/internal/memory"
	"github.com/browserpilot/gateway/internal/registry"
)

// runServe wires every component the gateway needs and blocks until an
// interrupt or terminate signal arrives. It is the root command's default
// action.
func runServe() {
	setupLogging()

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("config load failed", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	if !cfg.HasAnyProvider() {
		slog.Warn("no LLM provider API key configured; run 'browserpilot-gateway onboard' or set an env var")
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		slog.Error("provider setup failed", "error", err)
		os.Exit(1)
	}
	facade := llm.NewFacade(provider)

	sessions := registry.NewSessions()
	pending := registry.NewPending()
	toolBridge := bridge.New(sessions, pending)
	bridgeCfg := cfg.BridgeSnapshot()
	if bridgeCfg.ToolTimeoutSeconds > 0 {
		bridge.ToolTimeout = time.Duration(bridgeCfg.ToolTimeoutSeconds) * time.Second
	}

	var memoryStore *memory.Store
	memCfg := cfg.MemorySnapshot()
	if memCfg.Enabled {
		path := config.ExpandHome(memCfg.Path)
		if err := os.MkdirAll(dirOf(path), 0755); err != nil {
			slog.Error("memory: create directory failed", "path", path, "error", err)
			os.Exit(1)
		}
		store, err := memory.Open(path)
		if err != nil {
			slog.Error("memory: open failed", "path", path, "error", err)
			os.Exit(1)
		}
		defer store.Close()
		memoryStore = store
	}

	orchestrator := agent.New(facade, toolBridge, sessions, memoryStore)
	handlers := httpapi.New(orchestrator)

	server := gateway.NewServer(cfg, sessions, pending)
	server.SetAgentRoutes(handlers.Register)

	stop := make(chan struct{})
	if err := config.Watch(cfgPath, cfg, stop); err != nil {
		slog.Warn("config: file watch disabled", "path", cfgPath, "error", err)
	}
	defer close(stop)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(ctx); err != nil {
		slog.Error("gateway server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("gateway stopped")
}

// setupLogging installs the process-wide slog handler. Debug level with
// --verbose, info otherwise, matching the gateway's own logging idiom.
func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// buildProvider picks the first configured provider in priority order.
// Multiple providers may be configured; only one is active per process.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	providers := cfg.ProvidersSnapshot()
	switch {
	case providers.Anthropic.APIKey != "":
		model := providers.Anthropic.Model
		if model == "" {
			model = "claude-sonnet-4-5"
		}
		return llm.NewAnthropicProvider(providers.Anthropic.APIKey, model), nil
	case providers.OpenAI.APIKey != "":
		model := providers.OpenAI.Model
		if model == "" {
			model = "gpt-4o"
		}
		return llm.NewOpenAIProvider("openai", providers.OpenAI.APIKey, providers.OpenAI.APIBase, model), nil
	case providers.Gemini.APIKey != "":
		model := providers.Gemini.Model
		if model == "" {
			model = "gemini-2.0-flash"
		}
		apiBase := providers.Gemini.APIBase
		if apiBase == "" {
			apiBase = "https://generativelanguage.googleapis.com/v1beta/openai"
		}
		return llm.NewOpenAIProvider("gemini", providers.Gemini.APIKey, apiBase, model), nil
	default:
		return &noProvider{}, nil
	}
}

// noProvider stands in when no provider API key is configured, so the
// gateway still starts (useful for doctor/health checks) but any chat
// request fails loudly instead of silently.
type noProvider struct{}

func (noProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errNoProviderConfigured
}

func (noProvider) ChatStream(ctx context.Context, req llm.ChatRequest, onChunk func(llm.StreamChunk)) (*llm.ChatResponse, error) {
	return nil, errNoProviderConfigured
}

func (noProvider) DefaultModel() string { return "" }
func (noProvider) Name() string         { return "none" }

var errNoProviderConfigured = errors.New("no LLM provider configured; set an API key via onboard or environment variables")

// dirOf returns the parent directory of path, or "." if path has none.
func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
