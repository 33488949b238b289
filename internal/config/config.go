// Package config is the gateway's configuration layer (A1): a JSON5 file on
// disk, overlaid by environment variables, with hot-reload via fsnotify.
package config

import "sync"

// Config is the root configuration for the browser-automation gateway.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Providers ProvidersConfig `json:"providers"`
	Bridge    BridgeConfig    `json:"bridge"`
	Memory    MemoryConfig    `json:"memory"`
	mu        sync.RWMutex
}

// GatewayConfig controls the HTTP/WebSocket listener.
type GatewayConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // WebSocket CORS whitelist (empty = allow all)
}

// ProvidersConfig maps provider name to its config.
type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic"`
	OpenAI    ProviderConfig `json:"openai"`
	Gemini    ProviderConfig `json:"gemini"`
}

// ProviderConfig is one LLM backend's credentials and optional overrides.
type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	APIBase string `json:"api_base,omitempty"`
	Model   string `json:"model,omitempty"`
}

// BridgeConfig controls the agent/tool bridge's timing and bounds.
type BridgeConfig struct {
	ToolTimeoutSeconds  int `json:"tool_timeout_seconds,omitempty"`
	MaxToolIterations   int `json:"max_tool_iterations,omitempty"`
	MaxPageContentChars int `json:"max_page_content_chars,omitempty"`
}

// MemoryConfig controls the optional SQLite note store.
type MemoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// HasAnyProvider returns true if at least one provider has an API key
// configured.
func (c *Config) HasAnyProvider() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.Providers
	return p.Anthropic.APIKey != "" || p.OpenAI.APIKey != "" || p.Gemini.APIKey != ""
}

// ProvidersSnapshot returns a copy of the provider credentials/model config,
// guarded the same way as GatewaySnapshot.
func (c *Config) ProvidersSnapshot() ProvidersConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Providers
}

// GatewaySnapshot returns a copy of the gateway listener config, safe to
// call concurrently with a hot-reload swapping it out from under the
// caller (§A1's fsnotify-driven Watch).
func (c *Config) GatewaySnapshot() GatewayConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Gateway
}

// BridgeSnapshot returns a copy of the bridge timing/bounds config, guarded
// the same way as GatewaySnapshot.
func (c *Config) BridgeSnapshot() BridgeConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Bridge
}

// MemorySnapshot returns a copy of the memory store config, guarded the
// same way as GatewaySnapshot.
func (c *Config) MemorySnapshot() MemoryConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Memory
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
// Used by the file watcher to swap in a freshly-reloaded config atomically.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gateway = src.Gateway
	c.Providers = src.Providers
	c.Bridge = src.Bridge
	c.Memory = src.Memory
}
