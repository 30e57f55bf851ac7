package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:          "0.0.0.0",
			Port:          18790,
			MaxFrameBytes: 1 << 20,
		},
		Tools: ToolsConfig{
			WorkspaceRoot:   ExpandHome("~/.goclaw/workspace"),
			MaxReadBytes:    1 << 20,
			MaxSpawnDepth:   1,
			MaxConcurrent:   4,
			MaxChildrenEach: 4,
			MaxIterations:   20,
		},
		Subagent: SubagentConfig{
			LessonStorePath: ExpandHome("~/.goclaw/data/lessons.jsonl"),
		},
		Tunnel: TunnelConfig{
			CloudflaredBinary: "cloudflared",
			TailscaleBinary:   "tailscale",
			SettlePeriodMs:    2000,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Env vars take
// precedence over file values, and are the only source for secrets
// (tokens, auth keys) — those are never read from the JSON file.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("GOCLAW_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	envStr("GOCLAW_DISCORD_TOKEN", &c.Channels.Discord.Token)
	envStr("GOCLAW_WHATSAPP_TOKEN", &c.Channels.WhatsApp.AccessToken)
	envStr("GOCLAW_WHATSAPP_WEBHOOK_SECRET", &c.Channels.WhatsApp.WebhookSecret)
	envStr("GOCLAW_PUSH_CREDENTIALS_FILE", &c.Channels.Push.CredentialsFile)
	envStr("GOCLAW_PUSH_PROJECT_ID", &c.Channels.Push.ProjectID)

	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
	if c.Channels.Discord.Token != "" {
		c.Channels.Discord.Enabled = true
	}
	if c.Channels.WhatsApp.AccessToken != "" {
		c.Channels.WhatsApp.Enabled = true
	}
	if c.Channels.Push.ProjectID != "" && c.Channels.Push.CredentialsFile != "" {
		c.Channels.Push.Enabled = true
	}

	envStr("GOCLAW_JWT_SECRET", &c.Gateway.JWTSecret)

	envStr("GOCLAW_HOST", &c.Gateway.Host)
	if v := os.Getenv("GOCLAW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	envStr("GOCLAW_WORKSPACE_ROOT", &c.Tools.WorkspaceRoot)
	envStr("GOCLAW_FRAME_ENCRYPTION_KEY", &c.Tools.EncryptionKey)

	envStr("GOCLAW_CF_TUNNEL_TOKEN", &c.Tunnel.CloudflareTunnelToken)
	envStr("GOCLAW_TSNET_AUTH_KEY", &c.Tunnel.TailscaleAuthKey)
	envStr("GOCLAW_TSNET_AUTH_KEY", &c.Tailscale.AuthKey)
	envStr("GOCLAW_TSNET_HOSTNAME", &c.Tailscale.Hostname)
	envStr("GOCLAW_TSNET_DIR", &c.Tailscale.StateDir)
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a SHA-256 hash of the config for optimistic concurrency.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// ApplyEnvOverrides re-applies environment variable overrides onto the
// config. Call after modifying config to restore runtime secrets.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
