package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON, since
// allowlists are sometimes authored with numeric platform IDs.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the gateway.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Channels  ChannelsConfig  `json:"channels"`
	Tools     ToolsConfig     `json:"tools"`
	Subagent  SubagentConfig  `json:"subagent,omitempty"`
	Tunnel    TunnelConfig    `json:"tunnel,omitempty"`
	Tailscale TailscaleConfig `json:"tailscale,omitempty"`
	mu        sync.RWMutex
}

// MCPServerConfig names one external MCP-style tool server the Sub-Agent
// Coordinator can fall back to for a tool it doesn't implement locally
// (§4.K.5).
type MCPServerConfig struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// SubagentConfig controls lesson persistence and the MCP fallback
// router for the Sub-Agent Coordinator (§4.K).
type SubagentConfig struct {
	LessonStorePath string            `json:"lesson_store_path,omitempty"`
	McpServers      []MCPServerConfig `json:"mcp_servers,omitempty"`
}

// GatewayConfig controls the WebSocket/HTTP gateway server (§4.F).
type GatewayConfig struct {
	Host              string   `json:"host"`
	Port              int      `json:"port"`
	AllowedOrigins    []string `json:"allowed_origins,omitempty"` // WS CORS whitelist (empty = allow all)
	MaxFrameBytes     int      `json:"max_frame_bytes,omitempty"` // max ingress frame size (default 1MiB)
	DirectTLSCertFile string   `json:"direct_tls_cert_file,omitempty"`
	DirectTLSKeyFile  string   `json:"direct_tls_key_file,omitempty"`
	JWTIssuer         string   `json:"jwt_issuer,omitempty"`
	JWTSecret         string   `json:"-"` // env GOCLAW_JWT_SECRET only; empty disables DIRECT bearer-token auth
}

// ToolsConfig controls the sub-agent filesystem confinement and frame
// encryption (§4.J, §4.K, §4.L). MaxSpawnDepth, MaxConcurrent,
// MaxChildrenEach and MaxIterations are loaded with defaults but not read
// by the coordinator or executor; the executor's step bound is
// subagent.DefaultMaxSteps.
type ToolsConfig struct {
	WorkspaceRoot   string `json:"workspace_root"`              // confinement root for filesystem tools
	MaxReadBytes    int64  `json:"max_read_bytes,omitempty"`    // default 1MiB
	EncryptionKey   string `json:"-"`                           // from env only; empty disables frame encryption
	MaxSpawnDepth   int    `json:"max_spawn_depth,omitempty"`   // default 1
	MaxConcurrent   int    `json:"max_concurrent,omitempty"`    // default 4
	MaxChildrenEach int    `json:"max_children_each,omitempty"` // per-parent fan-out cap, default 4
	MaxIterations   int    `json:"max_iterations,omitempty"`    // default 20
}

// TunnelConfig configures the external tunnel processes the supervisor
// starts (§4.A). Token/auth-key fields are env-only and never persisted
// to the JSON config file.
type TunnelConfig struct {
	CloudflareTunnelToken string `json:"-"`
	CloudflaredBinary     string `json:"cloudflared_binary,omitempty"`
	TailscaleBinary       string `json:"tailscale_binary,omitempty"`
	TailscaleAuthKey      string `json:"-"`
	TailscaleHostname     string `json:"tailscale_hostname,omitempty"`
	SettlePeriodMs        int    `json:"settle_period_ms,omitempty"` // how long a spawned tunnel must stay up to count as started, default 2000
}

// TailscaleConfig configures the optional in-process tsnet listener, an
// alternative to shelling out to `tailscale up` (requires -tags tsnet).
type TailscaleConfig struct {
	Hostname  string `json:"hostname"`
	StateDir  string `json:"state_dir,omitempty"`
	AuthKey   string `json:"-"`
	Ephemeral bool   `json:"ephemeral,omitempty"`
	EnableTLS bool   `json:"enable_tls,omitempty"`
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gateway = src.Gateway
	c.Channels = src.Channels
	c.Tools = src.Tools
	c.Subagent = src.Subagent
	c.Tunnel = src.Tunnel
	c.Tailscale = src.Tailscale
}

// Snapshot returns a copy of c safe to read without holding c's lock.
func (c *Config) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Config{
		Gateway:   c.Gateway,
		Channels:  c.Channels,
		Tools:     c.Tools,
		Subagent:  c.Subagent,
		Tunnel:    c.Tunnel,
		Tailscale: c.Tailscale,
	}
}
