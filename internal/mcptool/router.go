// Package mcptool routes a tool call the Sub-Agent Coordinator cannot
// dispatch locally to an external MCP-style server (§4.K.5), grounded on
// original_source/adapters/mcp_adapter.py's MCPManager.call_tool
// (find-server-for-tool, fall back to the sole configured server, else
// a structured "tool not found" error) and the teacher's
// internal/mcp/manager_connect.go stdio-client wiring.
package mcptool

import (
	"context"
	"fmt"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// ServerConfig names one external MCP server process (§4.K.5).
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// server holds a connected client plus the tool names it discovered.
type server struct {
	name   string
	client *mcpclient.Client
	tools  map[string]bool
}

// Router finds the MCP server that provides a requested tool and
// dispatches the call, starting servers lazily on first use.
type Router struct {
	mu      sync.Mutex
	configs map[string]ServerConfig
	servers map[string]*server
}

func NewRouter(configs []ServerConfig) *Router {
	byName := make(map[string]ServerConfig, len(configs))
	for _, c := range configs {
		byName[c.Name] = c
	}
	return &Router{configs: byName, servers: make(map[string]*server)}
}

// Call implements the router fallback path of §4.K.5: locate the
// server providing toolName (or the sole configured one), call it, and
// fold any failure into a short result string — never a Go panic, in
// keeping with the tool-dispatch contract.
func (r *Router) Call(ctx context.Context, toolName string, args map[string]any) string {
	if len(r.configs) == 0 {
		return "logic not implemented"
	}

	srv, err := r.serverFor(ctx, toolName)
	if err != nil {
		return "logic not implemented"
	}

	result, err := srv.client.CallTool(ctx, mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{Name: toolName, Arguments: args},
	})
	if err != nil {
		return fmt.Sprintf("mcp call failed: %v", err)
	}
	if result.IsError {
		return "logic not implemented"
	}
	return flattenContent(result)
}

func (r *Router) serverFor(ctx context.Context, toolName string) (*server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.servers {
		if s.tools[toolName] {
			return s, nil
		}
	}

	// Not yet discovered on a connected server — connect to every
	// configured server we haven't tried yet, same as the source's
	// find_server_for_tool scan, then fall back to the sole server.
	for name, cfg := range r.configs {
		if _, ok := r.servers[name]; ok {
			continue
		}
		s, err := r.connect(ctx, cfg)
		if err != nil {
			continue
		}
		r.servers[name] = s
		if s.tools[toolName] {
			return s, nil
		}
	}

	if len(r.configs) == 1 {
		for _, s := range r.servers {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no MCP server provides tool %q", toolName)
}

func (r *Router) connect(ctx context.Context, cfg ServerConfig) (*server, error) {
	client, err := mcpclient.NewStdioMCPClient(cfg.Command, envSlice(cfg.Env), cfg.Args...)
	if err != nil {
		return nil, err
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "goclaw-core", Version: "1.0.0"}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		_ = client.Close()
		return nil, err
	}

	listed, err := client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	tools := make(map[string]bool, len(listed.Tools))
	for _, t := range listed.Tools {
		tools[t.Name] = true
	}
	return &server{name: cfg.Name, client: client, tools: tools}, nil
}

// CloseAll shuts down every connected server client.
func (r *Router) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.servers {
		_ = s.client.Close()
	}
	r.servers = make(map[string]*server)
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func flattenContent(result *mcpgo.CallToolResult) string {
	out := ""
	for _, c := range result.Content {
		if tc, ok := c.(mcpgo.TextContent); ok {
			out += tc.Text
		}
	}
	return out
}
