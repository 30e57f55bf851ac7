package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nextlevelbuilder/goclaw-core/internal/bus"
	"github.com/nextlevelbuilder/goclaw-core/internal/channels"
	"github.com/nextlevelbuilder/goclaw-core/internal/channels/discord"
	"github.com/nextlevelbuilder/goclaw-core/internal/channels/push"
	"github.com/nextlevelbuilder/goclaw-core/internal/channels/telegram"
	"github.com/nextlevelbuilder/goclaw-core/internal/channels/whatsapp"
	"github.com/nextlevelbuilder/goclaw-core/internal/config"
	"github.com/nextlevelbuilder/goclaw-core/internal/gateway"
	"github.com/nextlevelbuilder/goclaw-core/internal/mcptool"
	"github.com/nextlevelbuilder/goclaw-core/internal/orchestrator"
	"github.com/nextlevelbuilder/goclaw-core/internal/permissions"
	"github.com/nextlevelbuilder/goclaw-core/internal/providers"
	"github.com/nextlevelbuilder/goclaw-core/internal/subagent"
	"github.com/nextlevelbuilder/goclaw-core/internal/tunnel"
	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

func runGateway() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Tools.WorkspaceRoot, 0o755); err != nil {
		slog.Error("failed to create workspace root", "error", err)
		os.Exit(1)
	}

	msgBus := bus.NewMessageBus()

	codec, err := gateway.NewCodec(cfg.Tools.EncryptionKey)
	if err != nil {
		slog.Error("failed to initialize frame codec", "error", err)
		os.Exit(1)
	}

	metricsReg := prometheus.NewRegistry()
	server := gateway.NewServer(cfg, msgBus, codec, metricsReg)
	if tv := gateway.NewTokenVerifier(cfg.Gateway.JWTSecret, cfg.Gateway.JWTIssuer); tv != nil {
		server.SetTokenVerifier(tv)
		slog.Info("gateway: DIRECT bearer-token auth enabled", "issuer", cfg.Gateway.JWTIssuer)
	}

	settlePeriod := time.Duration(cfg.Tunnel.SettlePeriodMs) * time.Millisecond
	supervisor := tunnel.NewSupervisor(settlePeriod)
	configureTunnels(supervisor, cfg)
	server.SetTunnelController(supervisor)

	monitor := tunnel.NewMonitor(supervisor)
	monitor.VPNStatusArgv = []string{cfg.Tunnel.TailscaleBinary, "status", "--json"}

	// Adapters with their own delivery mechanism (webhook, long-poll)
	// forward inbound platform messages here; Platform on each message
	// already names the channel it arrived on (§4.I).
	registry := channels.NewRegistry(func(msg protocol.PlatformMessage) {
		msgBus.PublishInbound(bus.InboundMessage{Channel: msg.Platform, Message: msg})
	})
	registerChannelFactories(registry)

	lessonStore := subagent.NewLessonStore(cfg.Subagent.LessonStorePath)

	mcpConfigs := make([]mcptool.ServerConfig, 0, len(cfg.Subagent.McpServers))
	for _, m := range cfg.Subagent.McpServers {
		mcpConfigs = append(mcpConfigs, mcptool.ServerConfig{Name: m.Name, Command: m.Command, Args: m.Args, Env: m.Env})
	}
	mcpRouter := mcptool.NewRouter(mcpConfigs)

	// No concrete LLM vendor client is wired into this build: the
	// provider seam lets an operator plug one in without touching the
	// coordinator. NullProvider keeps spawn/execute_tool fully
	// exercised — pre-flight fails closed, the correct default with
	// nothing configured.
	var provider providers.Provider = &providers.NullProvider{Text: "no language model configured"}

	var policy permissions.Checker = permissions.DenyAll

	coordinator := subagent.NewCoordinator(subagent.Config{
		Provider:      provider,
		Policy:        policy,
		LessonStore:   lessonStore,
		MCPRouter:     mcpRouter,
		EventPub:      msgBus,
		WorkspaceRoot: cfg.Tools.WorkspaceRoot,
		MaxReadBytes:  cfg.Tools.MaxReadBytes,
		RAG:           noRAGConfigured{},
	})

	bridge := orchestrator.NewBridge(registry, msgBus, coordinator)
	bridge.SetSender(func(ctx context.Context, clientID string, frame any) bool {
		return server.Send(clientID, frame)
	})
	server.RegisterHandler(bridge.Handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor.Start(ctx)
	defer monitor.Stop()
	defer mcpRouter.CloseAll()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("gateway: graceful shutdown initiated", "signal", sig)
		server.Stop(context.Background())
		cancel()
	}()

	slog.Info("gatewayd starting",
		"version", Version,
		"host", cfg.Gateway.Host,
		"port", cfg.Gateway.Port,
		"workspace", cfg.Tools.WorkspaceRoot,
	)

	if err := server.Start(ctx); err != nil {
		slog.Error("gateway error", "error", err)
		os.Exit(1)
	}
}

func configureTunnels(sup *tunnel.Supervisor, cfg *config.Config) {
	if cfg.Tunnel.CloudflareTunnelToken != "" {
		sup.Configure(tunnel.ClassCloudflare, tunnel.ClassConfig{
			Binary:      cfg.Tunnel.CloudflaredBinary,
			VersionArgv: []string{"--version"},
			RunArgv:     []string{"tunnel", "run", "--token", cfg.Tunnel.CloudflareTunnelToken},
			Desired:     true,
		})
	}
	if cfg.Tunnel.TailscaleAuthKey != "" && cfg.Tunnel.TailscaleHostname != "" {
		sup.Configure(tunnel.ClassTailscale, tunnel.ClassConfig{
			Binary:      cfg.Tunnel.TailscaleBinary,
			VersionArgv: []string{"--version"},
			RunArgv:     []string{"up", "--auth-key", cfg.Tunnel.TailscaleAuthKey, "--hostname", cfg.Tunnel.TailscaleHostname},
			Desired:     true,
		})
	}
}

func registerChannelFactories(registry *channels.Registry) {
	registry.RegisterFactory("telegram", telegram.New)
	registry.RegisterFactory("discord", discord.New)
	registry.RegisterFactory("whatsapp", whatsapp.New)
	registry.RegisterFactory("push", push.New)
}

// noRAGConfigured is the zero-configuration RAG collaborator: no
// knowledge base is wired by default, so query_rag reports as much
// plainly rather than needing a nil check at every call site.
type noRAGConfigured struct{}

func (noRAGConfigured) Query(ctx context.Context, query string) (string, error) {
	return "", errNoRAG
}

var errNoRAG = errors.New("no RAG collaborator configured")
