// Package gateway implements the unified WebSocket/HTTP gateway (§4.B-§4.G):
// trust classification, rate limiting, the connection registry, the
// optional frame codec, and the accept/read-loop server itself.
package gateway

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nextlevelbuilder/goclaw-core/internal/bus"
	"github.com/nextlevelbuilder/goclaw-core/internal/config"
	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

// Handler is the orchestrator bridge: the callback invoked with every
// trust-tagged inbound frame (§4.F register_handler).
type Handler func(ctx context.Context, clientID string, frame *protocol.Frame)

// TunnelController is the subset of internal/tunnel.Supervisor
// the gateway needs to bring tunnels up/down around its own lifecycle
// (§4.F start/stop). Kept as an interface so internal/gateway never
// imports internal/tunnel directly — package boundaries stay one-way.
type TunnelController interface {
	StartAll(ctx context.Context)
	StopAll()
}

// Server is the Unified Gateway (§4.F).
type Server struct {
	cfg      *config.Config
	eventPub bus.EventPublisher
	handler  Handler
	tunnels  TunnelController

	registry    *Registry
	rateLimiter *RateLimiter
	codec       *Codec
	tokens      *TokenVerifier

	upgrader websocket.Upgrader

	mu          sync.RWMutex
	clients     map[string]*Client
	metrics     *gatewayMetrics

	httpServer   *http.Server
	directServer *http.Server
	mux          *http.ServeMux
}

type gatewayMetrics struct {
	connections   *prometheus.GaugeVec
	rateDenied    *prometheus.CounterVec
	tunnelUp      *prometheus.GaugeVec
	handler       http.Handler
}

func newGatewayMetrics(reg prometheus.Registerer) *gatewayMetrics {
	m := &gatewayMetrics{
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_connections",
			Help: "Current registered connections by class.",
		}, []string{"class"}),
		rateDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_rate_limit_denied_total",
			Help: "Total admission denials by class.",
		}, []string{"class"}),
		tunnelUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_tunnel_up",
			Help: "1 if the tunnel for class is healthy, else 0.",
		}, []string{"class"}),
	}
	reg.MustRegister(m.connections, m.rateDenied, m.tunnelUp)
	m.handler = promhttp.Handler()
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.handler = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return m
}

// NewServer builds a gateway Server. codec may be a no-op Codec (see
// NewCodec("")) when frame encryption is disabled.
func NewServer(cfg *config.Config, eventPub bus.EventPublisher, codec *Codec, metricsReg prometheus.Registerer) *Server {
	s := &Server{
		cfg:         cfg,
		eventPub:    eventPub,
		registry:    NewRegistry(),
		rateLimiter: NewRateLimiter(nil),
		codec:       codec,
		clients:     make(map[string]*Client),
	}
	if metricsReg != nil {
		s.metrics = newGatewayMetrics(metricsReg)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// RegisterHandler installs the frame-received callback (§4.F).
func (s *Server) RegisterHandler(h Handler) { s.handler = h }

// SetTunnelController wires the tunnel supervisor/monitor pair that
// Start/Stop bring up and tear down alongside the accept listener.
func (s *Server) SetTunnelController(tc TunnelController) { s.tunnels = tc }

// SetTokenVerifier wires bearer-token validation for DIRECT-TLS clients
// (§4.C, §9 edge case 3). Nil disables authentication entirely — every
// connection's Meta.Authenticated stays false.
func (s *Server) SetTokenVerifier(tv *TokenVerifier) { s.tokens = tv }

// Registry exposes the connection registry, e.g. for tests asserting I3.
func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.Gateway.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a || a == "*" {
			return true
		}
	}
	slog.Warn("gateway.cors_rejected", "origin", origin)
	return false
}

// BuildMux constructs (and caches) the HTTP mux with all routes.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.handler)
	}
	s.mux = mux
	return mux
}

// Start brings up the local accept listener, the optional direct-TLS
// listener, and all desired tunnels (§4.F start()). The health monitor
// is not started here: cmd/gatewayd starts and stops it around Start.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()

	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	if s.tunnels != nil {
		s.tunnels.StartAll(ctx)
	}

	errCh := make(chan error, 2)

	go func() {
		slog.Info("gateway.listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("gateway server: %w", err)
			return
		}
		errCh <- nil
	}()

	if s.cfg.Gateway.DirectTLSCertFile != "" && s.cfg.Gateway.DirectTLSKeyFile != "" {
		directAddr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port+1)
		cert, err := tls.LoadX509KeyPair(s.cfg.Gateway.DirectTLSCertFile, s.cfg.Gateway.DirectTLSKeyFile)
		if err != nil {
			slog.Error("gateway.direct_tls_unavailable", "error", err)
		} else {
			s.directServer = &http.Server{
				Addr:      directAddr,
				Handler:   mux,
				TLSConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
			}
			go func() {
				slog.Info("gateway.direct_tls_listening", "addr", directAddr)
				if err := s.directServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
					errCh <- fmt.Errorf("direct TLS server: %w", err)
					return
				}
				errCh <- nil
			}()
		}
	} else {
		errCh <- nil
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop is the Unified Gateway's stop(): closes all client transports,
// closes the accept listener(s), terminates tunnels. Idempotent (I3).
func (s *Server) Stop(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, conn := range s.registry.All() {
		s.registry.Unregister(conn.ID)
	}

	if s.httpServer != nil {
		_ = s.httpServer.Shutdown(shutdownCtx)
	}
	if s.directServer != nil {
		_ = s.directServer.Shutdown(shutdownCtx)
	}
	if s.tunnels != nil {
		s.tunnels.StopAll()
	}
}

// Send looks up client-id, serializes frame, writes it; on error the
// client is evicted (§4.F send()).
func (s *Server) Send(clientID string, frame any) bool {
	s.mu.RLock()
	c, ok := s.clients[clientID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if err := c.SendFrame(frame); err != nil {
		slog.Warn("gateway.send_failed_evicting", "client_id", clientID, "error", err)
		s.unregisterClient(c)
		return false
	}
	return true
}

// BroadcastEvent pushes event to every connected client (best-effort).
func (s *Server) BroadcastEvent(event protocol.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		c.SendEvent(event)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	class, peer := Classify(r.RemoteAddr, r.Header)

	// The direct-TLS listener terminates TLS itself (r.TLS set); the
	// local/tunneled listener never does, even behind an upstream
	// tunnel that terminates TLS on our behalf. That makes r.TLS the
	// reliable signal that this request arrived on the client-cert /
	// bearer-token DIRECT path rather than through a tunnel (§4.C).
	if r.TLS != nil {
		class = ClassDirect
	}

	if class == ClassLocal && r.Header.Get("CF-Connecting-IP") == "" && r.Header.Get("Tailscale-User") == "" {
		if !isLoopbackHost(r.Host) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("gateway.upgrade_failed", "error", err)
		return
	}
	if n := s.cfg.Gateway.MaxFrameBytes; n > 0 {
		conn.SetReadLimit(int64(n))
	}

	authenticated := false
	if class == ClassDirect && s.tokens != nil {
		authenticated = s.tokens.Verify(r.Header.Get("Authorization"))
	}

	info := &ClientConnection{
		ID:            clientID(class, peer, r.UserAgent()),
		Class:         class,
		Peer:          peer,
		Since:         time.Now(),
		Authenticated: authenticated,
		UserAgent:     r.UserAgent(),
	}

	c := newClient(conn, s, info)
	s.registerClient(c)
	defer s.unregisterClient(c)

	c.Run(r.Context())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","protocol":%d,"connections":%d}`, protocol.ProtocolVersion, s.registry.Len())
}

func (s *Server) registerClient(c *Client) {
	s.mu.Lock()
	s.clients[c.info.ID] = c
	s.mu.Unlock()

	s.registry.Register(c.info, c)

	if s.eventPub != nil {
		s.eventPub.Subscribe(c.info.ID, func(event bus.Event) {
			c.SendEvent(protocol.Event{Name: event.Name, Payload: event.Payload})
		})
	}

	if s.metrics != nil {
		s.metrics.connections.WithLabelValues(string(c.info.Class)).Inc()
	}

	slog.Info("gateway.client_connected", "client_id", c.info.ID, "class", c.info.Class)
}

func (s *Server) unregisterClient(c *Client) {
	s.mu.Lock()
	if _, ok := s.clients[c.info.ID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, c.info.ID)
	s.mu.Unlock()

	s.registry.Unregister(c.info.ID)
	if s.eventPub != nil {
		s.eventPub.Unsubscribe(c.info.ID)
	}
	if s.metrics != nil {
		s.metrics.connections.WithLabelValues(string(c.info.Class)).Dec()
	}
	slog.Info("gateway.client_disconnected", "client_id", c.info.ID)
}
