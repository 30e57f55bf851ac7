package tunnel

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// monitorInterval is the health monitor's probe cadence (§4.G).
const monitorInterval = 5 * time.Second

// Monitor implements §4.G: a cooperative loop that periodically checks
// each desired class's liveness and triggers restarts, never blocking
// the gateway's accept loop.
type Monitor struct {
	sup *Supervisor

	// VPNStatusArgv, if set, is an out-of-band CLI status command
	// (e.g. "tailscale status --json") probed in addition to process
	// liveness for ClassTailscale. A non-zero exit flips health false
	// without attempting a restart — the VPN daemon manages itself.
	VPNStatusArgv []string

	mu     sync.RWMutex
	health map[Class]bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(sup *Supervisor) *Monitor {
	return &Monitor{
		sup:    sup,
		health: make(map[Class]bool),
	}
}

// Start runs the monitor loop in a background goroutine until Stop or
// ctx is canceled.
func (m *Monitor) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				m.tick(loopCtx)
			}
		}
	}()
}

// Stop cancels the monitor loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// Healthy reports the last-observed health for class.
func (m *Monitor) Healthy(class Class) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health[class]
}

func (m *Monitor) setHealthy(class Class, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health[class] = ok
}

func (m *Monitor) tick(ctx context.Context) {
	for _, class := range m.sup.Classes() {
		if !m.sup.Desired(class) {
			continue
		}

		alive := m.sup.Alive(class)
		m.setHealthy(class, alive)
		if !alive {
			slog.Warn("tunnel.restarting", "class", class)
			if ok := m.sup.Restart(ctx, class); ok {
				m.setHealthy(class, true)
			}
		}

		if class == ClassTailscale && len(m.VPNStatusArgv) > 0 {
			m.probeVPN(ctx)
		}
	}
}

// probeVPN runs the out-of-band status command; a non-zero exit flips
// health false WITHOUT attempting a restart (the VPN daemon manages
// itself — §4.G).
func (m *Monitor) probeVPN(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(probeCtx, m.VPNStatusArgv[0], m.VPNStatusArgv[1:]...)
	if err := cmd.Run(); err != nil {
		slog.Warn("tunnel.vpn_probe_failed", "error", err)
		m.setHealthy(ClassTailscale, false)
	}
}
