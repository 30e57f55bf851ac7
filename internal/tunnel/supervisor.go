// Package tunnel supervises the external tunnel processes (cloudflared,
// tailscale) that front the gateway's WebSocket endpoint for non-local
// traffic, and the health monitor that watches their liveness (§4.A, §4.G).
package tunnel

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Class identifies which external tunnel a ClassConfig/TunnelProcess
// refers to. Distinct from gateway.ConnectionClass: only the two
// classes that front a subprocess are named here (LOCAL and DIRECT have
// no tunnel to supervise).
type Class string

const (
	ClassCloudflare Class = "cloudflare"
	ClassTailscale  Class = "tailscale"
)

// ClassConfig is the per-class subprocess shape. Exact argv is
// configuration, not part of the core (§4.A).
type ClassConfig struct {
	Binary      string
	VersionArgv []string
	RunArgv     []string
	Desired     bool
}

// process tracks one class's managed subprocess.
type process struct {
	cfg           ClassConfig
	mu            sync.Mutex
	cmd           *exec.Cmd
	done          chan struct{}
	lastStartedAt time.Time
}

// Supervisor implements §4.A: start/stop/alive/restart per class.
type Supervisor struct {
	settlePeriod time.Duration

	mu    sync.RWMutex
	procs map[Class]*process
}

// NewSupervisor builds a Supervisor. settlePeriod is how long a
// newly-spawned long-running process must stay up to count as started.
func NewSupervisor(settlePeriod time.Duration) *Supervisor {
	return &Supervisor{
		settlePeriod: settlePeriod,
		procs:        make(map[Class]*process),
	}
}

// Configure registers (or replaces) the subprocess shape for a class.
func (s *Supervisor) Configure(class Class, cfg ClassConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs[class] = &process{cfg: cfg}
}

// Desired reports whether class is configured with desired=true.
func (s *Supervisor) Desired(class Class) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.procs[class]
	return ok && p.cfg.Desired
}

// Classes returns the set of configured classes.
func (s *Supervisor) Classes() []Class {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Class, 0, len(s.procs))
	for c := range s.procs {
		out = append(out, c)
	}
	return out
}

// Start spawns class's subprocess. A successful start requires: the
// version probe exits 0, AND the long-running process is still running
// after the settling period (§4.A).
func (s *Supervisor) Start(ctx context.Context, class Class) bool {
	s.mu.RLock()
	p, ok := s.procs[class]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil && p.cmd.ProcessState == nil {
		return true // already running
	}

	if len(p.cfg.VersionArgv) > 0 {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		probe := exec.CommandContext(probeCtx, p.cfg.Binary, p.cfg.VersionArgv...)
		err := probe.Run()
		cancel()
		if err != nil {
			slog.Warn("tunnel.version_probe_failed", "class", class, "error", err)
			return false
		}
	}

	cmd := exec.Command(p.cfg.Binary, p.cfg.RunArgv...)
	if err := cmd.Start(); err != nil {
		slog.Error("tunnel.spawn_failed", "class", class, "error", err)
		return false
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	p.cmd = cmd
	p.done = done
	p.lastStartedAt = time.Now()

	select {
	case <-done:
		slog.Warn("tunnel.exited_during_settle", "class", class)
		return false
	case <-time.After(s.settlePeriod):
		return true
	}
}

// Stop sends terminate to class's subprocess. Best-effort and idempotent.
func (s *Supervisor) Stop(class Class) {
	s.mu.RLock()
	p, ok := s.procs[class]
	s.mu.RUnlock()
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	p.cmd = nil
	p.done = nil
}

// Alive reports whether class's subprocess is currently running.
func (s *Supervisor) Alive(class Class) bool {
	s.mu.RLock()
	p, ok := s.procs[class]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Restart stops then starts class, swallowing and logging any error so
// the health monitor loop never panics from a supervision failure.
func (s *Supervisor) Restart(ctx context.Context, class Class) bool {
	s.Stop(class)
	return s.Start(ctx, class)
}

// StartAll starts every configured class with desired=true.
func (s *Supervisor) StartAll(ctx context.Context) {
	for _, class := range s.Classes() {
		if s.Desired(class) {
			s.Start(ctx, class)
		}
	}
}

// StopAll stops every configured class's subprocess.
func (s *Supervisor) StopAll() {
	for _, class := range s.Classes() {
		s.Stop(class)
	}
}
