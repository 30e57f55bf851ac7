package subagent

import "sync"

// DefaultMaxSteps is the Executor's step bound when a SubAgent doesn't
// set one (§3: "maxSteps (default 5)").
const DefaultMaxSteps = 5

// SubAgent is the runtime record for one spawned agent (§3). active
// flips true only after pre-flight validation succeeds (I5); managed
// marks it as coordinator-owned for bookkeeping/cleanup purposes.
type SubAgent struct {
	Name     string
	Role     Role
	Task     string
	Plan     []string
	MaxSteps int

	mu      sync.RWMutex
	history []string
	active  bool
	managed bool
}

func newSubAgent(name string, role Role, task string, plan []string) *SubAgent {
	steps := DefaultMaxSteps
	return &SubAgent{Name: name, Role: role, Task: task, Plan: plan, MaxSteps: steps}
}

// Active reports the agent's validation state using strict identity —
// the Coordinator's execute_tool step 2 depends on this being a real
// bool field, not a truthy-anything check (§9 "Policy callback
// strictness" applies the same discipline here).
func (a *SubAgent) Active() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

func (a *SubAgent) setActive(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = v
}

func (a *SubAgent) setManaged(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.managed = v
}

func (a *SubAgent) appendHistory(entry string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, entry)
}

func (a *SubAgent) historySnapshot() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.history))
	copy(out, a.history)
	return out
}
