// Package permissions implements the strict-boolean policy callback the
// Sub-Agent Coordinator consults before dispatching any tool call
// (§4.K.4, §9 "Policy callback strictness"). Grounded on the teacher's
// internal/tools/policy.go 7-step allow/deny pipeline, trimmed to the
// single scope-authorization decision spec.md names — the managed-mode
// tool-group/profile/alias machinery around it is out of scope.
package permissions

import "context"

// Decision is the callback's return shape. Authorized MUST be compared
// against strict true by the caller — a non-nil Decision with
// Authorized left false (its zero value) denies by construction, so
// there is no "truthy" value to reject, only Go's bool type.
type Decision struct {
	Authorized bool
	Reason     string
}

// Checker is the policy callback signature (§4.K.4): given an agent
// name and the scope a tool call requires, decide whether it's allowed.
type Checker func(ctx context.Context, agentName, scope string) Decision

// AllowAll authorizes every scope — useful for tests and for a
// single-operator deployment with no external policy source wired.
func AllowAll(ctx context.Context, agentName, scope string) Decision {
	return Decision{Authorized: true}
}

// DenyAll authorizes nothing; useful as a fail-closed default before a
// real policy source is wired.
func DenyAll(ctx context.Context, agentName, scope string) Decision {
	return Decision{Authorized: false, Reason: "no policy source configured"}
}

// Engine evaluates a fixed allowlist of (agentName, scope) pairs,
// denying anything not explicitly granted — the simplest real policy
// source a deployment can configure without wiring an external service.
type Engine struct {
	grants map[string]map[string]bool
}

// NewEngine builds an Engine from a name -> allowed-scopes map.
func NewEngine(grants map[string][]string) *Engine {
	e := &Engine{grants: make(map[string]map[string]bool, len(grants))}
	for name, scopes := range grants {
		set := make(map[string]bool, len(scopes))
		for _, s := range scopes {
			set[s] = true
		}
		e.grants[name] = set
	}
	return e
}

// Check implements Checker.
func (e *Engine) Check(ctx context.Context, agentName, scope string) Decision {
	scopes, ok := e.grants[agentName]
	if !ok || !scopes[scope] {
		return Decision{Authorized: false, Reason: "scope not granted"}
	}
	return Decision{Authorized: true}
}
