package subagent

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/goclaw-core/internal/providers"
)

// Executor runs the role-scoped tool-use loop for a planned task (§4.J).
type Executor struct {
	provider providers.Provider
}

func NewExecutor(provider providers.Provider) *Executor {
	return &Executor{provider: provider}
}

// ToolDispatchFunc delegates one tool-use directive to the Coordinator's
// execute_tool entry (§4.K) and returns its result string.
type ToolDispatchFunc func(ctx context.Context, call providers.ToolCall) string

// Run executes the interaction loop up to agent.MaxSteps (§4.J). It
// never returns a Go error: every failure mode — a provider error, or
// exhausting the step budget — is folded into the returned string, the
// same "no exception escapes" convention the filesystem tools use.
func (e *Executor) Run(ctx context.Context, agent *SubAgent, dispatch ToolDispatchFunc) string {
	messages := []providers.Message{
		{Role: providers.RoleSystem, Content: buildRoleContext(agent)},
		{Role: providers.RoleUser, Content: agent.Task},
	}
	tools := scopeToolSchemas(agent.Role)

	maxSteps := agent.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	for step := 0; step < maxSteps; step++ {
		resp, err := e.provider.Complete(ctx, messages, tools)
		if err != nil {
			return fmt.Sprintf("executor error: %v", err)
		}

		if len(resp.ToolCalls) == 0 {
			agent.appendHistory(resp.Text)
			return resp.Text
		}

		for _, call := range resp.ToolCalls {
			result := dispatch(ctx, call)
			agent.appendHistory(fmt.Sprintf("tool %s -> %s", call.Name, result))
			messages = append(messages, providers.Message{
				Role:    providers.RoleTool,
				Content: fmt.Sprintf("%s: %s", call.Name, result),
			})
		}
	}
	return "max steps reached"
}

func buildRoleContext(agent *SubAgent) string {
	return fmt.Sprintf(
		"You are sub-agent %q with role %q. Scope-set: %v. Plan: %v.",
		agent.Name, agent.Role, agent.Role.Scopes(), agent.Plan,
	)
}

func scopeToolSchemas(role Role) []providers.ToolSchema {
	var out []providers.ToolSchema
	for scope := range scopeSets[role] {
		for name, toolScope := range toolScopes {
			if toolScope == scope {
				out = append(out, providers.ToolSchema{Name: name, Scope: scope})
			}
		}
	}
	return out
}
