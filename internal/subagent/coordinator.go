package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/goclaw-core/internal/bus"
	"github.com/nextlevelbuilder/goclaw-core/internal/fstools"
	"github.com/nextlevelbuilder/goclaw-core/internal/mcptool"
	"github.com/nextlevelbuilder/goclaw-core/internal/permissions"
	"github.com/nextlevelbuilder/goclaw-core/internal/providers"
)

const (
	preflightTemplate = "You are validating a sub-agent spawn request before it runs.\n" +
		"Task: %s\nAgent name: %s\nRole: %s\nPlan: %v\n" +
		"Reply with VALID if this spawn should proceed, or a reason it should not."
	synthesisTemplate = "Summarize the following sub-agent run result as a single JSON object " +
		"with fields summary, findings (array of strings), learned_lesson (string), " +
		"next_steps (array of strings). Result:\n%s"
)

// SpawnRequest is the spawn() entry's input (§4.K).
type SpawnRequest struct {
	Name string
	Task string
	Role string
}

// Coordinator implements spawn/execute_tool (§4.K): pre-flight
// validation, running the Executor, synthesis, and lesson persistence.
type Coordinator struct {
	provider    providers.Provider
	executor    *Executor
	policy      permissions.Checker
	lessonStore *LessonStore
	mcpRouter   *mcptool.Router
	eventPub    bus.EventPublisher

	workspaceRoot string
	maxReadBytes  int64
	ragCollab     fstools.RAGCollaborator

	mu     sync.RWMutex
	agents map[string]*SubAgent
}

// Config wires a Coordinator's collaborators.
type Config struct {
	Provider      providers.Provider
	Policy        permissions.Checker
	LessonStore   *LessonStore
	MCPRouter     *mcptool.Router
	EventPub      bus.EventPublisher
	WorkspaceRoot string
	MaxReadBytes  int64
	RAG           fstools.RAGCollaborator
}

func NewCoordinator(cfg Config) *Coordinator {
	policy := cfg.Policy
	if policy == nil {
		policy = permissions.DenyAll
	}
	return &Coordinator{
		provider:      cfg.Provider,
		executor:      NewExecutor(cfg.Provider),
		policy:        policy,
		lessonStore:   cfg.LessonStore,
		mcpRouter:     cfg.MCPRouter,
		eventPub:      cfg.EventPub,
		workspaceRoot: cfg.WorkspaceRoot,
		maxReadBytes:  cfg.MaxReadBytes,
		ragCollab:     cfg.RAG,
		agents:        make(map[string]*SubAgent),
	}
}

// Spawn implements §4.K's spawn algorithm end to end, never returning a
// Go error — every failure mode folds into the returned summary string.
func (c *Coordinator) Spawn(ctx context.Context, req SpawnRequest) string {
	role := ParseRole(req.Role)
	agent := newSubAgent(req.Name, role, req.Task, nil)
	agent.Plan = c.generatePlan(ctx, agent)

	if !c.preflightValid(ctx, agent) {
		c.mu.Lock()
		if _, existed := c.agents[req.Name]; existed {
			delete(c.agents, req.Name)
		}
		c.mu.Unlock()
		return "blocked by pre-flight check"
	}

	agent.setActive(true)
	agent.setManaged(true)
	c.mu.Lock()
	c.agents[req.Name] = agent
	c.mu.Unlock()

	raw := c.executor.Run(ctx, agent, func(ctx context.Context, call providers.ToolCall) string {
		return c.executeToolCall(ctx, agent, call)
	})

	return c.synthesize(ctx, agent, raw)
}

// generatePlan asks the provider for an ordered task breakdown, one
// step per non-empty line of the response.
func (c *Coordinator) generatePlan(ctx context.Context, agent *SubAgent) []string {
	resp, err := c.provider.Complete(ctx, []providers.Message{
		{Role: providers.RoleSystem, Content: "Break the following task into an ordered, numbered plan."},
		{Role: providers.RoleUser, Content: agent.Task},
	}, nil)
	if err != nil || resp == nil {
		return nil
	}
	var steps []string
	for _, line := range strings.Split(resp.Text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}

func (c *Coordinator) preflightValid(ctx context.Context, agent *SubAgent) bool {
	prompt := fmt.Sprintf(preflightTemplate, agent.Task, agent.Name, agent.Role, agent.Plan)
	resp, err := c.provider.Complete(ctx, []providers.Message{
		{Role: providers.RoleSystem, Content: prompt},
	}, nil)
	if err != nil || resp == nil {
		return false
	}
	return strings.Contains(strings.ToUpper(resp.Text), "VALID")
}

type synthesisResult struct {
	Summary       string   `json:"summary"`
	Findings      []string `json:"findings"`
	LearnedLesson string   `json:"learned_lesson"`
	NextSteps     []string `json:"next_steps"`
}

func (c *Coordinator) synthesize(ctx context.Context, agent *SubAgent, raw string) string {
	resp, err := c.provider.Complete(ctx, []providers.Message{
		{Role: providers.RoleSystem, Content: fmt.Sprintf(synthesisTemplate, raw)},
	}, nil)
	if err != nil || resp == nil {
		return raw
	}

	parsed, ok := extractFirstJSONObject[synthesisResult](resp.Text)
	if !ok {
		return resp.Text
	}

	if parsed.LearnedLesson != "" {
		c.persistLesson(agent, parsed.LearnedLesson)
	}
	return parsed.Summary
}

func (c *Coordinator) persistLesson(agent *SubAgent, content string) {
	if c.lessonStore == nil {
		return
	}
	lesson := Lesson{
		Key:       fmt.Sprintf("%s-%s", agent.Name, uuid.NewString()),
		Kind:      "learned_lesson",
		Content:   content,
		Tags:      []string{agent.Name, string(agent.Role)},
		CreatedAt: time.Now(),
	}
	if err := c.lessonStore.Append(lesson); err != nil {
		slog.Warn("subagent.lesson_persist_failed", "agent", agent.Name, "error", err)
		return
	}
	if c.eventPub != nil {
		c.eventPub.Broadcast(bus.Event{Name: "lesson", Payload: lesson})
	}
}

// ExecuteTool implements execute_tool (§4.K), exported for callers
// outside this package (the orchestrator bridge).
func (c *Coordinator) ExecuteTool(ctx context.Context, agentName string, call providers.ToolCall) string {
	c.mu.RLock()
	agent, ok := c.agents[agentName]
	c.mu.RUnlock()
	if !ok {
		return "Agent not found"
	}
	return c.executeToolCall(ctx, agent, call)
}

func (c *Coordinator) executeToolCall(ctx context.Context, agent *SubAgent, call providers.ToolCall) string {
	if agent.Active() != true {
		return "not active or validated"
	}

	scope, known := toolScopes[call.Name]
	if !known || !agent.Role.InScope(scope) {
		return "outside the domain boundaries"
	}

	decision := c.policy(ctx, agent.Name, scope)
	if decision.Authorized != true {
		return "Permission denied"
	}

	return c.dispatchLocalTool(ctx, call)
}

func (c *Coordinator) dispatchLocalTool(ctx context.Context, call providers.ToolCall) string {
	switch call.Name {
	case "read_file":
		path, _ := call.Args["path"].(string)
		content, err := fstools.ReadFile(c.workspaceRoot, path, c.maxReadBytes)
		if err != nil {
			return err.Error()
		}
		return content
	case "write_file":
		path, _ := call.Args["path"].(string)
		content, _ := call.Args["content"].(string)
		result, err := fstools.WriteFile(c.workspaceRoot, path, content)
		if err != nil {
			return err.Error()
		}
		return result
	case "query_rag":
		query, _ := call.Args["query"].(string)
		result, err := fstools.QueryRAG(ctx, c.ragCollab, query)
		if err != nil {
			return err.Error()
		}
		return result
	default:
		if c.mcpRouter == nil {
			return "logic not implemented"
		}
		return c.mcpRouter.Call(ctx, call.Name, call.Args)
	}
}

// extractFirstJSONObject scans text for the first balanced {...} span
// and unmarshals it into T (§4.K.7: "Extract the first {...} JSON
// object from the response").
func extractFirstJSONObject[T any](text string) (T, bool) {
	var zero T
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return zero, false
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var out T
				if err := json.Unmarshal([]byte(text[start:i+1]), &out); err != nil {
					return zero, false
				}
				return out, true
			}
		}
	}
	return zero, false
}
