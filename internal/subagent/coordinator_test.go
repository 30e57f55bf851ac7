package subagent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/goclaw-core/internal/mcptool"
	"github.com/nextlevelbuilder/goclaw-core/internal/permissions"
	"github.com/nextlevelbuilder/goclaw-core/internal/providers"
)

func newTestCoordinator(t *testing.T, provider providers.Provider, policy permissions.Checker) (*Coordinator, string) {
	t.Helper()
	workspace := t.TempDir()
	lessonPath := filepath.Join(workspace, "lessons.jsonl")
	return NewCoordinator(Config{
		Provider:      provider,
		Policy:        policy,
		LessonStore:   NewLessonStore(lessonPath),
		MCPRouter:     mcptool.NewRouter(nil),
		WorkspaceRoot: workspace,
		MaxReadBytes:  1 << 20,
	}), lessonPath
}

func TestCoordinator_Spawn_BlockedByPreflight(t *testing.T) {
	provider := &providers.ScriptedProvider{Responses: []*providers.Response{
		{Text: "1. do the thing"},
		{Text: "this task should not run"},
	}}
	coord, _ := newTestCoordinator(t, provider, permissions.AllowAll)

	result := coord.Spawn(context.Background(), SpawnRequest{Name: "agent-1", Task: "do something", Role: "assistant"})

	if result != "blocked by pre-flight check" {
		t.Fatalf("Spawn() = %q, want blocked-by-preflight", result)
	}
	if _, ok := coord.agents["agent-1"]; ok {
		t.Error("expected a pre-flight-blocked agent to not remain registered")
	}
}

func TestCoordinator_Spawn_SynthesizesAndPersistsLesson(t *testing.T) {
	provider := &providers.ScriptedProvider{Responses: []*providers.Response{
		{Text: "1. investigate\n2. report back"},
		{Text: "VALID"},
		{Text: "investigation complete"},
		{Text: `{"summary":"all good","learned_lesson":"always check the logs first","findings":["a"],"next_steps":["b"]}`},
	}}
	coord, lessonPath := newTestCoordinator(t, provider, permissions.AllowAll)

	result := coord.Spawn(context.Background(), SpawnRequest{Name: "agent-2", Task: "investigate an outage", Role: "senior-dev"})

	if result != "all good" {
		t.Fatalf("Spawn() = %q, want %q", result, "all good")
	}

	data, err := os.ReadFile(lessonPath)
	if err != nil {
		t.Fatalf("expected lesson file to be written: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a non-empty lesson file")
	}
}

func TestCoordinator_ExecuteTool_UnknownAgent(t *testing.T) {
	coord, _ := newTestCoordinator(t, &providers.NullProvider{}, permissions.AllowAll)
	result := coord.ExecuteTool(context.Background(), "ghost", providers.ToolCall{Name: "read_file"})
	if result != "Agent not found" {
		t.Fatalf("ExecuteTool() = %q, want 'Agent not found'", result)
	}
}

func TestCoordinator_ExecuteToolCall_OutsideScope(t *testing.T) {
	coord, _ := newTestCoordinator(t, &providers.NullProvider{}, permissions.AllowAll)
	agent := newSubAgent("agent-3", RoleAssistant, "task", nil)
	agent.setActive(true)

	// security.audit is not in the Assistant role's scope-set.
	result := coord.executeToolCall(context.Background(), agent, providers.ToolCall{Name: "security_audit"})
	if result != "outside the domain boundaries" {
		t.Fatalf("executeToolCall() = %q, want out-of-scope rejection", result)
	}
}

func TestCoordinator_ExecuteToolCall_DeniedByPolicy(t *testing.T) {
	coord, _ := newTestCoordinator(t, &providers.NullProvider{}, permissions.DenyAll)
	agent := newSubAgent("agent-4", RoleSeniorDev, "task", nil)
	agent.setActive(true)

	result := coord.executeToolCall(context.Background(), agent, providers.ToolCall{Name: "read_file", Args: map[string]any{"path": "x.txt"}})
	if result != "Permission denied" {
		t.Fatalf("executeToolCall() = %q, want 'Permission denied'", result)
	}
}

func TestCoordinator_ExecuteToolCall_InactiveAgent(t *testing.T) {
	coord, _ := newTestCoordinator(t, &providers.NullProvider{}, permissions.AllowAll)
	agent := newSubAgent("agent-5", RoleSeniorDev, "task", nil)

	result := coord.executeToolCall(context.Background(), agent, providers.ToolCall{Name: "read_file"})
	if result != "not active or validated" {
		t.Fatalf("executeToolCall() = %q, want inactive rejection", result)
	}
}

func TestCoordinator_DispatchLocalTool_ReadWriteRoundtrip(t *testing.T) {
	coord, _ := newTestCoordinator(t, &providers.NullProvider{}, permissions.AllowAll)
	agent := newSubAgent("agent-6", RoleSeniorDev, "task", nil)
	agent.setActive(true)

	writeResult := coord.executeToolCall(context.Background(), agent, providers.ToolCall{
		Name: "write_file",
		Args: map[string]any{"path": "notes.txt", "content": "hello world"},
	})
	if writeResult == "" {
		t.Fatal("expected a non-empty write_file result")
	}

	readResult := coord.executeToolCall(context.Background(), agent, providers.ToolCall{
		Name: "read_file",
		Args: map[string]any{"path": "notes.txt"},
	})
	if readResult != "hello world" {
		t.Fatalf("read_file result = %q, want %q", readResult, "hello world")
	}
}

func TestExtractFirstJSONObject(t *testing.T) {
	type payload struct {
		A string `json:"a"`
	}

	text := `here is the result: {"a":"value"} and some trailing text`
	got, ok := extractFirstJSONObject[payload](text)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if got.A != "value" {
		t.Errorf("got.A = %q, want %q", got.A, "value")
	}

	if _, ok := extractFirstJSONObject[payload]("no braces here"); ok {
		t.Error("expected extraction to fail when no JSON object is present")
	}

	if _, ok := extractFirstJSONObject[payload]("unbalanced { object"); ok {
		t.Error("expected extraction to fail on an unbalanced brace span")
	}
}
