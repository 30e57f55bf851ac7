// Package subagent implements the role-bounded Sub-Agent Executor and
// Coordinator (§3, §4.J, §4.K): spawn, pre-flight validation, the
// bounded tool-use loop, synthesis, and lesson persistence.
package subagent

import "strings"

// Role is the fixed enumeration of sub-agent roles (§3). Each carries a
// scope-set bounding which tools it may call.
type Role string

const (
	RoleSeniorDev        Role = "senior-dev"
	RoleSecurityReviewer Role = "security-reviewer"
	RoleAssistant        Role = "assistant"
	RoleDataScientist    Role = "data-scientist"
)

// scopeSets maps each role to its fixed tool-scope allowlist (§3).
var scopeSets = map[Role]map[string]bool{
	RoleSeniorDev: {
		"fs.read": true, "fs.write": true, "shell.test": true, "rag.query": true,
	},
	RoleSecurityReviewer: {
		"fs.read": true, "rag.query": true, "security.audit": true,
	},
	RoleAssistant: {
		"rag.query": true, "memory.search": true,
	},
	RoleDataScientist: {
		"fs.read": true, "rag.query": true, "data.execute": true,
	},
}

// ParseRole maps a raw role string to the fixed enumeration. An unknown
// or empty value maps to Assistant (§3: "Unknown role → Assistant").
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleSeniorDev:
		return RoleSeniorDev
	case RoleSecurityReviewer:
		return RoleSecurityReviewer
	case RoleDataScientist:
		return RoleDataScientist
	default:
		return RoleAssistant
	}
}

// InScope reports whether scope is permitted for role.
func (r Role) InScope(scope string) bool {
	return scopeSets[r][scope]
}

// Scopes returns the full scope-set for role, for building tool schemas
// filtered to it (§4.J: "tool schema filtered to the scope-set").
func (r Role) Scopes() []string {
	set := scopeSets[r]
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}
