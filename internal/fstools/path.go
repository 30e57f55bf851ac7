// Package fstools implements the workspace-confined filesystem tools
// available to sub-agents (§4.L): read_file, write_file, and the
// query_rag passthrough. Every tool call here returns a short string on
// both success and failure — callers (the Sub-Agent Executor) never see
// a panic, only a returned error they fold into that same string
// convention.
package fstools

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// validatePath applies the common path checks shared by read_file and
// write_file (§4.L): empty-path rejection, canonicalization, a
// symlink-component scan (lstat-based, every path segment — not just
// the final component), and workspace containment. It never touches
// the target file itself beyond lstat calls on ancestor directories
// that already exist.
func validatePath(raw, workspaceRoot string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("Empty path")
	}

	wsAbs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return "", fmt.Errorf("access denied: cannot resolve workspace")
	}
	wsReal, err := filepath.EvalSymlinks(wsAbs)
	if err != nil {
		wsReal = wsAbs
	}

	var candidate string
	if filepath.IsAbs(raw) {
		candidate = filepath.Clean(raw)
	} else {
		candidate = filepath.Clean(filepath.Join(wsReal, raw))
	}

	if err := rejectSymlinkComponents(candidate); err != nil {
		return "", err
	}

	real, err := canonicalizeExisting(candidate)
	if err != nil {
		return "", fmt.Errorf("access denied: cannot canonicalize path")
	}

	if !isPathInside(real, wsReal) {
		slog.Warn("fstools.path_escape", "path", raw, "resolved", real, "workspace", wsReal)
		return "", fmt.Errorf("access denied: path outside workspace")
	}
	return real, nil
}

// canonicalizeExisting resolves symlinks along the deepest existing
// ancestor and reattaches any non-existent trailing components, so a
// not-yet-created write_file destination still canonicalizes cleanly.
func canonicalizeExisting(path string) (string, error) {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real, nil
	}
	current := path
	var tail []string
	for {
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("cannot canonicalize: reached filesystem root")
		}
		tail = append([]string{filepath.Base(current)}, tail...)
		current = parent
		if realParent, err := filepath.EvalSymlinks(current); err == nil {
			result := realParent
			for _, c := range tail {
				result = filepath.Join(result, c)
			}
			return result, nil
		}
	}
}

// rejectSymlinkComponents lstats every existing ancestor of path and
// fails if any of them is itself a symlink — the spec requires denying
// on a symlink anywhere in the path, not just the final component.
func rejectSymlinkComponents(path string) error {
	clean := filepath.Clean(path)
	components := strings.Split(clean, string(filepath.Separator))
	current := string(filepath.Separator)
	for _, comp := range components {
		if comp == "" {
			continue
		}
		current = filepath.Join(current, comp)
		info, err := os.Lstat(current)
		if err != nil {
			break // stop at the first non-existent component
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("access denied: path contains a symlink component")
		}
	}
	return nil
}

func isPathInside(child, parent string) bool {
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}
