package fstools

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// WriteFile implements write_file (§4.L): atomic replace via a
// same-directory temp file, with a pre/post existence-and-identity
// check around the write window to catch a destination rebind race.
func WriteFile(workspaceRoot, rawPath, content string) (string, error) {
	resolved, err := validatePath(rawPath, workspaceRoot)
	if err != nil {
		return "", err
	}

	preStat, preExists, err := statIdentity(resolved)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("denied: cannot create parent directory")
	}

	tmp, err := os.CreateTemp(dir, ".fstools-tmp-*")
	if err != nil {
		return "", fmt.Errorf("denied: cannot create temp file")
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("denied: write failed")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("denied: write failed")
	}

	postStat, postExists, err := statIdentity(resolved)
	if err != nil {
		cleanup()
		return "", err
	}
	if postExists != preExists {
		cleanup()
		return "", fmt.Errorf("TOCTOU detected")
	}
	if preExists && postExists {
		if postStat.symlink {
			cleanup()
			return "", fmt.Errorf("symlink detected")
		}
		if postStat.ino != preStat.ino || postStat.dev != preStat.dev {
			cleanup()
			return "", fmt.Errorf("TOCTOU detected")
		}
	}

	if err := os.Rename(tmpPath, resolved); err != nil {
		cleanup()
		return "", err
	}
	return fmt.Sprintf("File %s written successfully.", rawPath), nil
}

type pathIdentity struct {
	ino     uint64
	dev     uint64
	symlink bool
}

// statIdentity lstats path, reporting whether it exists, whether it's
// a symlink, and its (inode, device) pair for pre/post comparison.
func statIdentity(path string) (pathIdentity, bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return pathIdentity{}, false, nil
		}
		return pathIdentity{}, false, fmt.Errorf("denied: cannot stat destination")
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return pathIdentity{symlink: true}, true, nil
	}
	if !info.Mode().IsRegular() {
		return pathIdentity{}, true, fmt.Errorf("denied: destination is not a regular file")
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return pathIdentity{}, true, fmt.Errorf("denied: cannot stat destination")
	}
	return pathIdentity{ino: stat.Ino, dev: uint64(stat.Dev)}, true, nil
}
