// Package repo locates the root of the repository the assistant is
// working in. The memory store lives under that root so that every
// process started anywhere inside the tree finds the same database.
package repo

import (
	"os"
	"path/filepath"
)

// FindRoot walks upward from start looking for a .git entry (directory
// or file, worktrees use a file) and returns the first directory that
// has one. If the walk reaches the filesystem root without finding a
// repository, start itself is returned so callers always get a usable
// directory.
func FindRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for cur := dir; ; {
		if _, err := os.Stat(filepath.Join(cur, ".git")); err == nil {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

// FindRootCwd is FindRoot anchored at the current working directory.
func FindRootCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return FindRoot(cwd)
}
