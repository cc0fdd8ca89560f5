// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fs resolves file names inside a directory without letting them
// escape it.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesRoot is returned when a name resolves outside its root.
var ErrEscapesRoot = errors.New("path escapes root")

// ConfineName joins root and name, where name must be a single path element,
// and returns the symlink-resolved result. It fails if name contains a
// separator or traversal, or if the resolved file lies outside root.
// A name that does not exist yet resolves to root/name.
func ConfineName(root, name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid name %q", ErrEscapesRoot, name)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: name %q is not a single element", ErrEscapesRoot, name)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root %q: %w", root, err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}

	candidate := filepath.Join(realRoot, name)
	resolved, err := filepath.EvalSymlinks(candidate)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Either the file is missing or a dangling symlink; Lstat tells which.
		if info, lerr := os.Lstat(candidate); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("%w: dangling symlink %q", ErrEscapesRoot, name)
		}
		return candidate, nil
	case err != nil:
		return "", fmt.Errorf("resolve %q: %w", name, err)
	}

	rel, err := filepath.Rel(realRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q resolves to %s", ErrEscapesRoot, name, resolved)
	}
	return resolved, nil
}

// IsRegularFile returns nil if path exists and is a regular file.
func IsRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}
