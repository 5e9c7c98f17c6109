// Package security guards the filesystem boundaries of the dataset tools:
// metadata-supplied paths must stay inside the dataset root, and names
// derived from recorded values must be safe file names.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveWithinRoot joins a metadata-relative path onto the dataset root and
// rejects results that escape it. Absolute relPath values are rejected
// outright; the metadata table only carries root-relative paths.
func ResolveWithinRoot(root, relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("path %q must be relative to the dataset root", relPath)
	}
	full := filepath.Join(root, filepath.FromSlash(relPath))
	if err := ValidatePathWithinDirectory(full, root); err != nil {
		return "", err
	}
	return full, nil
}

// ValidatePathWithinDirectory checks that filePath, once cleaned and made
// absolute, lies inside safeDir. Symlinks are resolved where the path exists,
// and for paths that do not exist yet the nearest existing parent is resolved
// instead, so a symlinked directory cannot smuggle a path outside safeDir.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	canonicalPath := canonicalise(absPath)
	canonicalSafeDir := canonicalise(absSafeDir)

	relPath, err := filepath.Rel(canonicalSafeDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// canonicalise resolves symlinks in absPath, falling back to the deepest
// existing ancestor when the path itself does not exist.
func canonicalise(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	checkPath := absPath
	for {
		parentDir := filepath.Dir(checkPath)
		if parentDir == checkPath {
			return absPath
		}
		if resolved, err := filepath.EvalSymlinks(parentDir); err == nil {
			relToParent, _ := filepath.Rel(parentDir, absPath)
			return filepath.Join(resolved, relToParent)
		}
		checkPath = parentDir
	}
}

// SanitizeFilename makes a safe filename component from an arbitrary string.
// Characters other than ASCII letters, digits, dot, underscore or dash become
// an underscore, runs of underscores collapse, and the result is capped at
// 128 bytes.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_':
			if !lastUnderscore {
				b.WriteRune(r)
			}
			lastUnderscore = true
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
