package builtin

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolvePath resolves a user-supplied path against the workspace root and
// rejects anything that escapes it. All file tools go through this so a
// worker can only touch its own task directory tree.
func resolvePath(p, root string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("path is required")
	}

	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace", p)
	}
	return abs, nil
}

// normalizeToLF rewrites CRLF and bare CR line endings to LF.
func normalizeToLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}
