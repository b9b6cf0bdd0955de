package attachment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	homedir "github.com/mitchellh/go-homedir"
)

const maxComponentLen = 50

// SanitizeComponent makes a space key or content title safe as a single
// path element: runs of path separators and control characters become a
// single underscore, anything outside letters/digits/space/dot/dash/
// underscore is dropped, and the result is trimmed and capped. Empty input
// sanitizes to "untitled".
func SanitizeComponent(s string) string {
	var b strings.Builder
	replaced := false
	for _, r := range s {
		switch {
		case r == '/' || r == '\\' || r == os.PathSeparator || r < 0x20 || r == 0x7f:
			if !replaced {
				b.WriteRune('_')
				replaced = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
			replaced = false
		}
	}
	out := strings.Trim(b.String(), " .")
	if len(out) > maxComponentLen {
		out = strings.TrimRight(out[:maxComponentLen], " .")
	}
	if out == "" {
		return "untitled"
	}
	return out
}

// Organizer computes the local layout
// {base}/{space_or_project_key}/{sanitized title}/{filename}.
type Organizer struct {
	baseDir string
}

// NewOrganizer expands a leading ~ in baseDir and returns an organizer
// rooted there.
func NewOrganizer(baseDir string) (*Organizer, error) {
	expanded, err := homedir.Expand(baseDir)
	if err != nil {
		return nil, fmt.Errorf("expand base dir %q: %w", baseDir, err)
	}
	return &Organizer{baseDir: expanded}, nil
}

// BaseDir returns the expanded root of the layout.
func (o *Organizer) BaseDir() string { return o.baseDir }

// Resolve returns the target path for one attachment and creates the parent
// directories. Creation is idempotent; an already existing tree is fine.
// The vendor filename is preserved verbatim as the final element (only
// stripped of any directory part).
func (o *Organizer) Resolve(key, contentTitle, filename string) (string, error) {
	dir := filepath.Join(o.baseDir, SanitizeComponent(key), SanitizeComponent(contentTitle))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir %s: %w", dir, err)
	}
	return filepath.Join(dir, filepath.Base(filename)), nil
}

// uniquePath resolves a filename collision by suffixing _1, _2, ... before
// the extension. taken tracks paths already claimed by the current batch,
// since the files may not exist on disk yet.
func uniquePath(path string, taken map[string]bool) string {
	exists := func(p string) bool {
		if taken[p] {
			return true
		}
		_, err := os.Stat(p)
		return err == nil
	}
	if !exists(path) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !exists(candidate) {
			return candidate
		}
	}
}
