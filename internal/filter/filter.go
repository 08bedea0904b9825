// Package filter implements the ignore-pattern and scope cascade that
// decides whether a given relative path participates in sync at all.
package filter

import (
	"path/filepath"
	"strings"
)

// DefaultIgnorePatterns are applied when the configuration supplies none.
// Matches the Office lock-file, temp-file, and OS-metadata conventions the
// original tool special-cased.
var DefaultIgnorePatterns = []string{"~$*", "*.tmp", ".DS_Store", "Thumbs.db"}

// stateFileBasename and stateFilePrefix exclude the engine's own state file
// (and any sibling corrupt-backup/temp variants) from ever being synced.
const (
	stateFileBasename = "sync_state.json"
	stateFilePrefix   = ".sync_state"
)

// Filter evaluates whether a relative path should participate in sync,
// per spec §4.3: ignore patterns, the reserved state-file name, exclude
// prefixes, and an optional sync-folder allowlist.
type Filter struct {
	ignorePatterns  []string
	syncFolders     []string
	excludeFolders  []string
}

// New constructs a Filter. An empty ignorePatterns slice falls back to
// DefaultIgnorePatterns. An empty syncFolders means "everything is in scope"
// (subject to excludeFolders and the ignore list).
func New(ignorePatterns, syncFolders, excludeFolders []string) *Filter {
	patterns := ignorePatterns
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns
	}

	return &Filter{
		ignorePatterns: trimSlashes(patterns),
		syncFolders:    trimSlashes(syncFolders),
		excludeFolders: trimSlashes(excludeFolders),
	}
}

// ShouldSync reports whether relPath (POSIX-style, relative to the sync
// root) should be synced.
func (f *Filter) ShouldSync(relPath string) bool {
	base := filepath.Base(relPath)

	if f.matchesIgnorePattern(base) {
		return false
	}

	if base == stateFileBasename || strings.HasPrefix(base, stateFilePrefix) {
		return false
	}

	if f.underAnyPrefix(relPath, f.excludeFolders) {
		return false
	}

	if len(f.syncFolders) > 0 && !f.underAnyPrefix(relPath, f.syncFolders) {
		return false
	}

	return true
}

// matchesIgnorePattern reports whether base matches any configured glob,
// case-insensitively — mirrors the filesystem case-insensitivity most sync
// clients tolerate on the platforms they ship to.
func (f *Filter) matchesIgnorePattern(base string) bool {
	lower := strings.ToLower(base)

	for _, pattern := range f.ignorePatterns {
		if matched, err := filepath.Match(strings.ToLower(pattern), lower); err == nil && matched {
			return true
		}
	}

	return false
}

// underAnyPrefix reports whether relPath equals one of prefixes or begins
// with "prefix/". Prefixes are pre-trimmed of surrounding slashes.
func (f *Filter) underAnyPrefix(relPath string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "" {
			continue
		}

		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
	}

	return false
}

// trimSlashes strips leading/trailing "/" from every entry, per the
// "P trimmed of surrounding /" rule in spec §4.3.
func trimSlashes(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.Trim(s, "/")
	}

	return out
}
