package utils

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnoreFile is looked up at the root of every walked tree.
const DefaultIgnoreFile = ".codewatch-ignore"

// ignoreCacheEntry holds a compiled ignore file with metadata
type ignoreCacheEntry struct {
	matcher *ignore.GitIgnore
	modTime time.Time
}

// Global cache for compiled ignore files
var (
	ignoreCache = make(map[string]*ignoreCacheEntry)
	cacheMutex  sync.RWMutex
)

// DefaultIgnoredDirs are the directory names skipped when no list is configured.
var DefaultIgnoredDirs = []string{".git", ".svn", ".hg"}

// defaultIgnoredFiles are glob patterns matched against base names.
var defaultIgnoredFiles = []string{"*.swp", "*.swx", "*.tmp", "*.bak", "*.bkp", "*~"}

// IgnoreMatcher decides which paths under a root are skipped by tree walks.
type IgnoreMatcher struct {
	root     string
	dirs     map[string]bool
	patterns *ignore.GitIgnore
}

// LoadIgnoreMatcher compiles the gitignore-style ignore file for root.
// Directories named in ignoredDirs are skipped at any depth; a nil list
// selects DefaultIgnoredDirs and an empty one skips nothing. A missing
// ignore file is not an error; only the directory list applies then.
func LoadIgnoreMatcher(root string, ignoreFile string, ignoredDirs []string) (*IgnoreMatcher, error) {
	dirs := dirSet(ignoredDirs)
	if ignoreFile == "" {
		ignoreFile = DefaultIgnoreFile
	}
	ignorePath := ignoreFile
	if !filepath.IsAbs(ignorePath) {
		ignorePath = filepath.Join(root, ignoreFile)
	}

	fileInfo, err := os.Stat(ignorePath)
	if os.IsNotExist(err) {
		return &IgnoreMatcher{root: root, dirs: dirs}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error checking %s: %w", ignorePath, err)
	}

	// Check cache first
	cacheMutex.RLock()
	if cached, exists := ignoreCache[ignorePath]; exists && fileInfo.ModTime().Equal(cached.modTime) {
		cacheMutex.RUnlock()
		return &IgnoreMatcher{root: root, dirs: dirs, patterns: cached.matcher}, nil
	}
	cacheMutex.RUnlock()

	compiled, err := ignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", ignorePath, err)
	}

	cacheMutex.Lock()
	ignoreCache[ignorePath] = &ignoreCacheEntry{
		matcher: compiled,
		modTime: fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return &IgnoreMatcher{root: root, dirs: dirs, patterns: compiled}, nil
}

// Ignored reports whether relPath (relative to the matcher root) is skipped.
// A nil matcher applies DefaultIgnoredDirs only.
func (m *IgnoreMatcher) Ignored(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	if relPath == "." || relPath == "" {
		return false
	}
	dirs := defaultDirSet
	if m != nil {
		dirs = m.dirs
	}
	if isDefaultIgnored(relPath, isDir, dirs) {
		return true
	}
	if m == nil || m.patterns == nil {
		return false
	}
	if m.patterns.MatchesPath(relPath) {
		return true
	}
	return isDir && m.patterns.MatchesPath(relPath+"/")
}

var defaultDirSet = dirSet(DefaultIgnoredDirs)

func dirSet(names []string) map[string]bool {
	if names == nil {
		names = DefaultIgnoredDirs
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.Trim(filepath.ToSlash(strings.TrimSpace(name)), "/")
		if name != "" {
			set[name] = true
		}
	}
	return set
}

// isDefaultIgnored checks a slash separated relative path against the
// ignored directory names and the built-in editor file patterns.
func isDefaultIgnored(relPath string, isDir bool, ignoredDirs map[string]bool) bool {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	dirs := parts
	if !isDir {
		dirs = parts[:len(parts)-1]
	}
	for _, part := range dirs {
		if ignoredDirs[part] {
			return true
		}
	}
	if isDir {
		return false
	}

	base := strings.ToLower(parts[len(parts)-1])
	for _, pattern := range defaultIgnoredFiles {
		if matched, _ := path.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// ClearIgnoreCache drops every compiled ignore file, forcing a recompile on
// the next load even when the modification time is unchanged.
func ClearIgnoreCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	ignoreCache = make(map[string]*ignoreCacheEntry)
}
