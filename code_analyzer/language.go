package code_analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meysamhadeli/codewatch/code_analyzer/models"
)

// DefaultDependencyExtensions are the extensions whose files carry include edges.
var DefaultDependencyExtensions = []string{".php", ".inc"}

// DefaultScriptExtensions are watched and searched but never analyzed for includes.
var DefaultScriptExtensions = []string{".py"}

// extensionLanguages names the grammar used by the syntax diagnostic.
var extensionLanguages = map[string]string{
	".php":   "php",
	".inc":   "php",
	".phtml": "php",
	".py":    "python",
}

type languageEntry struct {
	kind     models.Kind
	language string
}

// LanguageTable resolves a file's kind once, by extension lookup.
type LanguageTable struct {
	entries map[string]languageEntry
}

// NewLanguageTable builds a table from extension lists. Extensions are
// matched case-insensitively; the leading dot is optional. An extension in
// both lists is treated as dependency-capable.
func NewLanguageTable(dependencyExtensions []string, scriptExtensions []string) *LanguageTable {
	table := &LanguageTable{entries: make(map[string]languageEntry)}
	for _, ext := range scriptExtensions {
		ext = normalizeExtension(ext)
		table.entries[ext] = languageEntry{kind: models.KindScript, language: extensionLanguages[ext]}
	}
	for _, ext := range dependencyExtensions {
		ext = normalizeExtension(ext)
		table.entries[ext] = languageEntry{kind: models.KindDependency, language: extensionLanguages[ext]}
	}
	delete(table.entries, "")
	return table
}

// DefaultLanguageTable returns the table for the default extension lists.
func DefaultLanguageTable() *LanguageTable {
	return NewLanguageTable(DefaultDependencyExtensions, DefaultScriptExtensions)
}

// KindOf returns the kind of path.
func (t *LanguageTable) KindOf(path string) models.Kind {
	return t.entries[strings.ToLower(filepath.Ext(path))].kind
}

// Classify returns the SourceFile for path. The path is made canonical.
func (t *LanguageTable) Classify(path string) (models.SourceFile, error) {
	canonical, err := CanonicalPath(path)
	if err != nil {
		return models.SourceFile{}, err
	}
	entry := t.entries[strings.ToLower(filepath.Ext(canonical))]
	return models.SourceFile{Path: canonical, Kind: entry.kind, Language: entry.language}, nil
}

// Patterns returns glob patterns ("*.php") for every known extension, sorted.
func (t *LanguageTable) Patterns() []string {
	patterns := make([]string, 0, len(t.entries))
	for ext := range t.entries {
		patterns = append(patterns, "*"+ext)
	}
	sort.Strings(patterns)
	return patterns
}

// CanonicalPath returns the absolute, cleaned form of path with symlinks
// resolved. The path does not need to exist.
func CanonicalPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return resolveSymlinks(filepath.Clean(abs)), nil
}

// resolveSymlinks evaluates the longest existing prefix of the absolute,
// clean path and appends the missing remainder unchanged. Dangling links
// and unreadable prefixes keep their lexical form.
func resolveSymlinks(path string) string {
	var missing []string
	prefix := path
	for {
		if _, err := os.Lstat(prefix); err == nil {
			break
		}
		parent := filepath.Dir(prefix)
		if parent == prefix {
			return path
		}
		missing = append(missing, filepath.Base(prefix))
		prefix = parent
	}

	resolved, err := filepath.EvalSymlinks(prefix)
	if err != nil {
		return path
	}
	for i := len(missing) - 1; i >= 0; i-- {
		resolved = filepath.Join(resolved, missing[i])
	}
	return resolved
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = strings.TrimPrefix(ext, "*")
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
