package code_analyzer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/meysamhadeli/codewatch/code_analyzer/models"
)

// includePattern matches a word-bounded include keyword, an optional opening
// parenthesis and a quoted literal. Dynamic includes built from variables,
// constants or concatenation are not matched: the graph is a static
// approximation.
var includePattern = regexp.MustCompile(`\b(include_once|require_once|include|require)\b\s*\(?\s*(?:'([^'\r\n]*)'|"([^"\r\n]*)")`)

// ExtractIncludes returns the include edges declared in content, resolved
// relative to the directory of path (which must already be canonical), plus
// a warning for every target that could not be used.
func ExtractIncludes(path string, content string) ([]models.DependencyEdge, []models.ParseWarning) {
	var edges []models.DependencyEdge
	var warnings []models.ParseWarning

	dir := filepath.Dir(path)
	line, offset := 1, 0
	for _, match := range includePattern.FindAllStringSubmatchIndex(content, -1) {
		keyword := content[match[2]:match[3]]
		target := submatch(content, match, 2)
		if match[4] < 0 {
			target = submatch(content, match, 3)
		}
		line += strings.Count(content[offset:match[0]], "\n")
		offset = match[0]

		switch {
		case strings.TrimSpace(target) == "":
			warnings = append(warnings, models.ParseWarning{Path: path, Line: line, Reason: "empty include target"})
			continue
		case strings.Contains(target, "$"):
			warnings = append(warnings, models.ParseWarning{Path: path, Line: line, Target: target, Reason: "interpolated include target"})
			continue
		}

		edges = append(edges, models.DependencyEdge{
			From:    path,
			To:      ResolveInclude(dir, target),
			Keyword: keyword,
			Line:    line,
		})
	}

	return edges, warnings
}

// ResolveInclude resolves target against the including file's directory,
// following symlinks the way CanonicalPath does. The target is not required
// to exist.
func ResolveInclude(dir string, target string) string {
	target = filepath.FromSlash(strings.TrimSpace(target))
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	return resolveSymlinks(filepath.Clean(target))
}

func submatch(content string, match []int, group int) string {
	start, end := match[group*2], match[group*2+1]
	if start < 0 {
		return ""
	}
	return content[start:end]
}
