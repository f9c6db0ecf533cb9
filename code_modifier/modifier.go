package code_modifier

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/hashicorp/go-multierror"

	"github.com/meysamhadeli/codewatch/change_detector"
	"github.com/meysamhadeli/codewatch/code_analyzer"
	cmodels "github.com/meysamhadeli/codewatch/code_analyzer/models"
	"github.com/meysamhadeli/codewatch/code_modifier/contracts"
	"github.com/meysamhadeli/codewatch/code_modifier/models"
	"github.com/meysamhadeli/codewatch/logging"
	"github.com/meysamhadeli/codewatch/metrics"
	"github.com/meysamhadeli/codewatch/utils"
)

// CodeModifier searches and rewrites supported files under a root.
type CodeModifier struct {
	root        string
	languages   *code_analyzer.LanguageTable
	ignoreFile  string
	ignoredDirs []string
	logger      *logging.Logger
	metrics     *metrics.Recorder
}

var _ contracts.ICodeModifier = (*CodeModifier)(nil)

// Options configures a CodeModifier. Only Root is required.
type Options struct {
	Root        string
	Languages   *code_analyzer.LanguageTable
	IgnoreFile  string
	IgnoredDirs []string
	Logger      *logging.Logger
	Metrics     *metrics.Recorder
}

// NewCodeModifier creates a modifier for opts.Root.
func NewCodeModifier(opts Options) (*CodeModifier, error) {
	root, err := code_analyzer.CanonicalPath(opts.Root)
	if err != nil {
		return nil, err
	}

	languages := opts.Languages
	if languages == nil {
		languages = code_analyzer.DefaultLanguageTable()
	}

	return &CodeModifier{
		root:        root,
		languages:   languages,
		ignoreFile:  opts.IgnoreFile,
		ignoredDirs: opts.IgnoredDirs,
		logger:      logging.OrDefault(opts.Logger),
		metrics:     opts.Metrics,
	}, nil
}

// Root returns the canonical root the modifier walks.
func (m *CodeModifier) Root() string {
	return m.root
}

// Search returns every supported file whose content matches pattern, in walk
// order. An invalid pattern fails before any file is read and a root that
// cannot be enumerated fails with utils.ErrRootUnreadable. Files that cannot
// be read are skipped; their errors are returned together, alongside the
// matches found in the remaining files.
func (m *CodeModifier) Search(pattern string) ([]string, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	var matches []string
	errs, err := m.walk("search", func(path string) error {
		content, err := code_analyzer.ReadSourceFile(path)
		if err != nil {
			return err
		}
		if re.MatchString(content) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("search finished", "pattern", pattern, "matches", len(matches))
	return matches, errs.ErrorOrNil()
}

// Modify replaces every match of pattern with replacement in every matching
// file. replacement may reference groups as $1 or ${name}. A file is written
// only when its content actually changes, and keeps its permissions. The
// returned paths are the files that were rewritten.
func (m *CodeModifier) Modify(pattern string, replacement string) ([]string, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	var modified []string
	errs, err := m.walk("modify", func(path string) error {
		content, updated, changed, err := substitute(path, re, replacement)
		if err != nil || !changed {
			return err
		}

		if err := writePreservingMode(path, updated); err != nil {
			return err
		}

		before, after := len(content), len(updated)
		m.logger.Info("modified file", "path", path, "bytes_before", before, "bytes_after", after)
		modified = append(modified, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.ObserveModified(len(modified))
	return modified, errs.ErrorOrNil()
}

// Preview reports what Modify would change without writing anything.
func (m *CodeModifier) Preview(pattern string, replacement string) ([]models.Preview, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	var previews []models.Preview
	errs, err := m.walk("preview", func(path string) error {
		content, updated, changed, err := substitute(path, re, replacement)
		if err != nil || !changed {
			return err
		}

		patch := change_detector.BuildPatch(path, content, updated, change_detector.DefaultContextLines)
		previews = append(previews, models.Preview{Path: path, Patch: patch})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return previews, errs.ErrorOrNil()
}

// walk calls fn for every supported file under the root. Per-file failures
// are logged, counted and collected; the walk always continues. A root that
// cannot be enumerated ends the walk and is returned on its own.
func (m *CodeModifier) walk(operation string, fn func(path string) error) (*multierror.Error, error) {
	var errs *multierror.Error
	fail := func(path string, err error) {
		m.logger.Warn("skipping file", "operation", operation, "path", path, "error", err)
		m.metrics.ObserveFileError(operation)
		errs = multierror.Append(errs, err)
	}

	matcher, err := utils.LoadIgnoreMatcher(m.root, m.ignoreFile, m.ignoredDirs)
	if err != nil {
		m.logger.Warn("ignoring unreadable ignore file", "root", m.root, "error", err)
		matcher = nil
	}

	err = utils.WalkSourceFiles(m.root, matcher, func(path string, _ fs.DirEntry) error {
		if !m.languages.KindOf(path).Supported() {
			return nil
		}
		if err := fn(path); err != nil {
			fail(path, err)
		}
		return nil
	}, func(path string, err error) {
		fail(path, &cmodels.ReadError{Path: path, Err: err})
	})
	if err != nil {
		m.logger.Error("failed to walk root", "operation", operation, "root", m.root, "error", err)
		return errs, err
	}

	return errs, nil
}

// substitute reads path and applies the replacement. changed is false when
// the pattern does not match or the replacement yields identical content.
func substitute(path string, re *regexp.Regexp, replacement string) (content string, updated string, changed bool, err error) {
	content, err = code_analyzer.ReadSourceFile(path)
	if err != nil {
		return "", "", false, err
	}
	if !re.MatchString(content) {
		return content, content, false, nil
	}
	updated = re.ReplaceAllString(content, replacement)
	return content, updated, updated != content, nil
}

func writePreservingMode(path string, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &cmodels.WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return &cmodels.WriteError{Path: path, Err: err}
	}
	return nil
}

// ErrInvalidPattern is wrapped by every pattern compilation failure.
var ErrInvalidPattern = errors.New("invalid pattern")

func compilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	return re, nil
}
