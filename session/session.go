// Package session owns the state of one watched tree: the current dependency
// graph, the content baselines and the components that act on them. Events
// are processed one at a time; the graph is replaced as a whole when it is
// rebuilt.
package session

import (
	"context"
	"errors"
	"io/fs"
	"sync/atomic"

	"github.com/meysamhadeli/codewatch/change_detector"
	"github.com/meysamhadeli/codewatch/code_analyzer"
	analyzer_contracts "github.com/meysamhadeli/codewatch/code_analyzer/contracts"
	"github.com/meysamhadeli/codewatch/code_analyzer/models"
	"github.com/meysamhadeli/codewatch/code_modifier"
	modifier_models "github.com/meysamhadeli/codewatch/code_modifier/models"
	"github.com/meysamhadeli/codewatch/logging"
	"github.com/meysamhadeli/codewatch/metrics"
	"github.com/meysamhadeli/codewatch/propagation"
	"github.com/meysamhadeli/codewatch/syntax"
	"github.com/meysamhadeli/codewatch/utils"
)

// Options configures a Session. Only Root is required.
type Options struct {
	Root       string
	Languages  *code_analyzer.LanguageTable
	IgnoreFile string
	// IgnoredDirs are directory names never walked. Nil selects
	// utils.DefaultIgnoredDirs.
	IgnoredDirs []string

	EnableCache bool
	CacheDir    string

	// ContextLines is the number of unchanged lines around each patch hunk.
	ContextLines int

	// RebuildOnCreate rebuilds the graph before handling the creation of a
	// dependency-capable file.
	RebuildOnCreate bool

	Logger  *logging.Logger
	Metrics *metrics.Recorder
}

// Session is the single owner of graph and baseline state for a root.
type Session struct {
	root            string
	languages       *code_analyzer.LanguageTable
	ignoreFile      string
	ignoredDirs     []string
	rebuildOnCreate bool

	graph    atomic.Pointer[models.DependencyGraph]
	analyzer analyzer_contracts.ICodeAnalyzer
	detector *change_detector.Detector
	engine   *propagation.Engine
	modifier *code_modifier.CodeModifier
	checker  *syntax.Checker

	logger  *logging.Logger
	metrics *metrics.Recorder
}

// EventResult describes what handling one FileModified event did.
type EventResult struct {
	Path string
	Kind models.Kind
	// Diff is nil for unsupported files and when the file could not be read.
	Diff *models.DiffRecord
	// Propagation is set for dependency-capable files only.
	Propagation *propagation.Result
	// Syntax is set when the file failed to parse cleanly.
	Syntax  *models.ParseWarning
	Rebuilt bool
}

// New creates a session. The graph stays empty until BuildGraph is called.
func New(opts Options) (*Session, error) {
	root, err := code_analyzer.CanonicalPath(opts.Root)
	if err != nil {
		return nil, err
	}

	logger := logging.OrDefault(opts.Logger)
	languages := opts.Languages
	if languages == nil {
		languages = code_analyzer.DefaultLanguageTable()
	}
	contextLines := opts.ContextLines
	if contextLines <= 0 {
		contextLines = change_detector.DefaultContextLines
	}

	modifier, err := code_modifier.NewCodeModifier(code_modifier.Options{
		Root:        root,
		Languages:   languages,
		IgnoreFile:  opts.IgnoreFile,
		IgnoredDirs: opts.IgnoredDirs,
		Logger:      logger,
		Metrics:     opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		root:            root,
		languages:       languages,
		ignoreFile:      opts.IgnoreFile,
		ignoredDirs:     opts.IgnoredDirs,
		rebuildOnCreate: opts.RebuildOnCreate,
		analyzer: code_analyzer.NewCodeAnalyzer(code_analyzer.Options{
			Languages:   languages,
			IgnoreFile:  opts.IgnoreFile,
			IgnoredDirs: opts.IgnoredDirs,
			EnableCache: opts.EnableCache,
			CacheDir:    opts.CacheDir,
			Logger:      logger,
		}),
		detector: change_detector.NewDetectorWithContext(contextLines),
		modifier: modifier,
		checker:  syntax.NewChecker(),
		logger:   logger,
		metrics:  opts.Metrics,
	}
	s.engine = propagation.NewEngine(s, s.detector, logger, opts.Metrics)

	return s, nil
}

// Root returns the canonical root of the session.
func (s *Session) Root() string {
	return s.root
}

// Graph returns the current dependency graph, nil before the first build.
func (s *Session) Graph() *models.DependencyGraph {
	return s.graph.Load()
}

// Analyzer exposes the graph builder, mainly for cache maintenance.
func (s *Session) Analyzer() analyzer_contracts.ICodeAnalyzer {
	return s.analyzer
}

// Detector exposes the baseline store.
func (s *Session) Detector() *change_detector.Detector {
	return s.detector
}

// BuildGraph builds a fresh graph and swaps it in. Readers holding the
// previous graph keep a consistent view of it. On error the current graph
// is kept.
func (s *Session) BuildGraph() (*models.BuildResult, error) {
	result, err := s.analyzer.BuildGraph(s.root)
	if err != nil {
		return nil, err
	}

	s.graph.Store(result.Graph)
	s.metrics.ObserveGraph(result.Graph.FileCount(), result.Graph.EdgeCount(), result.FromCache)
	s.logger.Info("dependency graph ready",
		"root", s.root,
		"files", result.Graph.FileCount(),
		"edges", result.Graph.EdgeCount(),
		"skipped", len(result.Skipped),
		"warnings", len(result.Warnings),
		"from_cache", result.FromCache,
	)

	return result, nil
}

// Prime records a silent baseline for every supported file under the root,
// so the first edit after startup produces a real diff. It returns the
// number of baselines held afterwards and the per-file failures.
func (s *Session) Prime() (int, error) {
	matcher, err := utils.LoadIgnoreMatcher(s.root, s.ignoreFile, s.ignoredDirs)
	if err != nil {
		s.logger.Warn("ignoring unreadable ignore file", "root", s.root, "error", err)
		matcher = nil
	}

	var paths []string
	err = utils.WalkSourceFiles(s.root, matcher, func(path string, _ fs.DirEntry) error {
		if s.languages.KindOf(path).Supported() {
			paths = append(paths, path)
		}
		return nil
	}, func(path string, err error) {
		s.logger.Warn("skipping unreadable path", "path", path, "error", err)
	})
	if err != nil {
		return s.detector.Len(), err
	}

	err = s.detector.Prime(paths)
	s.logger.Debug("baselines primed", "files", len(paths), "baselines", s.detector.Len())
	return s.detector.Len(), err
}

// Record diffs content against the baseline of path.
func (s *Session) Record(path string, content []byte) (*models.DiffRecord, error) {
	return s.detector.Record(path, content)
}

// RecordFile diffs the on-disk content of path against its baseline.
func (s *Session) RecordFile(path string) (*models.DiffRecord, error) {
	return s.detector.RecordFile(path)
}

// Propagate re-records the direct dependents of path.
func (s *Session) Propagate(path string) *propagation.Result {
	return s.engine.Propagate(path)
}

func (s *Session) Search(pattern string) ([]string, error) {
	return s.modifier.Search(pattern)
}

func (s *Session) Modify(pattern string, replacement string) ([]string, error) {
	return s.modifier.Modify(pattern, replacement)
}

func (s *Session) Preview(pattern string, replacement string) ([]modifier_models.Preview, error) {
	return s.modifier.Preview(pattern, replacement)
}

// HandleEvent records the modified file, propagates to its dependents when
// it can carry includes, and runs the syntax diagnostic when a grammar is
// available. Unsupported files are ignored. A file that cannot be read is
// returned as an error; dependent failures are reported in the result.
func (s *Session) HandleEvent(ctx context.Context, event models.FileModified) (*EventResult, error) {
	file, err := s.languages.Classify(event.Path)
	if err != nil {
		return nil, &models.ReadError{Path: event.Path, Err: err}
	}

	result := &EventResult{Path: file.Path, Kind: file.Kind}
	if !file.Kind.Supported() {
		s.logger.Trace("ignoring unsupported file", "path", file.Path)
		return result, nil
	}
	s.metrics.ObserveEvent(file.Kind.String())

	if event.Created && file.Kind == models.KindDependency && s.rebuildOnCreate {
		if _, err := s.BuildGraph(); err != nil {
			s.logger.Warn("failed to rebuild dependency graph", "root", s.root, "error", err)
		} else {
			result.Rebuilt = true
		}
	}

	diff, err := s.detector.RecordFile(file.Path)
	if err != nil {
		s.logger.Warn("failed to record change", "path", file.Path, "error", err)
		s.metrics.ObserveFileError("record")
		return result, err
	}
	result.Diff = diff

	switch {
	case diff.Initial:
		s.logger.Debug("baseline recorded", "path", file.Path)
	case diff.HasChanges():
		added, removed := diff.Stats()
		s.logger.Info("file changed", "path", file.Path, "added", added, "removed", removed)
	default:
		s.logger.Debug("file unchanged", "path", file.Path)
	}

	if file.Kind == models.KindDependency {
		result.Propagation = s.engine.Propagate(file.Path)
	}

	result.Syntax = s.checkSyntax(ctx, file)
	return result, nil
}

func (s *Session) checkSyntax(ctx context.Context, file models.SourceFile) *models.ParseWarning {
	if !s.checker.Supports(file.Language) {
		return nil
	}
	content, ok := s.detector.Baseline(file.Path)
	if !ok {
		return nil
	}

	warning, err := s.checker.Check(ctx, file.Path, file.Language, []byte(content))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Debug("syntax check failed", "path", file.Path, "error", err)
		}
		return nil
	}
	if warning != nil {
		s.logger.Warn("syntax error", "path", warning.Path, "line", warning.Line, "language", file.Language)
	}
	return warning
}

// ReportFunc receives the outcome of every handled event.
type ReportFunc func(result *EventResult, err error)

// Run handles events one at a time in arrival order until events is closed
// or ctx is cancelled. An event already being handled is finished first; no
// event is started after cancellation. Per-event errors go to report and
// never stop the loop.
func (s *Session) Run(ctx context.Context, events <-chan models.FileModified, report ReportFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok || ctx.Err() != nil {
				return nil
			}
			result, err := s.HandleEvent(ctx, event)
			if report != nil {
				report(result, err)
			}
		}
	}
}
