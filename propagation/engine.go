// Package propagation finds the direct dependents of a modified file and
// re-runs change detection on each of them.
//
// Propagation is one hop: only files that include the modified file are
// visited, never the files that include those. Cycles in the dependency
// graph are therefore harmless. Dependents are not rewritten; their diffs are
// surfaced for inspection or for a later modify pass.
package propagation

import (
	"github.com/meysamhadeli/codewatch/change_detector/contracts"
	"github.com/meysamhadeli/codewatch/code_analyzer"
	"github.com/meysamhadeli/codewatch/code_analyzer/models"
	"github.com/meysamhadeli/codewatch/logging"
	"github.com/meysamhadeli/codewatch/metrics"
)

// GraphProvider returns the current dependency graph. It may return nil
// before the first build.
type GraphProvider interface {
	Graph() *models.DependencyGraph
}

// GraphProviderFunc adapts a function to GraphProvider.
type GraphProviderFunc func() *models.DependencyGraph

func (f GraphProviderFunc) Graph() *models.DependencyGraph {
	return f()
}

// DependentResult is the outcome of re-recording one dependent.
type DependentResult struct {
	Path string
	Diff *models.DiffRecord
	Err  error
}

// Result lists every dependent of Source with its diff or error.
type Result struct {
	Source     string
	Dependents []DependentResult
}

// Failed returns the dependents that could not be processed.
func (r *Result) Failed() []DependentResult {
	var failed []DependentResult
	for _, dependent := range r.Dependents {
		if dependent.Err != nil {
			failed = append(failed, dependent)
		}
	}
	return failed
}

// Paths returns the dependent paths in result order.
func (r *Result) Paths() []string {
	paths := make([]string, 0, len(r.Dependents))
	for _, dependent := range r.Dependents {
		paths = append(paths, dependent.Path)
	}
	return paths
}

// Engine propagates modifications along the dependency graph.
type Engine struct {
	graphs   GraphProvider
	detector contracts.IChangeDetector
	logger   *logging.Logger
	metrics  *metrics.Recorder
}

// NewEngine creates an engine. logger and recorder may be nil.
func NewEngine(graphs GraphProvider, detector contracts.IChangeDetector, logger *logging.Logger, recorder *metrics.Recorder) *Engine {
	return &Engine{
		graphs:   graphs,
		detector: detector,
		logger:   logging.OrDefault(logger),
		metrics:  recorder,
	}
}

// Propagate records the current on-disk content of every file that directly
// includes modifiedPath. A failure on one dependent is logged and reported in
// its DependentResult; the remaining dependents are still processed. No
// dependents, or no graph yet, yields an empty result.
func (e *Engine) Propagate(modifiedPath string) *Result {
	source, err := code_analyzer.CanonicalPath(modifiedPath)
	if err != nil {
		source = modifiedPath
	}
	result := &Result{Source: source}

	graph := e.graphs.Graph()
	if graph == nil {
		e.logger.Warn("no dependency graph, skipping propagation", "path", source)
		return result
	}

	dependents := graph.Dependents(source)
	e.metrics.ObservePropagation(len(dependents))
	if len(dependents) == 0 {
		e.logger.Debug("no dependents", "path", source)
		return result
	}

	e.logger.Info("found dependent files", "path", source, "count", len(dependents))
	for _, dependent := range dependents {
		e.logger.Debug("analyzing dependent file", "path", dependent)

		record, err := e.detector.RecordFile(dependent)
		if err != nil {
			e.logger.Warn("failed to analyze dependent file", "path", dependent, "error", err)
			e.metrics.ObserveFileError("propagate")
		}
		result.Dependents = append(result.Dependents, DependentResult{Path: dependent, Diff: record, Err: err})
	}

	return result
}
