package code_analyzer

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/meysamhadeli/codewatch/code_analyzer/contracts"
	"github.com/meysamhadeli/codewatch/code_analyzer/models"
	"github.com/meysamhadeli/codewatch/logging"
	"github.com/meysamhadeli/codewatch/utils"
)

// CodeAnalyzer builds dependency graphs for source trees.
type CodeAnalyzer struct {
	languages    *LanguageTable
	ignoreFile   string
	ignoredDirs  []string
	cacheManager *CacheManager
	logger       *logging.Logger
}

// Options configures a CodeAnalyzer. Zero values select the defaults.
type Options struct {
	Languages  *LanguageTable
	IgnoreFile string
	// IgnoredDirs are directory names never walked. Nil selects
	// utils.DefaultIgnoredDirs.
	IgnoredDirs []string

	EnableCache bool
	CacheDir    string
	Logger      *logging.Logger
}

// NewCodeAnalyzer initializes a new CodeAnalyzer.
func NewCodeAnalyzer(opts Options) contracts.ICodeAnalyzer {
	logger := logging.OrDefault(opts.Logger)

	languages := opts.Languages
	if languages == nil {
		languages = DefaultLanguageTable()
	}

	var cacheManager *CacheManager
	if opts.EnableCache {
		var err error
		cacheManager, err = NewCacheManager(opts.CacheDir)
		if err != nil {
			// Fallback to no caching if cache initialization fails
			logger.Warn("failed to initialize graph cache", "error", err)
			cacheManager = nil
		}
	}

	return &CodeAnalyzer{
		languages:    languages,
		ignoreFile:   opts.IgnoreFile,
		ignoredDirs:  opts.IgnoredDirs,
		cacheManager: cacheManager,
		logger:       logger,
	}
}

// BuildGraph scans every dependency-capable file under rootPath and returns
// its include graph. Unreadable files are skipped and reported; only a
// failure to enumerate rootPath itself is returned as an error.
func (analyzer *CodeAnalyzer) BuildGraph(rootPath string) (*models.BuildResult, error) {
	root, err := CanonicalPath(rootPath)
	if err != nil {
		return nil, err
	}

	matcher, err := utils.LoadIgnoreMatcher(root, analyzer.ignoreFile, analyzer.ignoredDirs)
	if err != nil {
		analyzer.logger.Warn("ignoring unreadable ignore file", "root", root, "error", err)
		matcher = nil
	}

	result := &models.BuildResult{}

	var files []models.FileSnapshot
	err = utils.WalkSourceFiles(root, matcher, func(path string, d fs.DirEntry) error {
		if analyzer.languages.KindOf(path) != models.KindDependency {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			analyzer.skip(result, path, err)
			return nil
		}
		files = append(files, models.FileSnapshot{Path: path, ModTime: info.ModTime(), Size: info.Size()})
		return nil
	}, func(path string, err error) {
		analyzer.skip(result, path, err)
	})
	if err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(files)
	if analyzer.cacheManager != nil {
		if snapshot, found := analyzer.cacheManager.GetGraph(root); found && snapshot.Fingerprint == fingerprint {
			analyzer.logger.Debug("dependency graph loaded from cache", "root", root, "files", len(snapshot.Edges))
			result.Graph = models.GraphFromSnapshot(snapshot)
			result.Warnings = snapshot.Warnings
			result.FromCache = true
			return result, nil
		}
	}

	edges := make(map[string][]models.DependencyEdge, len(files))
	for _, file := range files {
		content, err := ReadSourceFile(file.Path)
		if err != nil {
			analyzer.skip(result, file.Path, err)
			continue
		}

		fileEdges, warnings := ExtractIncludes(file.Path, content)
		edges[file.Path] = fileEdges
		for _, warning := range warnings {
			analyzer.logger.Warn("unresolvable include", "path", warning.Path, "line", warning.Line, "reason", warning.Reason, "target", warning.Target)
		}
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Graph = models.NewDependencyGraph(root, edges)
	analyzer.logger.Debug("dependency graph built", "root", root, "files", result.Graph.FileCount(), "edges", result.Graph.EdgeCount())

	if analyzer.cacheManager != nil {
		analyzer.storeGraph(root, fingerprint, result)
	}

	return result, nil
}

// storeGraph caches a complete graph. A graph with skipped files is never
// cached: the fingerprint cannot tell when such a file becomes readable
// again, and a cached graph would stop reporting it.
func (analyzer *CodeAnalyzer) storeGraph(root string, fingerprint uint64, result *models.BuildResult) {
	if len(result.Skipped) > 0 {
		if err := analyzer.cacheManager.InvalidateGraph(root); err != nil {
			analyzer.logger.Warn("failed to invalidate cached dependency graph", "root", root, "error", err)
		}
		return
	}
	if err := analyzer.cacheManager.SetGraph(root, result.Graph.Snapshot(fingerprint, result.Warnings)); err != nil {
		analyzer.logger.Warn("failed to cache dependency graph", "root", root, "error", err)
	}
}

// ClearCache removes every cached graph, drops the compiled ignore files
// and resets the hit and miss counters.
func (analyzer *CodeAnalyzer) ClearCache() error {
	if analyzer.cacheManager == nil {
		return fmt.Errorf("cache is disabled")
	}
	if err := analyzer.cacheManager.ClearCache(); err != nil {
		return err
	}
	utils.ClearIgnoreCache()
	analyzer.cacheManager.ResetPerformanceStats()
	return nil
}

// GetCacheStats returns storage and performance statistics of the graph cache.
func (analyzer *CodeAnalyzer) GetCacheStats() (map[string]interface{}, error) {
	if analyzer.cacheManager == nil {
		return map[string]interface{}{"cache_enabled": false}, nil
	}
	stats, err := analyzer.cacheManager.GetCacheStats()
	if err != nil {
		return nil, err
	}
	stats["cache_enabled"] = true
	for key, value := range analyzer.cacheManager.GetPerformanceStats() {
		stats[key] = value
	}
	return stats, nil
}

func (analyzer *CodeAnalyzer) skip(result *models.BuildResult, path string, err error) {
	var readErr *models.ReadError
	if !errors.As(err, &readErr) {
		readErr = &models.ReadError{Path: path, Err: err}
	}
	analyzer.logger.Warn("skipping unreadable file", "path", path, "error", readErr.Err)
	result.Skipped = append(result.Skipped, readErr)
}

// Fingerprint hashes the path, modification time and size of every file.
// Two trees with the same fingerprint produce the same graph.
func Fingerprint(files []models.FileSnapshot) uint64 {
	sorted := append([]models.FileSnapshot(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	hasher := xxh3.New()
	for _, file := range sorted {
		_, _ = hasher.WriteString(fmt.Sprintf("%s|%d|%d\n", file.Path, file.ModTime.UnixNano(), file.Size))
	}
	return hasher.Sum64()
}
