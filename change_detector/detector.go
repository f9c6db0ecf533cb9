package change_detector

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/zeebo/xxh3"

	"github.com/meysamhadeli/codewatch/change_detector/contracts"
	"github.com/meysamhadeli/codewatch/code_analyzer"
	"github.com/meysamhadeli/codewatch/code_analyzer/models"
)

// baseline is the last content recorded for one path. Its mutex serializes
// every Record call for that path.
type baseline struct {
	mu      sync.Mutex
	seen    bool
	content string
	hash    uint64
}

// Detector keeps the last seen content of every file and diffs new content
// against it.
type Detector struct {
	mu           sync.Mutex
	baselines    map[string]*baseline
	contextLines int
}

var _ contracts.IChangeDetector = (*Detector)(nil)

// NewDetector creates an empty detector.
func NewDetector() *Detector {
	return NewDetectorWithContext(DefaultContextLines)
}

// NewDetectorWithContext creates an empty detector whose patches carry
// contextLines unchanged lines around each hunk.
func NewDetectorWithContext(contextLines int) *Detector {
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}
	return &Detector{
		baselines:    make(map[string]*baseline),
		contextLines: contextLines,
	}
}

// Record diffs content against the stored baseline for path and then makes
// content the new baseline. The first call for a path only stores the
// baseline. Binary content fails with a *models.ReadError and leaves the
// baseline untouched.
func (d *Detector) Record(path string, content []byte) (*models.DiffRecord, error) {
	canonical, err := code_analyzer.CanonicalPath(path)
	if err != nil {
		return nil, &models.ReadError{Path: path, Err: err}
	}
	if !code_analyzer.IsText(content) {
		return nil, &models.ReadError{Path: canonical, Err: code_analyzer.ErrBinaryContent}
	}

	entry := d.entry(canonical)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	newContent := string(content)
	newHash := xxh3.HashString(newContent)
	record := &models.DiffRecord{Path: canonical}

	if !entry.seen {
		entry.seen = true
		entry.content, entry.hash = newContent, newHash
		record.Initial = true
		return record, nil
	}

	if entry.hash == newHash && entry.content == newContent {
		return record, nil
	}

	record.Lines = DiffLines(entry.content, newContent)
	record.Patch = BuildPatch(canonical, entry.content, newContent, d.contextLines)
	if !record.HasChanges() {
		// Only line endings or a trailing newline differ
		record.Lines = nil
	}

	entry.content, entry.hash = newContent, newHash
	return record, nil
}

// RecordFile reads path from disk and records its content.
func (d *Detector) RecordFile(path string) (*models.DiffRecord, error) {
	canonical, err := code_analyzer.CanonicalPath(path)
	if err != nil {
		return nil, &models.ReadError{Path: path, Err: err}
	}
	content, err := code_analyzer.ReadSourceFile(canonical)
	if err != nil {
		return nil, err
	}
	return d.Record(canonical, []byte(content))
}

// Prime records the current on-disk content of every path as its baseline.
// Failures are collected and the remaining paths are still primed.
func (d *Detector) Prime(paths []string) error {
	var result *multierror.Error
	for _, path := range paths {
		if _, err := d.RecordFile(path); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Baseline returns the stored content for path.
func (d *Detector) Baseline(path string) (string, bool) {
	canonical, err := code_analyzer.CanonicalPath(path)
	if err != nil {
		return "", false
	}

	d.mu.Lock()
	entry, ok := d.baselines[canonical]
	d.mu.Unlock()
	if !ok {
		return "", false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.content, entry.seen
}

// Len returns the number of paths with a stored baseline.
func (d *Detector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := 0
	for _, entry := range d.baselines {
		entry.mu.Lock()
		if entry.seen {
			count++
		}
		entry.mu.Unlock()
	}
	return count
}

func (d *Detector) entry(path string) *baseline {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.baselines[path]
	if !ok {
		entry = &baseline{}
		d.baselines[path] = entry
	}
	return entry
}
