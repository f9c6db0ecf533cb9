// Package watcher turns fsnotify notifications under a root directory into
// debounced FileModified events.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/meysamhadeli/codewatch/code_analyzer"
	"github.com/meysamhadeli/codewatch/code_analyzer/models"
	"github.com/meysamhadeli/codewatch/logging"
	"github.com/meysamhadeli/codewatch/utils"
)

const (
	DefaultDebounce   = 100 * time.Millisecond
	DefaultBufferSize = 1000
)

// Options configures a Watcher. Zero values select the defaults.
type Options struct {
	// Patterns are base-name globs such as "*.php". Files matching none are
	// dropped. Default: the patterns of the default language table.
	Patterns []string

	// IgnoreFile is a gitignore-style file relative to the root.
	IgnoreFile string

	// IgnoredDirs are directory names never watched. Nil selects
	// utils.DefaultIgnoredDirs.
	IgnoredDirs []string

	// Debounce is how long the watcher waits for more changes before it
	// emits a batch.
	Debounce time.Duration

	// BufferSize bounds both the raw change queue and the event channel.
	BufferSize int

	Logger *logging.Logger
}

// Watcher watches a directory tree recursively. Several writes to the same
// path inside one debounce window are delivered as a single event.
type Watcher struct {
	root     string
	fs       *fsnotify.Watcher
	matcher  *utils.IgnoreMatcher
	patterns []string
	debounce time.Duration
	logger   *logging.Logger

	changes chan models.FileModified
	events  chan models.FileModified

	closeOnce sync.Once
}

// New creates a watcher and registers every non-ignored directory under
// root. Changes made after New returns are observed once Run is called.
func New(root string, opts Options) (*Watcher, error) {
	canonical, err := code_analyzer.CanonicalPath(root)
	if err != nil {
		return nil, err
	}

	logger := logging.OrDefault(opts.Logger)

	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = code_analyzer.DefaultLanguageTable().Patterns()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	matcher, err := utils.LoadIgnoreMatcher(canonical, opts.IgnoreFile, opts.IgnoredDirs)
	if err != nil {
		logger.Warn("ignoring unreadable ignore file", "root", canonical, "error", err)
		matcher = nil
	}

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     canonical,
		fs:       notify,
		matcher:  matcher,
		patterns: patterns,
		debounce: debounce,
		logger:   logger,
		changes:  make(chan models.FileModified, bufferSize),
		events:   make(chan models.FileModified, bufferSize),
	}

	if err := w.addRecursive(canonical, nil); err != nil {
		w.Close()
		return nil, err
	}

	return w, nil
}

// Root returns the canonical watched root.
func (w *Watcher) Root() string {
	return w.root
}

// Events delivers debounced modifications. It is closed when Run returns.
func (w *Watcher) Events() <-chan models.FileModified {
	return w.events
}

// Run processes notifications until ctx is cancelled or the underlying
// watcher fails to deliver. Pending changes are flushed before Events is
// closed. Run returns nil on cancellation and must be called only once.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(w.events)
		w.debounceLoop(ctx)
	}()

	defer wg.Wait()
	defer close(w.changes)

	w.logger.Info("watching for changes", "root", w.root, "patterns", w.patterns)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Close releases the fsnotify watcher. It is safe to call more than once.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		if err := w.fs.Close(); err != nil {
			w.logger.Debug("failed to close file watcher", "error", err)
		}
	})
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	created := event.Has(fsnotify.Create)
	if created {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// Files written before the watch was added would otherwise be missed.
			if err := w.addRecursive(event.Name, w.enqueue); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if w.ignored(event.Name, false) || !w.Matches(event.Name) {
		return
	}
	w.enqueue(models.FileModified{Path: filepath.Clean(event.Name), Created: created})
}

func (w *Watcher) enqueue(change models.FileModified) {
	select {
	case w.changes <- change:
	default:
		w.logger.Warn("change queue full, dropping event", "path", change.Path)
	}
}

// addRecursive watches dir and every non-ignored directory below it. When
// found is set it is called for every matching file already present.
func (w *Watcher) addRecursive(dir string, found func(models.FileModified)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}

		if w.ignored(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			if found != nil && d.Type().IsRegular() && w.Matches(path) {
				found(models.FileModified{Path: path, Created: true})
			}
			return nil
		}

		return w.fs.Add(path)
	})
}

func (w *Watcher) ignored(path string, isDir bool) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	if rel == "." {
		return false
	}
	return w.matcher.Ignored(rel, isDir)
}

// Matches reports whether the base name of path matches a watched pattern.
func (w *Watcher) Matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// debounceLoop batches changes and emits them once the window passes
// without new changes. It returns after flushing when the change queue is
// closed.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []models.FileModified
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for _, change := range Coalesce(batch) {
			select {
			case w.events <- change:
			case <-ctx.Done():
				// The consumer is stopping; drop what is left.
			}
		}
		batch = batch[:0]
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}

	for {
		select {
		case change, ok := <-w.changes:
			if !ok {
				flush()
				return
			}
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// Coalesce keeps one event per path in order of first appearance. A path
// created anywhere in the batch stays marked as created.
func Coalesce(changes []models.FileModified) []models.FileModified {
	seen := make(map[string]int, len(changes))
	result := make([]models.FileModified, 0, len(changes))

	for _, change := range changes {
		if idx, exists := seen[change.Path]; exists {
			result[idx].Created = result[idx].Created || change.Created
			continue
		}
		seen[change.Path] = len(result)
		result = append(result, change)
	}

	return result
}
