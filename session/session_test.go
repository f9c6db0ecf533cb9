package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/meysamhadeli/codewatch/code_analyzer/models"
	"github.com/meysamhadeli/codewatch/logging"
	"github.com/meysamhadeli/codewatch/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// tempRoot returns a fresh directory in its canonical form, so expected
// paths match what the code reports when the temp dir sits behind a symlink.
func tempRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return root
}

func newTestSession(t *testing.T, root string, rebuildOnCreate bool) *Session {
	t.Helper()
	s, err := New(Options{
		Root:            root,
		RebuildOnCreate: rebuildOnCreate,
		Logger:          logging.Discard(),
		Metrics:         metrics.NewRecorder(),
	})
	require.NoError(t, err)
	return s
}

func sampleTree(t *testing.T) string {
	t.Helper()
	root := tempRoot(t)
	writeTree(t, root, map[string]string{
		"index.php":    "<?php\nrequire 'lib/util.php';\necho util();\n",
		"lib/util.php": "<?php\nfunction util() { return 1; }\n",
		"tool.py":      "def main():\n    return 1\n",
	})
	return root
}

func TestSession_GraphIsNilUntilBuilt(t *testing.T) {
	root := sampleTree(t)
	s := newTestSession(t, root, false)

	assert.Nil(t, s.Graph())
	assert.Empty(t, s.Propagate(filepath.Join(root, "lib", "util.php")).Dependents)

	result, err := s.BuildGraph()
	require.NoError(t, err)
	assert.Same(t, result.Graph, s.Graph())
	assert.Equal(t, []string{filepath.Join(root, "index.php")}, s.Graph().Dependents(filepath.Join(root, "lib", "util.php")))
}

func TestSession_HandleEventDiffsAndPropagates(t *testing.T) {
	root := sampleTree(t)
	s := newTestSession(t, root, false)
	_, err := s.BuildGraph()
	require.NoError(t, err)

	primed, err := s.Prime()
	require.NoError(t, err)
	assert.Equal(t, 3, primed)

	util := filepath.Join(root, "lib", "util.php")
	require.NoError(t, os.WriteFile(util, []byte("<?php\nfunction util() { return 2; }\n"), 0644))

	result, err := s.HandleEvent(context.Background(), models.FileModified{Path: util})
	require.NoError(t, err)

	assert.Equal(t, models.KindDependency, result.Kind)
	require.NotNil(t, result.Diff)
	assert.False(t, result.Diff.Initial)
	assert.Equal(t, []string{"function util() { return 2; }"}, result.Diff.Added())
	assert.Equal(t, []string{"function util() { return 1; }"}, result.Diff.Removed())

	require.NotNil(t, result.Propagation)
	assert.Equal(t, []string{filepath.Join(root, "index.php")}, result.Propagation.Paths())
	assert.Nil(t, result.Syntax)
	assert.False(t, result.Rebuilt)
}

func TestSession_HandleEventScriptRunsSyntaxCheckOnly(t *testing.T) {
	root := sampleTree(t)
	s := newTestSession(t, root, false)
	_, err := s.BuildGraph()
	require.NoError(t, err)

	tool := filepath.Join(root, "tool.py")
	require.NoError(t, os.WriteFile(tool, []byte("def main(:\n    return 1\n"), 0644))

	result, err := s.HandleEvent(context.Background(), models.FileModified{Path: tool})
	require.NoError(t, err)

	assert.Equal(t, models.KindScript, result.Kind)
	assert.True(t, result.Diff.Initial)
	assert.Nil(t, result.Propagation)
	require.NotNil(t, result.Syntax)
	assert.Equal(t, tool, result.Syntax.Path)
}

func TestSession_HandleEventIgnoresUnsupportedFiles(t *testing.T) {
	root := sampleTree(t)
	s := newTestSession(t, root, false)

	result, err := s.HandleEvent(context.Background(), models.FileModified{Path: filepath.Join(root, "README.md")})
	require.NoError(t, err)

	assert.Equal(t, models.KindUnsupported, result.Kind)
	assert.Nil(t, result.Diff)
	assert.Equal(t, 0, s.Detector().Len())
}

func TestSession_HandleEventMissingFileIsReadError(t *testing.T) {
	root := sampleTree(t)
	s := newTestSession(t, root, false)

	result, err := s.HandleEvent(context.Background(), models.FileModified{Path: filepath.Join(root, "gone.php")})

	var readErr *models.ReadError
	require.True(t, errors.As(err, &readErr))
	require.NotNil(t, result)
	assert.Nil(t, result.Diff)
	assert.Nil(t, result.Propagation)
}

func TestSession_RebuildOnCreateSwapsGraph(t *testing.T) {
	root := sampleTree(t)
	s := newTestSession(t, root, true)
	_, err := s.BuildGraph()
	require.NoError(t, err)
	before := s.Graph()

	created := filepath.Join(root, "admin.php")
	writeTree(t, root, map[string]string{"admin.php": "<?php\ninclude_once 'lib/util.php';\n"})

	result, err := s.HandleEvent(context.Background(), models.FileModified{Path: created, Created: true})
	require.NoError(t, err)
	assert.True(t, result.Rebuilt)
	assert.NotSame(t, before, s.Graph())

	util := filepath.Join(root, "lib", "util.php")
	assert.Equal(t, []string{filepath.Join(root, "index.php")}, before.Dependents(util))
	assert.Equal(t, []string{created, filepath.Join(root, "index.php")}, s.Graph().Dependents(util))
}

func TestSession_CreateWithoutRebuildKeepsGraph(t *testing.T) {
	root := sampleTree(t)
	s := newTestSession(t, root, false)
	_, err := s.BuildGraph()
	require.NoError(t, err)
	before := s.Graph()

	writeTree(t, root, map[string]string{"admin.php": "<?php\ninclude_once 'lib/util.php';\n"})
	result, err := s.HandleEvent(context.Background(), models.FileModified{Path: filepath.Join(root, "admin.php"), Created: true})
	require.NoError(t, err)

	assert.False(t, result.Rebuilt)
	assert.Same(t, before, s.Graph())
}

func TestSession_RunProcessesEventsInOrder(t *testing.T) {
	root := sampleTree(t)
	recorder := metrics.NewRecorder()
	s, err := New(Options{Root: root, Logger: logging.Discard(), Metrics: recorder})
	require.NoError(t, err)
	_, err = s.BuildGraph()
	require.NoError(t, err)

	events := make(chan models.FileModified, 3)
	events <- models.FileModified{Path: filepath.Join(root, "lib", "util.php")}
	events <- models.FileModified{Path: filepath.Join(root, "tool.py")}
	events <- models.FileModified{Path: filepath.Join(root, "index.php")}
	close(events)

	var handled []string
	err = s.Run(context.Background(), events, func(result *EventResult, err error) {
		require.NoError(t, err)
		handled = append(handled, result.Path)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "lib", "util.php"),
		filepath.Join(root, "tool.py"),
		filepath.Join(root, "index.php"),
	}, handled)

	expected := `
# HELP codewatch_events_processed_total File modification events processed, by file kind.
# TYPE codewatch_events_processed_total counter
codewatch_events_processed_total{kind="dependency"} 2
codewatch_events_processed_total{kind="script"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "codewatch_events_processed_total"))
}

func TestSession_RunStopsOnCancel(t *testing.T) {
	s := newTestSession(t, t.TempDir(), false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, make(chan models.FileModified), nil) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSession_RunSkipsQueuedEventsAfterCancel(t *testing.T) {
	root := sampleTree(t)
	s := newTestSession(t, root, false)

	events := make(chan models.FileModified, 10)
	for i := 0; i < cap(events); i++ {
		events <- models.FileModified{Path: filepath.Join(root, "index.php")}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reported := 0
	err := s.Run(ctx, events, func(*EventResult, error) { reported++ })
	require.NoError(t, err)

	assert.Zero(t, reported)
	assert.Zero(t, s.Detector().Len())
}

func TestSession_ConfiguredIgnoredDirs(t *testing.T) {
	root := sampleTree(t)
	writeTree(t, root, map[string]string{
		"vendor/boot.php": "<?php require '../lib/util.php';",
		"build/gen.php":   "<?php require '../lib/util.php';",
	})

	s, err := New(Options{Root: root, IgnoredDirs: []string{"build"}, Logger: logging.Discard()})
	require.NoError(t, err)
	_, err = s.BuildGraph()
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "index.php"),
		filepath.Join(root, "vendor", "boot.php"),
	}, s.Graph().Dependents(filepath.Join(root, "lib", "util.php")))

	count, err := s.Prime()
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestSession_GraphReadsDuringRebuild(t *testing.T) {
	root := sampleTree(t)
	s := newTestSession(t, root, false)
	_, err := s.BuildGraph()
	require.NoError(t, err)

	util := filepath.Join(root, "lib", "util.php")
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Len(t, s.Graph().Dependents(util), 1)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := s.BuildGraph()
		require.NoError(t, err)
	}
	wg.Wait()
}
