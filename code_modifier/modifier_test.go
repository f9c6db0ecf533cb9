package code_modifier

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/meysamhadeli/codewatch/code_analyzer/models"
	"github.com/meysamhadeli/codewatch/logging"
	"github.com/meysamhadeli/codewatch/metrics"
	"github.com/meysamhadeli/codewatch/utils"
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

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func newTestModifier(t *testing.T, root string) *CodeModifier {
	t.Helper()
	modifier, err := NewCodeModifier(Options{Root: root, Logger: logging.Discard()})
	require.NoError(t, err)
	return modifier
}

func TestSearch_MatchesSupportedFilesOnly(t *testing.T) {
	root := tempRoot(t)
	writeTree(t, root, map[string]string{
		"a.php":      "<?php old_call();",
		"b.py":       "old_call()\n",
		"c.php":      "<?php new_call();",
		"notes.txt":  "old_call",
		".git/x.php": "<?php old_call();",
	})

	matches, err := newTestModifier(t, root).Search(`old_call\(`)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "a.php"), filepath.Join(root, "b.py")}, matches)
}

func TestSearch_InvalidPatternFailsImmediately(t *testing.T) {
	root := tempRoot(t)
	writeTree(t, root, map[string]string{"a.php": "<?php"})

	matches, err := newTestModifier(t, root).Search(`(unclosed`)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPattern))
	assert.Nil(t, matches)
}

func TestSearch_NoMatchesIsEmpty(t *testing.T) {
	root := tempRoot(t)
	writeTree(t, root, map[string]string{"a.php": "<?php echo 1;"})

	matches, err := newTestModifier(t, root).Search(`nothing_here`)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearch_BinaryFileIsSkippedAndReported(t *testing.T) {
	root := tempRoot(t)
	writeTree(t, root, map[string]string{
		"a.php":   "<?php target();",
		"bin.php": "target\x00\x01",
	})

	recorder := metrics.NewRecorder()
	modifier, err := NewCodeModifier(Options{Root: root, Logger: logging.Discard(), Metrics: recorder})
	require.NoError(t, err)

	matches, err := modifier.Search(`target`)
	assert.Equal(t, []string{filepath.Join(root, "a.php")}, matches)

	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 1)

	var readErr *models.ReadError
	require.True(t, errors.As(merr.Errors[0], &readErr))
	assert.Equal(t, filepath.Join(root, "bin.php"), readErr.Path)
}

func TestModify_RewritesMatchingFiles(t *testing.T) {
	root := tempRoot(t)
	writeTree(t, root, map[string]string{
		"a.php": "<?php\nold_call(1);\nold_call(2);\n",
		"b.py":  "x = old_call(3)\n",
		"c.php": "<?php\nother();\n",
	})

	modified, err := newTestModifier(t, root).Modify(`old_call\((\d)\)`, `new_call($1, true)`)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "a.php"), filepath.Join(root, "b.py")}, modified)
	assert.Equal(t, "<?php\nnew_call(1, true);\nnew_call(2, true);\n", readFile(t, filepath.Join(root, "a.php")))
	assert.Equal(t, "x = new_call(3, true)\n", readFile(t, filepath.Join(root, "b.py")))
	assert.Equal(t, "<?php\nother();\n", readFile(t, filepath.Join(root, "c.php")))
}

func TestModify_UnchangedContentIsNotWritten(t *testing.T) {
	root := tempRoot(t)
	writeTree(t, root, map[string]string{"a.php": "<?php\nkeep();\n"})
	path := filepath.Join(root, "a.php")

	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, past, past))

	modified, err := newTestModifier(t, root).Modify(`keep`, `keep`)
	require.NoError(t, err)
	assert.Empty(t, modified)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(past))
}

func TestModify_RoundTripRestoresContent(t *testing.T) {
	root := tempRoot(t)
	original := "<?php\nrequire 'lib/util.php';\n"
	writeTree(t, root, map[string]string{"index.php": original})
	modifier := newTestModifier(t, root)

	_, err := modifier.Modify(`util\.php`, `helpers.php`)
	require.NoError(t, err)
	assert.Equal(t, "<?php\nrequire 'lib/helpers.php';\n", readFile(t, filepath.Join(root, "index.php")))

	_, err = modifier.Modify(`helpers\.php`, `util.php`)
	require.NoError(t, err)
	assert.Equal(t, original, readFile(t, filepath.Join(root, "index.php")))
}

func TestModify_PreservesFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not preserved on windows")
	}

	root := tempRoot(t)
	path := filepath.Join(root, "run.py")
	require.NoError(t, os.WriteFile(path, []byte("print('a')\n"), 0750))
	require.NoError(t, os.Chmod(path, 0750))

	_, err := newTestModifier(t, root).Modify(`'a'`, `'b'`)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0750), info.Mode().Perm())
}

func TestModify_WriteFailureIsReportedAndOthersContinue(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced")
	}

	root := tempRoot(t)
	writeTree(t, root, map[string]string{
		"a.php": "<?php old();",
		"b.php": "<?php old();",
	})
	locked := filepath.Join(root, "a.php")
	require.NoError(t, os.Chmod(locked, 0444))
	t.Cleanup(func() { _ = os.Chmod(locked, 0644) })

	recorder := metrics.NewRecorder()
	modifier, err := NewCodeModifier(Options{Root: root, Logger: logging.Discard(), Metrics: recorder})
	require.NoError(t, err)

	modified, err := modifier.Modify(`old`, `new`)
	assert.Equal(t, []string{filepath.Join(root, "b.php")}, modified)

	var writeErr *models.WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, locked, writeErr.Path)
	assert.Equal(t, "<?php old();", readFile(t, locked))
}

func TestPreview_DoesNotWrite(t *testing.T) {
	root := tempRoot(t)
	writeTree(t, root, map[string]string{
		"a.php": "<?php\nold();\n",
		"b.php": "<?php\nold();\n",
	})

	previews, err := newTestModifier(t, root).Preview(`old`, `new`)
	require.NoError(t, err)

	require.Len(t, previews, 2)
	assert.Equal(t, filepath.Join(root, "a.php"), previews[0].Path)
	require.NotNil(t, previews[0].Patch)
	require.Len(t, previews[0].Patch.Hunks, 1)
	assert.Contains(t, string(previews[0].Patch.Hunks[0].Body), "-old();\n+new();\n")

	assert.Equal(t, "<?php\nold();\n", readFile(t, filepath.Join(root, "a.php")))
}

func TestNewCodeModifier_EmptyRoot(t *testing.T) {
	_, err := NewCodeModifier(Options{})
	assert.Error(t, err)
}

func TestWalk_MissingRootIsFatal(t *testing.T) {
	modifier := newTestModifier(t, filepath.Join(tempRoot(t), "gone"))

	matches, err := modifier.Search(`x`)
	assert.Nil(t, matches)
	require.ErrorIs(t, err, utils.ErrRootUnreadable)
	var merr *multierror.Error
	assert.False(t, errors.As(err, &merr))

	modified, err := modifier.Modify(`x`, `y`)
	assert.Nil(t, modified)
	assert.ErrorIs(t, err, utils.ErrRootUnreadable)

	previews, err := modifier.Preview(`x`, `y`)
	assert.Nil(t, previews)
	assert.ErrorIs(t, err, utils.ErrRootUnreadable)
}

func TestSearch_ConfiguredIgnoredDirs(t *testing.T) {
	root := tempRoot(t)
	writeTree(t, root, map[string]string{
		"a.php":        "<?php target();",
		"vendor/b.php": "<?php target();",
		"cache/c.php":  "<?php target();",
	})

	all, err := newTestModifier(t, root).Search(`target`)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	modifier, err := NewCodeModifier(Options{Root: root, IgnoredDirs: []string{"cache"}, Logger: logging.Discard()})
	require.NoError(t, err)
	matches, err := modifier.Search(`target`)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.php"), filepath.Join(root, "vendor", "b.php")}, matches)
}
