package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestIgnored_DefaultDirsAndEditorFiles(t *testing.T) {
	var matcher *IgnoreMatcher
	assert.True(t, matcher.Ignored(".git", true))
	assert.True(t, matcher.Ignored("lib/.hg/store.php", false))
	assert.True(t, matcher.Ignored("src/index.php.swp", false))
	assert.False(t, matcher.Ignored("src/output.php", false))
	assert.False(t, matcher.Ignored("outline", true))
	assert.False(t, matcher.Ignored("vendor/lib/a.php", false))
	assert.False(t, matcher.Ignored("node_modules", true))
}

func TestLoadIgnoreMatcher_MissingFileUsesDefaults(t *testing.T) {
	root := t.TempDir()

	matcher, err := LoadIgnoreMatcher(root, "", nil)
	require.NoError(t, err)

	assert.False(t, matcher.Ignored("index.php", false))
	assert.False(t, matcher.Ignored("vendor", true))
	assert.True(t, matcher.Ignored(".svn", true))
}

func TestLoadIgnoreMatcher_ConfiguredDirs(t *testing.T) {
	root := t.TempDir()

	matcher, err := LoadIgnoreMatcher(root, "", []string{"vendor", " node_modules/ "})
	require.NoError(t, err)
	assert.True(t, matcher.Ignored("vendor", true))
	assert.True(t, matcher.Ignored("web/node_modules/pkg/index.php", false))
	assert.False(t, matcher.Ignored(".git", true))

	none, err := LoadIgnoreMatcher(root, "", []string{})
	require.NoError(t, err)
	assert.False(t, none.Ignored(".git", true))
	assert.True(t, none.Ignored("notes.php~", false))
}

func TestClearIgnoreCache_RecompilesUnchangedFile(t *testing.T) {
	root := t.TempDir()
	ignorePath := filepath.Join(root, DefaultIgnoreFile)
	writeFile(t, ignorePath, "build/\n")
	info, err := os.Stat(ignorePath)
	require.NoError(t, err)

	first, err := LoadIgnoreMatcher(root, "", nil)
	require.NoError(t, err)
	assert.True(t, first.Ignored("build", true))

	// Same modification time, so only a cleared cache sees the new content.
	writeFile(t, ignorePath, "dist/\n")
	require.NoError(t, os.Chtimes(ignorePath, info.ModTime(), info.ModTime()))

	cached, err := LoadIgnoreMatcher(root, "", nil)
	require.NoError(t, err)
	assert.True(t, cached.Ignored("build", true))

	ClearIgnoreCache()

	fresh, err := LoadIgnoreMatcher(root, "", nil)
	require.NoError(t, err)
	assert.False(t, fresh.Ignored("build", true))
	assert.True(t, fresh.Ignored("dist", true))
}

func TestLoadIgnoreMatcher_GitignorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, DefaultIgnoreFile), "# generated\nbuild/\n*.gen.php\n")

	matcher, err := LoadIgnoreMatcher(root, "", nil)
	require.NoError(t, err)

	assert.True(t, matcher.Ignored("build", true))
	assert.True(t, matcher.Ignored("lib/model.gen.php", false))
	assert.False(t, matcher.Ignored("lib/model.php", false))
}

func TestWalkSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.php"), "<?php")
	writeFile(t, filepath.Join(root, "lib", "util.php"), "<?php")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref")
	writeFile(t, filepath.Join(root, "vendor", "dep.php"), "<?php")

	var seen []string
	err := WalkSourceFiles(root, nil, func(path string, d fs.DirEntry) error {
		rel, _ := filepath.Rel(root, path)
		seen = append(seen, filepath.ToSlash(rel))
		return nil
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"index.php", "lib/util.php", "vendor/dep.php"}, seen)
}

func TestWalkSourceFiles_MissingRoot(t *testing.T) {
	err := WalkSourceFiles(filepath.Join(t.TempDir(), "nope"), nil, func(string, fs.DirEntry) error {
		return nil
	}, nil)
	assert.ErrorIs(t, err, ErrRootUnreadable)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWalkSourceFiles_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.php")
	writeFile(t, path, "<?php")

	err := WalkSourceFiles(path, nil, func(string, fs.DirEntry) error {
		return nil
	}, nil)
	assert.ErrorIs(t, err, ErrRootUnreadable)
}
