package code_analyzer

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIncludes_ResolvesRelativeToIncludingFile(t *testing.T) {
	path := filepath.FromSlash("/root/a/x.php")

	edges, warnings := ExtractIncludes(path, "<?php\ninclude 'y.php';\n")

	require.Len(t, edges, 1)
	assert.Empty(t, warnings)
	assert.Equal(t, filepath.FromSlash("/root/a/y.php"), edges[0].To)
	assert.NotEqual(t, filepath.FromSlash("/root/y.php"), edges[0].To)
	assert.Equal(t, path, edges[0].From)
	assert.Equal(t, "include", edges[0].Keyword)
	assert.Equal(t, 2, edges[0].Line)
}

func TestExtractIncludes_KeywordsAndQuoting(t *testing.T) {
	path := filepath.FromSlash("/srv/app/index.php")
	content := `<?php
require 'lib/util.php';
require_once("lib/db.php");
include_once ( 'views/header.php' );
include "../shared/footer.php";
`

	edges, warnings := ExtractIncludes(path, content)
	require.Empty(t, warnings)
	require.Len(t, edges, 4)

	var keywords, targets []string
	for _, edge := range edges {
		keywords = append(keywords, edge.Keyword)
		targets = append(targets, filepath.ToSlash(edge.To))
	}
	assert.Equal(t, []string{"require", "require_once", "include_once", "include"}, keywords)
	assert.Equal(t, []string{
		"/srv/app/lib/util.php",
		"/srv/app/lib/db.php",
		"/srv/app/views/header.php",
		"/srv/shared/footer.php",
	}, targets)
}

func TestExtractIncludes_DynamicAndMalformedTargets(t *testing.T) {
	path := filepath.FromSlash("/srv/app/index.php")
	content := `<?php
require $path;
include __DIR__ . '/x.php';
require_once '';
include "$base/config.php";
$required = 'not an include';
`

	edges, warnings := ExtractIncludes(path, content)

	assert.Empty(t, edges)
	require.Len(t, warnings, 2)
	assert.Equal(t, 4, warnings[0].Line)
	assert.Equal(t, "empty include target", warnings[0].Reason)
	assert.Equal(t, 5, warnings[1].Line)
	assert.Equal(t, "$base/config.php", warnings[1].Target)
}

func TestResolveInclude_AbsoluteTargetKept(t *testing.T) {
	abs := filepath.FromSlash("/etc/app/config.php")
	assert.Equal(t, abs, ResolveInclude(filepath.FromSlash("/srv/app"), abs))
}

func TestExtractIncludes_LineNumbersAcrossMatches(t *testing.T) {
	path := filepath.FromSlash("/srv/app/index.php")
	content := "<?php\nrequire 'a.php'; require 'b.php';\n\n\ninclude 'c.php';\r\ninclude '';\n"

	edges, warnings := ExtractIncludes(path, content)

	require.Len(t, edges, 3)
	assert.Equal(t, 2, edges[0].Line)
	assert.Equal(t, 2, edges[1].Line)
	assert.Equal(t, 5, edges[2].Line)
	require.Len(t, warnings, 1)
	assert.Equal(t, 6, warnings[0].Line)
}

func TestResolveInclude_FollowsSymlinkedPrefix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges")
	}
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, "lib"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(root, "lib"), filepath.Join(root, "shared")))
	require.NoError(t, os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "dangling")))

	app := filepath.Join(root, "app")
	assert.Equal(t, filepath.Join(root, "lib", "util.php"), ResolveInclude(app, "../shared/util.php"))
	assert.Equal(t, filepath.Join(root, "lib", "missing", "x.php"), ResolveInclude(app, "../shared/missing/x.php"))
	assert.Equal(t, filepath.Join(root, "dangling", "x.php"), ResolveInclude(app, "../dangling/x.php"))
}
