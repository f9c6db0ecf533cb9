package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_ValidSourcesHaveNoWarning(t *testing.T) {
	checker := NewChecker()

	warning, err := checker.Check(context.Background(), "tool.py", "python", []byte("def main():\n    return 1\n"))
	require.NoError(t, err)
	assert.Nil(t, warning)

	warning, err = checker.Check(context.Background(), "index.php", "php", []byte("<?php\nrequire 'lib/util.php';\necho util();\n"))
	require.NoError(t, err)
	assert.Nil(t, warning)
}

func TestCheck_BrokenPythonIsReported(t *testing.T) {
	checker := NewChecker()

	warning, err := checker.Check(context.Background(), "tool.py", "python", []byte("x = 1\ndef broken(:\n    pass\n"))
	require.NoError(t, err)
	require.NotNil(t, warning)

	assert.Equal(t, "tool.py", warning.Path)
	assert.Equal(t, "python syntax error", warning.Reason)
	assert.GreaterOrEqual(t, warning.Line, 2)
}

func TestCheck_UnknownLanguageIsIgnored(t *testing.T) {
	checker := NewChecker()

	assert.False(t, checker.Supports("ruby"))
	warning, err := checker.Check(context.Background(), "a.rb", "ruby", []byte("def ("))
	require.NoError(t, err)
	assert.Nil(t, warning)
}

func TestCheck_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChecker().Check(ctx, "tool.py", "python", []byte("x = 1\n"))
	assert.Error(t, err)
}
