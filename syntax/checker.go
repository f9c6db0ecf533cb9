// Package syntax parses source files with tree-sitter and reports files whose
// parse tree contains errors. The result is informational only.
package syntax

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/meysamhadeli/codewatch/code_analyzer/models"
)

// Checker parses content in the languages it knows. Parsers are not safe for
// concurrent use, so each language keeps a pool.
type Checker struct {
	pools map[string]*sync.Pool
}

// NewChecker returns a checker for the php and python grammars.
func NewChecker() *Checker {
	return &Checker{
		pools: map[string]*sync.Pool{
			"php":    parserPool(php.GetLanguage()),
			"python": parserPool(python.GetLanguage()),
		},
	}
}

func parserPool(lang *sitter.Language) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(lang)
			return parser
		},
	}
}

// Supports reports whether language has a grammar.
func (c *Checker) Supports(language string) bool {
	_, ok := c.pools[language]
	return ok
}

// Check parses content as language. It returns nil when the tree is clean or
// the language is unknown, and a warning locating the first error otherwise.
func (c *Checker) Check(ctx context.Context, path string, language string, content []byte) (*models.ParseWarning, error) {
	pool, ok := c.pools[language]
	if !ok {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := pool.Get().(*sitter.Parser)
	defer pool.Put(parser)

	tree := parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	node := firstError(root)
	if node == nil {
		node = root
	}
	return &models.ParseWarning{
		Path:   path,
		Line:   int(node.StartPoint().Row) + 1,
		Reason: fmt.Sprintf("%s syntax error", language),
	}, nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := firstError(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
