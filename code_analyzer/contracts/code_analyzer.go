package contracts

import "github.com/meysamhadeli/codewatch/code_analyzer/models"

type ICodeAnalyzer interface {
	BuildGraph(rootPath string) (*models.BuildResult, error)
	ClearCache() error
	GetCacheStats() (map[string]interface{}, error)
}
