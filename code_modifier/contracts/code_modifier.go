package contracts

import "github.com/meysamhadeli/codewatch/code_modifier/models"

type ICodeModifier interface {
	Search(pattern string) ([]string, error)
	Modify(pattern string, replacement string) ([]string, error)
	Preview(pattern string, replacement string) ([]models.Preview, error)
}
