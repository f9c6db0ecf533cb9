package code_analyzer

import (
	"bytes"
	"errors"
	"os"
	"unicode/utf8"

	"github.com/meysamhadeli/codewatch/code_analyzer/models"
)

// ErrBinaryContent marks content that is not valid UTF-8 text.
var ErrBinaryContent = errors.New("binary content")

// IsText reports whether content looks like source text.
func IsText(content []byte) bool {
	return bytes.IndexByte(content, 0) < 0 && utf8.Valid(content)
}

// ReadSourceFile reads path as text. Every failure is a *models.ReadError.
func ReadSourceFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &models.ReadError{Path: path, Err: err}
	}
	if !IsText(content) {
		return "", &models.ReadError{Path: path, Err: ErrBinaryContent}
	}
	return string(content), nil
}
