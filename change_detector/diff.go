package change_detector

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/meysamhadeli/codewatch/code_analyzer/models"
)

// DiffLines compares two snapshots line by line. Replaced regions are
// reported as removals followed by additions.
func DiffLines(oldContent string, newContent string) []models.DiffLine {
	a, b := splitLines(oldContent), splitLines(newContent)

	var lines []models.DiffLine
	matcher := difflib.NewMatcher(a, b)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			lines = appendLines(lines, models.DiffUnchanged, a[op.I1:op.I2])
		case 'd':
			lines = appendLines(lines, models.DiffRemoved, a[op.I1:op.I2])
		case 'i':
			lines = appendLines(lines, models.DiffAdded, b[op.J1:op.J2])
		case 'r':
			lines = appendLines(lines, models.DiffRemoved, a[op.I1:op.I2])
			lines = appendLines(lines, models.DiffAdded, b[op.J1:op.J2])
		}
	}
	return lines
}

// splitLines splits on \n and \r\n without producing a trailing empty line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func appendLines(lines []models.DiffLine, op models.DiffOp, texts []string) []models.DiffLine {
	for _, text := range texts {
		lines = append(lines, models.DiffLine{Op: op, Text: text})
	}
	return lines
}
