package change_detector

import (
	"bytes"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

// DefaultContextLines is the number of unchanged lines around each hunk.
const DefaultContextLines = 3

// BuildPatch renders the difference between two snapshots of path as a
// unified file diff. It returns nil when the snapshots are line-identical.
func BuildPatch(path string, oldContent string, newContent string, context int) *diff.FileDiff {
	a, b := splitLines(oldContent), splitLines(newContent)

	var hunks []*diff.Hunk
	for _, group := range difflib.NewMatcher(a, b).GetGroupedOpCodes(context) {
		if len(group) == 1 && group[0].Tag == 'e' {
			continue
		}
		hunks = append(hunks, buildHunk(group, a, b))
	}
	if len(hunks) == 0 {
		return nil
	}

	return &diff.FileDiff{
		OrigName: path,
		NewName:  path,
		Hunks:    hunks,
	}
}

// PrintPatches renders patches in unified diff format. Nil patches are skipped.
func PrintPatches(patches ...*diff.FileDiff) ([]byte, error) {
	var nonNil []*diff.FileDiff
	for _, patch := range patches {
		if patch != nil {
			nonNil = append(nonNil, patch)
		}
	}
	if len(nonNil) == 0 {
		return nil, nil
	}
	return diff.PrintMultiFileDiff(nonNil)
}

func buildHunk(group []difflib.OpCode, a []string, b []string) *diff.Hunk {
	first, last := group[0], group[len(group)-1]

	hunk := &diff.Hunk{
		OrigStartLine: hunkStart(first.I1, last.I2-first.I1),
		OrigLines:     int32(last.I2 - first.I1),
		NewStartLine:  hunkStart(first.J1, last.J2-first.J1),
		NewLines:      int32(last.J2 - first.J1),
	}

	var body bytes.Buffer
	for _, op := range group {
		if op.Tag == 'e' {
			writeBody(&body, ' ', a[op.I1:op.I2])
			continue
		}
		if op.Tag == 'r' || op.Tag == 'd' {
			writeBody(&body, '-', a[op.I1:op.I2])
		}
		if op.Tag == 'r' || op.Tag == 'i' {
			writeBody(&body, '+', b[op.J1:op.J2])
		}
	}
	hunk.Body = body.Bytes()

	return hunk
}

// hunkStart follows the unified format: ranges are 1-based, and an empty
// range starts at the line before it.
func hunkStart(start int, length int) int32 {
	if length == 0 {
		return int32(start)
	}
	return int32(start + 1)
}

func writeBody(body *bytes.Buffer, prefix byte, lines []string) {
	for _, line := range lines {
		body.WriteByte(prefix)
		body.WriteString(line)
		body.WriteByte('\n')
	}
}
