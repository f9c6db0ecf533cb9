package models

import (
	"github.com/sourcegraph/go-diff/diff"
)

// DiffOp is the classification of a single line in a DiffRecord.
type DiffOp int

const (
	DiffUnchanged DiffOp = iota
	DiffAdded
	DiffRemoved
)

// String returns the string representation of the operation.
func (op DiffOp) String() string {
	switch op {
	case DiffAdded:
		return "added"
	case DiffRemoved:
		return "removed"
	default:
		return "unchanged"
	}
}

// DiffLine is one line of a DiffRecord
type DiffLine struct {
	Op   DiffOp
	Text string
}

// DiffRecord is the result of comparing two content snapshots of the same file.
// A changed line is reported as a removal of the old line followed by an
// addition of the new one.
type DiffRecord struct {
	Path string
	// Initial is true when no baseline existed and this call established one.
	Initial bool
	Lines   []DiffLine
	// Patch is the unified rendering of Lines, nil when nothing changed.
	Patch *diff.FileDiff
}

// HasChanges reports whether any line was added or removed.
func (r *DiffRecord) HasChanges() bool {
	if r == nil {
		return false
	}
	for _, line := range r.Lines {
		if line.Op != DiffUnchanged {
			return true
		}
	}
	return false
}

// Added returns the text of every added line in order.
func (r *DiffRecord) Added() []string {
	return r.linesWith(DiffAdded)
}

// Removed returns the text of every removed line in order.
func (r *DiffRecord) Removed() []string {
	return r.linesWith(DiffRemoved)
}

// Stats returns the number of added and removed lines.
func (r *DiffRecord) Stats() (added int, removed int) {
	if r == nil {
		return 0, 0
	}
	for _, line := range r.Lines {
		switch line.Op {
		case DiffAdded:
			added++
		case DiffRemoved:
			removed++
		}
	}
	return added, removed
}

func (r *DiffRecord) linesWith(op DiffOp) []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, line := range r.Lines {
		if line.Op == op {
			out = append(out, line.Text)
		}
	}
	return out
}
