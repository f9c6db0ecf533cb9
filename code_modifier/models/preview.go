package models

import "github.com/sourcegraph/go-diff/diff"

// Preview is the change a substitution would make to one file.
type Preview struct {
	Path  string
	Patch *diff.FileDiff
}
