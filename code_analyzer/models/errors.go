package models

import "fmt"

// ReadError is returned when a file is missing, unreadable or binary at the
// time it is accessed.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// WriteError is returned when writing modified content back to disk fails.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ParseWarning is a non-fatal problem found while extracting dependency
// statements or checking syntax.
type ParseWarning struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

func (w *ParseWarning) Error() string {
	if w.Target != "" {
		return fmt.Sprintf("%s:%d: %s (%q)", w.Path, w.Line, w.Reason, w.Target)
	}
	return fmt.Sprintf("%s:%d: %s", w.Path, w.Line, w.Reason)
}
