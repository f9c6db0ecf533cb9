package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrRootUnreadable wraps every error caused by the walked root itself.
var ErrRootUnreadable = errors.New("failed to enumerate root")

// WalkFunc is called for every regular, non-ignored file. path is absolute.
type WalkFunc func(path string, d fs.DirEntry) error

// WalkErrorFunc receives errors for entries below the root. The walk skips
// the entry and continues.
type WalkErrorFunc func(path string, err error)

// WalkSourceFiles walks root depth first in lexical order. Only a failure to
// enumerate root itself is returned; errors on entries below it go to onErr.
// An error returned by fn stops the walk and is returned.
func WalkSourceFiles(root string, matcher *IgnoreMatcher, fn WalkFunc, onErr WalkErrorFunc) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrRootUnreadable, root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w %s: not a directory", ErrRootUnreadable, root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("%w %s: %w", ErrRootUnreadable, root, err)
			}
			if onErr != nil {
				onErr(path, err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relativePath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if matcher.Ignored(relativePath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		return fn(path, d)
	})
}
