package models

import "time"

// FileSnapshot represents the on-disk state of a single dependency-capable file
type FileSnapshot struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// GraphSnapshot is the serializable form of a dependency graph stored in the graph cache
type GraphSnapshot struct {
	Root        string                      `json:"root"`
	Fingerprint uint64                      `json:"fingerprint"`
	Timestamp   time.Time                   `json:"timestamp"`
	Edges       map[string][]DependencyEdge `json:"edges"`
	Warnings    []ParseWarning              `json:"warnings"`
}
