package models

import (
	"path/filepath"
	"sort"
	"time"
)

// DependencyGraph maps every scanned dependency-capable file to the include
// edges originating there, with a reverse index for dependent lookups.
//
// A graph is immutable once constructed, so concurrent readers are safe. A
// rebuild produces a new graph that callers swap in as a whole.
type DependencyGraph struct {
	root    string
	edges   map[string][]DependencyEdge
	reverse map[string][]string
}

// BuildResult is what a graph build produces besides the graph itself.
type BuildResult struct {
	Graph     *DependencyGraph
	Warnings  []ParseWarning
	Skipped   []*ReadError
	FromCache bool
}

// NewDependencyGraph copies edges and indexes them by target.
func NewDependencyGraph(root string, edges map[string][]DependencyEdge) *DependencyGraph {
	g := &DependencyGraph{
		root:    root,
		edges:   make(map[string][]DependencyEdge, len(edges)),
		reverse: make(map[string][]string),
	}

	seen := make(map[string]map[string]bool)
	for from, fileEdges := range edges {
		g.edges[from] = append([]DependencyEdge(nil), fileEdges...)
		for _, edge := range fileEdges {
			if seen[edge.To] == nil {
				seen[edge.To] = make(map[string]bool)
			}
			if seen[edge.To][from] {
				continue
			}
			seen[edge.To][from] = true
			g.reverse[edge.To] = append(g.reverse[edge.To], from)
		}
	}
	for target := range g.reverse {
		sort.Strings(g.reverse[target])
	}

	return g
}

// GraphFromSnapshot restores a graph stored in the graph cache.
func GraphFromSnapshot(snapshot *GraphSnapshot) *DependencyGraph {
	return NewDependencyGraph(snapshot.Root, snapshot.Edges)
}

// Root returns the directory the graph was built from.
func (g *DependencyGraph) Root() string {
	return g.root
}

// Files returns every scanned file in sorted order, including files without edges.
func (g *DependencyGraph) Files() []string {
	files := make([]string, 0, len(g.edges))
	for file := range g.edges {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// Edges returns the include edges originating at path.
func (g *DependencyGraph) Edges(path string) []DependencyEdge {
	return append([]DependencyEdge(nil), g.edges[filepath.Clean(path)]...)
}

// Dependents returns the files that directly include target. Matching is
// exact equality on canonical paths; only one hop is considered.
func (g *DependencyGraph) Dependents(target string) []string {
	return append([]string(nil), g.reverse[filepath.Clean(target)]...)
}

// FileCount returns the number of scanned files.
func (g *DependencyGraph) FileCount() int {
	return len(g.edges)
}

// EdgeCount returns the total number of include edges.
func (g *DependencyGraph) EdgeCount() int {
	count := 0
	for _, fileEdges := range g.edges {
		count += len(fileEdges)
	}
	return count
}

// Snapshot converts the graph into its cacheable form.
func (g *DependencyGraph) Snapshot(fingerprint uint64, warnings []ParseWarning) *GraphSnapshot {
	edges := make(map[string][]DependencyEdge, len(g.edges))
	for from, fileEdges := range g.edges {
		edges[from] = append([]DependencyEdge(nil), fileEdges...)
	}
	return &GraphSnapshot{
		Root:        g.root,
		Fingerprint: fingerprint,
		Timestamp:   time.Now(),
		Edges:       edges,
		Warnings:    warnings,
	}
}
