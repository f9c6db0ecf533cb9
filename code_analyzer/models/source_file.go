package models

// Kind classifies a source file by what the analyzer can do with it.
type Kind int

const (
	// KindUnsupported files are ignored by the graph builder and the modifier.
	KindUnsupported Kind = iota
	// KindDependency files support static include/require statements.
	KindDependency
	// KindScript files are watched and searched but carry no include edges.
	KindScript
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindDependency:
		return "dependency"
	case KindScript:
		return "script"
	default:
		return "unsupported"
	}
}

// Supported reports whether files of this kind take part in search and modify.
func (k Kind) Supported() bool {
	return k == KindDependency || k == KindScript
}

// SourceFile identifies a file by its canonical absolute path
type SourceFile struct {
	Path     string
	Kind     Kind
	Language string
}

// DependencyEdge means From textually includes To.
type DependencyEdge struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Keyword string `json:"keyword"`
	Line    int    `json:"line"`
}
