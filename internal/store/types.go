package store

import "time"

type File struct {
	ID          int64
	Path        string
	Package     string
	Hash        string
	DeclHash    string
	LastIndexed time.Time
}

// Class kinds.
const (
	KindClass      = "class"
	KindInterface  = "interface"
	KindEnum       = "enum"
	KindRecord     = "record"
	KindAnnotation = "annotation"
)

// Class is one type declaration. Name is the binary name, with nested
// classes separated by '$'.
type Class struct {
	ID           int64
	FileID       int64
	Name         string
	Kind         string
	IsInterface  bool
	Modifiers    []string
	StartLine    int
	OuterClassID *int64
}

// Supertype relations.
const (
	RelExtends    = "extends"
	RelImplements = "implements"
)

// Supertype is one extends or implements clause entry as written in source.
// ResolvedName is nil until the resolution phase binds TypeExpr to a
// binary name.
type Supertype struct {
	ID           int64
	ClassID      int64
	Relation     string
	Ordinal      int
	TypeExpr     string
	ResolvedName *string
}

type Import struct {
	ID         int64
	FileID     int64
	Source     string
	IsStatic   bool
	IsWildcard bool
}

// Stats counts index rows.
type Stats struct {
	Files      int
	Classes    int
	Interfaces int
	Supertypes int
	Unresolved int
}
