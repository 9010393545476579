// Package javasrc reads class hierarchy facts out of Java source files and
// binds the type names they mention to binary class names.
package javasrc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/jward/lattice/internal/model"
)

// MaxFileSize is the largest compilation unit Extract accepts.
const MaxFileSize = 10 * 1024 * 1024

var (
	ErrFileTooLarge   = errors.New("file too large")
	ErrInvalidContent = errors.New("invalid content")
)

// Kinds of type declaration.
const (
	KindClass      = "class"
	KindInterface  = "interface"
	KindEnum       = "enum"
	KindRecord     = "record"
	KindAnnotation = "annotation"
)

// Implicit supertypes of enums, records and annotation types.
const (
	EnumBase       = "java.lang.Enum"
	RecordBase     = "java.lang.Record"
	AnnotationBase = "java.lang.annotation.Annotation"
)

// Unit is the hierarchy-relevant content of one compilation unit.
type Unit struct {
	Package string
	Imports []Import
	Types   []TypeDecl
}

// Import is one import declaration. Path is the dotted name without the
// trailing ".*" of a wildcard import.
type Import struct {
	Path     string
	Static   bool
	Wildcard bool
}

// TypeDecl is one class, interface, enum, record or annotation type.
// Extends and Implements hold the clauses as written, with type arguments
// removed; an interface lists its superinterfaces under Extends.
type TypeDecl struct {
	Name       string // binary name, e.g. p.Outer$Inner
	Outer      string // binary name of the enclosing type, "" for top level
	Kind       string
	Modifiers  []string
	Line       int // 1-based
	Extends    []string
	Implements []string
}

// IsInterface reports whether the declaration is an interface or an
// annotation type.
func (d *TypeDecl) IsInterface() bool {
	return d.Kind == KindInterface || d.Kind == KindAnnotation
}

// IsSourceFile reports whether path names a Java compilation unit.
func IsSourceFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".java")
}

// Extract parses a Java compilation unit. Syntax errors do not fail the
// extraction; whatever declarations tree-sitter recovered are returned.
func Extract(ctx context.Context, src []byte) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if len(src) > MaxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(src), MaxFileSize)
	}
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("extract: parse: %w", err)
	}
	defer tree.Close()

	x := &extractor{src: src, unit: &Unit{}}
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			x.unit.Package = x.packageName(child)
		case "import_declaration":
			x.unit.Imports = append(x.unit.Imports, x.importDecl(child))
		default:
			x.typeDecl(child, "", false)
		}
	}
	return x.unit, nil
}

type extractor struct {
	src  []byte
	unit *Unit
}

func (x *extractor) text(n *sitter.Node) string {
	return n.Content(x.src)
}

func (x *extractor) packageName(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
			return compact(x.text(c))
		}
	}
	return ""
}

func (x *extractor) importDecl(n *sitter.Node) Import {
	imp := Import{}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "static":
			imp.Static = true
		case "asterisk":
			imp.Wildcard = true
		case "scoped_identifier", "identifier":
			imp.Path = compact(x.text(c))
		}
	}
	return imp
}

var typeDeclKinds = map[string]string{
	"class_declaration":           KindClass,
	"interface_declaration":       KindInterface,
	"enum_declaration":            KindEnum,
	"record_declaration":          KindRecord,
	"annotation_type_declaration": KindAnnotation,
}

// typeDecl records n if it declares a type, then descends into its body.
// inInterface marks members of an interface, which are implicitly public
// and static.
func (x *extractor) typeDecl(n *sitter.Node, outer string, inInterface bool) {
	kind, ok := typeDeclKinds[n.Type()]
	if !ok {
		return
	}
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := x.text(nameNode)
	switch {
	case outer != "":
		name = outer + "$" + name
	case x.unit.Package != "":
		name = x.unit.Package + "." + name
	}

	d := TypeDecl{
		Name:      name,
		Outer:     outer,
		Kind:      kind,
		Modifiers: x.modifiers(n),
		Line:      int(n.StartPoint().Row) + 1,
	}
	if outer != "" && (inInterface || kind != KindClass) {
		d.Modifiers = addModifier(d.Modifiers, "static")
	}
	if inInterface {
		d.Modifiers = addModifier(d.Modifiers, "public")
	}

	switch kind {
	case KindClass:
		if sc := n.ChildByFieldName("superclass"); sc != nil {
			d.Extends = x.typeList(sc)
		}
		if si := n.ChildByFieldName("interfaces"); si != nil {
			d.Implements = x.typeList(si)
		}
	case KindInterface:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "extends_interfaces" {
				d.Extends = x.typeList(c)
			}
		}
	case KindEnum:
		d.Extends = []string{EnumBase}
		if si := n.ChildByFieldName("interfaces"); si != nil {
			d.Implements = x.typeList(si)
		}
	case KindRecord:
		d.Extends = []string{RecordBase}
		if si := n.ChildByFieldName("interfaces"); si != nil {
			d.Implements = x.typeList(si)
		}
	case KindAnnotation:
		d.Extends = []string{AnnotationBase}
	}
	x.unit.Types = append(x.unit.Types, d)

	if body := n.ChildByFieldName("body"); body != nil {
		x.members(body, name, d.IsInterface())
	}
}

// members visits the member type declarations of a type body.
func (x *extractor) members(body *sitter.Node, outer string, inInterface bool) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() == "enum_body_declarations" {
			x.members(c, outer, inInterface)
			continue
		}
		x.typeDecl(c, outer, inInterface)
	}
}

func (x *extractor) modifiers(n *sitter.Node) []string {
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		m := n.NamedChild(i)
		if m.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(m.ChildCount()); j++ {
			kw := m.Child(j).Type()
			// Annotations and keywords outside the class flag set are dropped.
			if _, ok := model.ParseModifier(kw); ok {
				out = addModifier(out, kw)
			}
		}
	}
	return out
}

func addModifier(mods []string, kw string) []string {
	for _, m := range mods {
		if m == kw {
			return mods
		}
	}
	return append(mods, kw)
}

// typeList collects the type expressions under a superclass, super_interfaces
// or extends_interfaces node.
func (x *extractor) typeList(n *sitter.Node) []string {
	var out []string
	var walk func(*sitter.Node)
	walk = func(c *sitter.Node) {
		switch c.Type() {
		case "type_list":
			for i := 0; i < int(c.NamedChildCount()); i++ {
				walk(c.NamedChild(i))
			}
		case "annotated_type":
			for i := 0; i < int(c.NamedChildCount()); i++ {
				walk(c.NamedChild(i))
			}
		case "type_identifier", "scoped_type_identifier", "generic_type":
			if t := StripTypeArguments(x.text(c)); t != "" {
				out = append(out, t)
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i))
	}
	return out
}

// StripTypeArguments removes generic arguments and whitespace from a type
// expression: "Map.Entry<K, List<V>>" becomes "Map.Entry".
func StripTypeArguments(expr string) string {
	var b strings.Builder
	depth := 0
	for _, r := range expr {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth > 0, unicode.IsSpace(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// compact removes all whitespace.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
