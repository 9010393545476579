package lattice

import (
	"github.com/jward/lattice/internal/hierarchy"
	"github.com/jward/lattice/internal/model"
	"github.com/jward/lattice/internal/resolve"
	"github.com/jward/lattice/internal/store"
)

// Public type aliases for the internal model, resolution and index types
// used in the TypeHierarchy and Engine APIs. These are Go type aliases (=),
// identical to the internal types at compile time.

type Type = model.Type
type Primitive = model.Primitive
type NullType = model.NullType
type ClassType = model.ClassType
type ArrayType = model.ArrayType
type Modifiers = model.Modifiers
type ClassDeclaration = model.ClassDeclaration

type Frontend = resolve.Frontend
type FrontendFunc = resolve.FrontendFunc
type StaticFrontend = resolve.StaticFrontend
type Chain = resolve.Chain

type TypeResolutionError = resolve.ResolutionError
type MalformedHierarchyError = hierarchy.MalformedHierarchyError
type InvalidQueryError = hierarchy.InvalidQueryError

type Store = store.Store
type Stats = store.Stats

// Primitive types and the null type.
var (
	Boolean = model.Boolean
	Byte    = model.Byte
	Char    = model.Char
	Short   = model.Short
	Int     = model.Int
	Long    = model.Long
	Float   = model.Float
	Double  = model.Double
	Null    = model.Null
)

// Access flags, as in the class file format.
const (
	ModPublic     = model.ModPublic
	ModPrivate    = model.ModPrivate
	ModProtected  = model.ModProtected
	ModStatic     = model.ModStatic
	ModFinal      = model.ModFinal
	ModInterface  = model.ModInterface
	ModAbstract   = model.ModAbstract
	ModSynthetic  = model.ModSynthetic
	ModAnnotation = model.ModAnnotation
	ModEnum       = model.ModEnum
)

// Sentinel errors, for use with errors.Is.
var (
	ErrClassNotFound       = resolve.ErrClassNotFound
	ErrCyclicHierarchy     = hierarchy.ErrCyclicHierarchy
	ErrNotAnInterface      = hierarchy.ErrNotAnInterface
	ErrNotAClass           = hierarchy.ErrNotAClass
	ErrInterfaceSuperclass = hierarchy.ErrInterfaceSuperclass
	ErrRootSuperclass      = hierarchy.ErrRootSuperclass
	ErrInvalidQuery        = hierarchy.ErrInvalidQuery
)

// ClassOf returns the class or interface type with the given binary name.
func ClassOf(name string) ClassType { return model.ClassOf(name) }

// ArrayOf returns the array type with dims dimensions of elem.
func ArrayOf(elem Type, dims int) ArrayType { return model.ArrayOf(elem, dims) }

// ParseType parses a type spelling such as "int", "null" or
// "java.lang.String[][]".
func ParseType(s string) (Type, error) { return model.ParseType(s) }

// NewStaticFrontend returns an in-memory frontend serving decls.
func NewStaticFrontend(decls ...*ClassDeclaration) *StaticFrontend {
	return resolve.NewStaticFrontend(decls...)
}

// Bootstrap returns a frontend declaring the core java.lang, java.io and
// java.util types.
func Bootstrap() *StaticFrontend { return resolve.Bootstrap() }
