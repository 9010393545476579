package hierarchy

import (
	"errors"
	"fmt"

	"github.com/jward/lattice/internal/model"
)

// Sentinel errors for hierarchy registration and queries.
var (
	// ErrCyclicHierarchy is returned when a class transitively extends or
	// implements itself.
	ErrCyclicHierarchy = errors.New("cyclic class hierarchy")

	// ErrNotAnInterface is returned when a declaration lists a class in its
	// implemented (or extended) interfaces.
	ErrNotAnInterface = errors.New("implemented type is not an interface")

	// ErrNotAClass is returned when a class extends an interface.
	ErrNotAClass = errors.New("superclass is an interface")

	// ErrInterfaceSuperclass is returned when an interface declares a
	// superclass other than the root class.
	ErrInterfaceSuperclass = errors.New("interface declares a superclass")

	// ErrRootSuperclass is returned when the root class declares a superclass.
	ErrRootSuperclass = errors.New("root class declares a superclass")

	// ErrInvalidQuery is wrapped by every InvalidQueryError.
	ErrInvalidQuery = errors.New("invalid hierarchy query")
)

// MalformedHierarchyError reports a declaration that cannot be placed in the
// hierarchy. Registration of Class fails; nothing of the attempted batch is
// published.
type MalformedHierarchyError struct {
	Class model.ClassType

	// Related is the supertype involved, when there is one.
	Related model.ClassType
	Err     error
}

func (e *MalformedHierarchyError) Error() string {
	if e.Related.IsValid() {
		return fmt.Sprintf("malformed hierarchy at %s (%s): %v", e.Class, e.Related, e.Err)
	}
	return fmt.Sprintf("malformed hierarchy at %s: %v", e.Class, e.Err)
}

func (e *MalformedHierarchyError) Unwrap() error { return e.Err }

// InvalidQueryError reports a query posed over a type the operation is not
// defined for, such as the superclass of an array. It is distinct from a
// valid "none" answer.
type InvalidQueryError struct {
	Op     string
	Type   model.Type
	Reason string
}

func (e *InvalidQueryError) Error() string {
	t := "<nil>"
	if e.Type != nil {
		t = e.Type.String()
	}
	return fmt.Sprintf("%s(%s): %s", e.Op, t, e.Reason)
}

func (e *InvalidQueryError) Unwrap() error { return ErrInvalidQuery }
