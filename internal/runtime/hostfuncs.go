package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/lattice/internal/model"
)

// typeArg parses args[i] as a type spelling such as "java.lang.String[]".
func typeArg(fn string, args []object.Object, i int) (model.Type, *object.Error) {
	s, ok := args[i].(*object.String)
	if !ok {
		return nil, object.Errorf("%s: argument %d must be a string, got %s", fn, i+1, args[i].Type())
	}
	t, err := model.ParseType(s.Value())
	if err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}
	return t, nil
}

func typeList(ts []model.ClassType) *object.List {
	items := make([]object.Object, len(ts))
	for i, t := range ts {
		items[i] = object.NewString(t.Name())
	}
	return object.NewList(items)
}

// makeRelationFn builds a two-argument boolean predicate over types.
func makeRelationFn(name string, rel func(context.Context, model.Type, model.Type) (bool, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError(name, 2, len(args))
		}
		a, errObj := typeArg(name, args, 0)
		if errObj != nil {
			return errObj
		}
		b, errObj := typeArg(name, args, 1)
		if errObj != nil {
			return errObj
		}
		ok, err := rel(ctx, a, b)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return object.NewBool(ok)
	})
}

// makeIsSubtypeFn creates "is_subtype".
//
// is_subtype(super, sub) → bool
func makeIsSubtypeFn(h Hierarchy) *object.Builtin {
	return makeRelationFn("is_subtype", h.IsSubtype)
}

// makeIsAssignableFn creates "is_assignable".
//
// is_assignable(to, from) → bool
func makeIsAssignableFn(h Hierarchy) *object.Builtin {
	return makeRelationFn("is_assignable", h.IsAssignable)
}

// makeSuperClassOfFn creates "superclass_of".
//
// superclass_of(type) → string, or nil for the root class
func makeSuperClassOfFn(h Hierarchy) *object.Builtin {
	return object.NewBuiltin("superclass_of", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("superclass_of", 1, len(args))
		}
		t, errObj := typeArg("superclass_of", args, 0)
		if errObj != nil {
			return errObj
		}
		super, ok, err := h.SuperClassOf(ctx, t)
		if err != nil {
			return object.Errorf("superclass_of: %v", err)
		}
		if !ok {
			return object.Nil
		}
		return object.NewString(super.Name())
	})
}

// makeTypeListFn wraps a single-type query returning a list of classes.
//
// subclasses_of(type) → [string, ...]
func makeTypeListFn(name string, query func(context.Context, model.Type) ([]model.ClassType, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		t, errObj := typeArg(name, args, 0)
		if errObj != nil {
			return errObj
		}
		ts, err := query(ctx, t)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return typeList(ts)
	})
}

// makeAddTypeFn creates "add_type", which registers a class declaration
// built from a map:
//
//	add_type({"name": "p.A", "superclass": "p.Base", "interfaces": ["p.I"],
//	          "interface": false, "modifiers": ["public"]})
func makeAddTypeFn(h Hierarchy) *object.Builtin {
	return object.NewBuiltin("add_type", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("add_type", 1, len(args))
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return object.Errorf("add_type: expected map, got %s", args[0].Type())
		}
		d, err := declarationFromMap(m.Value())
		if err != nil {
			return object.Errorf("add_type: %v", err)
		}
		if err := h.AddType(ctx, d); err != nil {
			return object.Errorf("add_type: %v", err)
		}
		return object.Nil
	})
}

func declarationFromMap(m map[string]object.Object) (*model.ClassDeclaration, error) {
	name, err := stringField(m, "name", true)
	if err != nil {
		return nil, err
	}
	d := &model.ClassDeclaration{Type: model.ClassOf(name), Source: "script"}

	if v, ok := m["interface"]; ok {
		b, ok := v.(*object.Bool)
		if !ok {
			return nil, fmt.Errorf("interface must be a bool, got %s", v.Type())
		}
		d.IsInterface = b.Value()
	}
	super, err := stringField(m, "superclass", false)
	if err != nil {
		return nil, err
	}
	if super != "" {
		d.Superclass = model.ClassOf(super)
	}
	ifaces, err := stringsField(m, "interfaces")
	if err != nil {
		return nil, err
	}
	for _, i := range ifaces {
		d.Interfaces = append(d.Interfaces, model.ClassOf(i))
	}
	mods, err := stringsField(m, "modifiers")
	if err != nil {
		return nil, err
	}
	if d.Modifiers, err = model.ParseModifiers(mods); err != nil {
		return nil, err
	}
	if d.IsInterface {
		d.Modifiers |= model.ModInterface | model.ModAbstract
	}
	if src, err := stringField(m, "source", false); err != nil {
		return nil, err
	} else if src != "" {
		d.Source = src
	}
	return d, nil
}

func stringField(m map[string]object.Object, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == object.Nil {
		if required {
			return "", fmt.Errorf("missing %q", key)
		}
		return "", nil
	}
	s, ok := v.(*object.String)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %s", key, v.Type())
	}
	return s.Value(), nil
}

func stringsField(m map[string]object.Object, key string) ([]string, error) {
	v, ok := m[key]
	if !ok || v == object.Nil {
		return nil, nil
	}
	l, ok := v.(*object.List)
	if !ok {
		return nil, fmt.Errorf("%s must be a list, got %s", key, v.Type())
	}
	out := make([]string, 0, len(l.Value()))
	for _, item := range l.Value() {
		s, ok := item.(*object.String)
		if !ok {
			return nil, fmt.Errorf("%s entries must be strings, got %s", key, item.Type())
		}
		out = append(out, s.Value())
	}
	return out, nil
}

// makeTypeCountFn creates "type_count".
//
// type_count() → int, the number of types in the hierarchy
func makeTypeCountFn(h Hierarchy) *object.Builtin {
	return object.NewBuiltin("type_count", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("type_count", 0, len(args))
		}
		return object.NewInt(int64(h.Len()))
	})
}
