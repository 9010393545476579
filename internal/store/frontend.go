package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jward/lattice/internal/model"
	"github.com/jward/lattice/internal/resolve"
)

// ErrUnresolvedSupertype is returned by ResolveClass when a supertype
// clause of the requested class has not been bound to a binary name yet.
var ErrUnresolvedSupertype = errors.New("unresolved supertype")

// Compile-time check: *Store serves class declarations to the hierarchy.
var _ resolve.Frontend = (*Store)(nil)

// ResolveClass builds the declaration of ref from the index. Classes that
// are not indexed yield resolve.ErrClassNotFound so a resolve.Chain can
// fall through to the next frontend.
func (s *Store) ResolveClass(ctx context.Context, ref model.ClassType) (*model.ClassDeclaration, error) {
	var (
		c    Class
		mods sql.NullString
		path string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.kind, c.is_interface, c.modifiers, f.path
		FROM classes c JOIN files f ON f.id = c.file_id
		WHERE c.name = ?`, ref.Name(),
	).Scan(&c.ID, &c.Kind, &c.IsInterface, &mods, &path)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", ref, resolve.ErrClassNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load class %s: %w", ref, err)
	}

	keywords := unmarshalModifiers(mods.String)
	modifiers, err := model.ParseModifiers(keywords)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", ref, err)
	}
	switch c.Kind {
	case KindInterface:
		modifiers |= model.ModInterface | model.ModAbstract
	case KindAnnotation:
		modifiers |= model.ModInterface | model.ModAbstract | model.ModAnnotation
	case KindEnum:
		modifiers |= model.ModEnum
	case KindRecord:
		modifiers |= model.ModFinal
	}

	d := &model.ClassDeclaration{
		Type:        ref,
		IsInterface: c.IsInterface,
		Modifiers:   modifiers,
		Source:      path,
	}

	sts, err := s.SupertypesByClass(c.ID)
	if err != nil {
		return nil, err
	}
	for _, st := range sts {
		if st.ResolvedName == nil {
			return nil, fmt.Errorf("class %s: %s %q: %w", ref, st.Relation, st.TypeExpr, ErrUnresolvedSupertype)
		}
		t := model.ClassOf(*st.ResolvedName)
		// An interface's extends clause lists superinterfaces.
		if st.Relation == RelExtends && !c.IsInterface {
			d.Superclass = t
			continue
		}
		d.Interfaces = append(d.Interfaces, t)
	}
	return d, nil
}
