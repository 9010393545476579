package store

import (
	"fmt"
)

// PendingSupertype is a supertype clause awaiting name binding, with the
// context the resolver needs.
type PendingSupertype struct {
	Supertype
	ClassName string
	FileID    int64
}

// UnresolvedSupertypes returns every supertype clause without a resolved
// name, grouped by file.
func (s *Store) UnresolvedSupertypes() ([]*PendingSupertype, error) {
	rows, err := s.db.Query(`
		SELECT st.id, st.class_id, st.relation, st.ordinal, st.type_expr, c.name, c.file_id
		FROM supertypes st JOIN classes c ON c.id = st.class_id
		WHERE st.resolved_name IS NULL
		ORDER BY c.file_id, st.class_id, st.relation, st.ordinal`)
	if err != nil {
		return nil, fmt.Errorf("unresolved supertypes: %w", err)
	}
	defer rows.Close()
	var out []*PendingSupertype
	for rows.Next() {
		p := &PendingSupertype{}
		if err := rows.Scan(&p.ID, &p.ClassID, &p.Relation, &p.Ordinal, &p.TypeExpr, &p.ClassName, &p.FileID); err != nil {
			return nil, fmt.Errorf("scan unresolved supertype: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetSupertypeResolutions binds supertype IDs to binary names in one
// transaction.
func (s *Store) SetSupertypeResolutions(resolved map[int64]string) error {
	if len(resolved) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE supertypes SET resolved_name = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("prepare resolution update: %w", err)
	}
	defer stmt.Close()
	for id, name := range resolved {
		if _, err := stmt.Exec(name, id); err != nil {
			return fmt.Errorf("set resolution for supertype %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// ClearResolutions forgets every name binding, forcing the next resolution
// pass to rebind all supertype clauses.
func (s *Store) ClearResolutions() error {
	if _, err := s.db.Exec("UPDATE supertypes SET resolved_name = NULL"); err != nil {
		return fmt.Errorf("clear resolutions: %w", err)
	}
	return nil
}
