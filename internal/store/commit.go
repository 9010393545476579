package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// IDs, and references within the batch are rewritten using the fakeToReal
// mapping.
//
// Insert order respects FK dependencies:
//  1. Classes (outer classes precede nested ones in extraction order)
//  2. Supertypes (depend on class_id)
//  3. Imports (depend on file_id only)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)

	for _, c := range batch.Classes {
		if c.OuterClassID != nil && *c.OuterClassID < 0 {
			realID, ok := fakeToReal[*c.OuterClassID]
			if !ok {
				return fmt.Errorf("commit batch: class %q has outer_class_id=%d not in fakeToReal map", c.Name, *c.OuterClassID)
			}
			c.OuterClassID = &realID
		}
		realID, err := insertClassTx(tx, &c)
		if err != nil {
			return fmt.Errorf("commit batch: class %q: %w", c.Name, err)
		}
		fakeToReal[c.ID] = realID
	}

	for _, st := range batch.Supertypes {
		if st.ClassID < 0 {
			realID, ok := fakeToReal[st.ClassID]
			if !ok {
				return fmt.Errorf("commit batch: supertype %q has class_id=%d not in fakeToReal map (have %d classes)", st.TypeExpr, st.ClassID, len(batch.Classes))
			}
			st.ClassID = realID
		}
		if _, err := insertSupertypeTx(tx, &st); err != nil {
			return fmt.Errorf("commit batch: supertype %q: %w", st.TypeExpr, err)
		}
	}

	for _, imp := range batch.Imports {
		if _, err := insertImportTx(tx, &imp); err != nil {
			return fmt.Errorf("commit batch: import %q: %w", imp.Source, err)
		}
	}

	return tx.Commit()
}

// --- Transaction-scoped insert helpers ---
// These mirror the Store insert methods but accept *sql.Tx instead of using s.db.

func insertClassTx(tx *sql.Tx, c *Class) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO classes (file_id, name, kind, is_interface, modifiers, start_line, outer_class_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.FileID, c.Name, c.Kind, c.IsInterface, marshalModifiers(c.Modifiers), c.StartLine, c.OuterClassID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertSupertypeTx(tx *sql.Tx, st *Supertype) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO supertypes (class_id, relation, ordinal, type_expr, resolved_name)
		 VALUES (?, ?, ?, ?, ?)`,
		st.ClassID, st.Relation, st.Ordinal, st.TypeExpr, st.ResolvedName,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertImportTx(tx *sql.Tx, imp *Import) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO imports (file_id, source, is_static, is_wildcard) VALUES (?, ?, ?, ?)",
		imp.FileID, imp.Source, imp.IsStatic, imp.IsWildcard,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
