package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, package, hash, decl_hash, last_indexed) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Package, f.Hash, f.DeclHash, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

const fileCols = "id, path, package, COALESCE(hash, ''), COALESCE(decl_hash, ''), last_indexed"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var indexed sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &f.Package, &f.Hash, &f.DeclHash, &indexed); err != nil {
		return nil, err
	}
	f.LastIndexed = indexed.Time
	return f, nil
}

func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// SetFileDeclarations records the package and declaration hash computed
// after extraction.
func (s *Store) SetFileDeclarations(fileID int64, pkg, declHash string) error {
	if _, err := s.db.Exec("UPDATE files SET package = ?, decl_hash = ? WHERE id = ?", pkg, declHash, fileID); err != nil {
		return fmt.Errorf("set file declarations: %w", err)
	}
	return nil
}

// --- Class operations ---

func (s *Store) InsertClass(c *Class) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO classes (file_id, name, kind, is_interface, modifiers, start_line, outer_class_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.FileID, c.Name, c.Kind, c.IsInterface, marshalModifiers(c.Modifiers), c.StartLine, c.OuterClassID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert class: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return id, nil
}

const classCols = "id, file_id, name, kind, is_interface, modifiers, start_line, outer_class_id"

func scanClass(scanner interface{ Scan(...any) error }) (*Class, error) {
	c := &Class{}
	var mods sql.NullString
	if err := scanner.Scan(&c.ID, &c.FileID, &c.Name, &c.Kind, &c.IsInterface, &mods, &c.StartLine, &c.OuterClassID); err != nil {
		return nil, err
	}
	c.Modifiers = unmarshalModifiers(mods.String)
	return c, nil
}

func (s *Store) queryClasses(query string, args ...any) ([]*Class, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []*Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// ClassByName returns the class with the given binary name, or nil.
func (s *Store) ClassByName(name string) (*Class, error) {
	c, err := scanClass(s.db.QueryRow("SELECT "+classCols+" FROM classes WHERE name = ?", name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("class by name: %w", err)
	}
	return c, nil
}

func (s *Store) ClassesByFile(fileID int64) ([]*Class, error) {
	classes, err := s.queryClasses("SELECT "+classCols+" FROM classes WHERE file_id = ? ORDER BY id", fileID)
	if err != nil {
		return nil, fmt.Errorf("classes by file: %w", err)
	}
	return classes, nil
}

// ClassNames returns the binary names of every indexed class, sorted.
func (s *Store) ClassNames() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM classes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("class names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan class name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// --- Supertype operations ---

func (s *Store) InsertSupertype(st *Supertype) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO supertypes (class_id, relation, ordinal, type_expr, resolved_name)
		 VALUES (?, ?, ?, ?, ?)`,
		st.ClassID, st.Relation, st.Ordinal, st.TypeExpr, st.ResolvedName,
	)
	if err != nil {
		return 0, fmt.Errorf("insert supertype: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	st.ID = id
	return id, nil
}

const supertypeCols = "id, class_id, relation, ordinal, type_expr, resolved_name"

func (s *Store) querySupertypes(query string, args ...any) ([]*Supertype, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Supertype
	for rows.Next() {
		st := &Supertype{}
		if err := rows.Scan(&st.ID, &st.ClassID, &st.Relation, &st.Ordinal, &st.TypeExpr, &st.ResolvedName); err != nil {
			return nil, fmt.Errorf("scan supertype: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SupertypesByClass returns a class's supertype clauses, extends first,
// each in declaration order.
func (s *Store) SupertypesByClass(classID int64) ([]*Supertype, error) {
	out, err := s.querySupertypes(
		"SELECT "+supertypeCols+" FROM supertypes WHERE class_id = ? ORDER BY relation, ordinal", classID)
	if err != nil {
		return nil, fmt.Errorf("supertypes by class: %w", err)
	}
	return out, nil
}

// --- Import operations ---

func (s *Store) InsertImport(imp *Import) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO imports (file_id, source, is_static, is_wildcard) VALUES (?, ?, ?, ?)",
		imp.FileID, imp.Source, imp.IsStatic, imp.IsWildcard,
	)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	imp.ID = id
	return id, nil
}

func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, source, is_static, is_wildcard FROM imports WHERE file_id = ? ORDER BY id", fileID)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()
	var out []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Source, &imp.IsStatic, &imp.IsWildcard); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}
