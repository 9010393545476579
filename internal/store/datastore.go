package store

// DataStore is the interface for extraction-phase writes. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// extraction) implement it.
type DataStore interface {
	InsertClass(c *Class) (int64, error)
	InsertSupertype(st *Supertype) (int64, error)
	InsertImport(imp *Import) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
