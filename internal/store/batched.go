package store

import "sync"

// BatchedStore buffers extraction inserts in memory using fake (negative)
// IDs. It implements DataStore so the extractor can write to it without
// knowing whether it is hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Classes    []Class
	Supertypes []Supertype
	Imports    []Import

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertClass(c *Class) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.ID = b.allocFakeID()
	b.Classes = append(b.Classes, *c)
	return c.ID, nil
}

func (b *BatchedStore) InsertSupertype(st *Supertype) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st.ID = b.allocFakeID()
	b.Supertypes = append(b.Supertypes, *st)
	return st.ID, nil
}

func (b *BatchedStore) InsertImport(imp *Import) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	imp.ID = b.allocFakeID()
	b.Imports = append(b.Imports, *imp)
	return imp.ID, nil
}
