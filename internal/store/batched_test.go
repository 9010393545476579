package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_FakeIDs(t *testing.T) {
	t.Parallel()
	batch := NewBatchedStore()

	id1, err := batch.InsertClass(&Class{Name: "p.A", Kind: KindClass})
	require.NoError(t, err)
	assert.Negative(t, id1, "batched IDs should be negative")

	id2, err := batch.InsertSupertype(&Supertype{ClassID: id1, Relation: RelExtends, TypeExpr: "Base"})
	require.NoError(t, err)
	assert.Negative(t, id2)
	assert.NotEqual(t, id1, id2)

	assert.Len(t, batch.Classes, 1)
	assert.Len(t, batch.Supertypes, 1)
}

func TestCommitBatch_RemapsIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/src/p/Outer.java", "p")

	batch := NewBatchedStore()
	outer := &Class{FileID: f.ID, Name: "p.Outer", Kind: KindClass}
	_, err := batch.InsertClass(outer)
	require.NoError(t, err)
	inner := &Class{FileID: f.ID, Name: "p.Outer$Inner", Kind: KindClass, OuterClassID: &outer.ID}
	_, err = batch.InsertClass(inner)
	require.NoError(t, err)
	_, err = batch.InsertSupertype(&Supertype{ClassID: inner.ID, Relation: RelExtends, TypeExpr: "Outer"})
	require.NoError(t, err)
	_, err = batch.InsertImport(&Import{FileID: f.ID, Source: "java.util.List"})
	require.NoError(t, err)

	require.NoError(t, s.CommitBatch(batch))

	gotOuter, err := s.ClassByName("p.Outer")
	require.NoError(t, err)
	require.NotNil(t, gotOuter)
	assert.Positive(t, gotOuter.ID)

	gotInner, err := s.ClassByName("p.Outer$Inner")
	require.NoError(t, err)
	require.NotNil(t, gotInner)
	require.NotNil(t, gotInner.OuterClassID)
	assert.Equal(t, gotOuter.ID, *gotInner.OuterClassID)

	sts, err := s.SupertypesByClass(gotInner.ID)
	require.NoError(t, err)
	require.Len(t, sts, 1)
	assert.Equal(t, "Outer", sts[0].TypeExpr)

	imps, err := s.ImportsByFile(f.ID)
	require.NoError(t, err)
	assert.Len(t, imps, 1)
}

func TestCommitBatch_RollsBackOnError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/src/p/A.java", "p")
	insertTestClass(t, s, f.ID, "p.Dup", KindClass, nil, nil)

	batch := NewBatchedStore()
	_, err := batch.InsertClass(&Class{FileID: f.ID, Name: "p.Fresh", Kind: KindClass})
	require.NoError(t, err)
	_, err = batch.InsertClass(&Class{FileID: f.ID, Name: "p.Dup", Kind: KindClass})
	require.NoError(t, err)

	require.Error(t, s.CommitBatch(batch))
	fresh, err := s.ClassByName("p.Fresh")
	require.NoError(t, err)
	assert.Nil(t, fresh, "failed batch must not leave partial rows")
}
