package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// testFacts is a small class with two members, a library interface it uses
// and one import.
func testFacts() *FactSet {
	return &FactSet{
		Projects: []Project{
			{ID: 1, Name: "app"},
			{ID: 2, Name: "jdk", Kind: ProjectKindLibrary},
		},
		Files: []File{
			{ID: 10, ProjectID: 1, Path: "src/p/A.java", Hash: "abc"},
			{ID: 11, ProjectID: 1, Path: "src/p/B.java"},
		},
		Entities: []Entity{
			{ID: 100, Kind: "CLASS", FQN: "p.A", Modifiers: []string{"public", "final"}, ProjectID: 1, FileID: ptr(int64(10)), Offset: ptr(30), Length: ptr(70)},
			{ID: 101, Kind: "METHOD", FQN: "p.A.m()", ProjectID: 1, FileID: ptr(int64(10)), Offset: ptr(50), Length: ptr(20)},
			{ID: 102, Kind: "CONSTRUCTOR", FQN: "p.A.<init>()", ProjectID: 1, FileID: ptr(int64(10)), Offset: ptr(72), Length: ptr(10)},
			{ID: 103, Kind: "FIELD", FQN: "p.A.f", ProjectID: 1, FileID: ptr(int64(10)), Offset: ptr(40), Length: ptr(8)},
			{ID: 200, Kind: "INTERFACE", FQN: "java.util.List", ProjectID: 2},
			{ID: 201, Kind: "CLASS", FQN: "p.A", ProjectID: 2},
		},
		Relations: []Relation{
			{Kind: "CONTAINS", SourceID: 100, TargetID: 101},
			{Kind: "CONTAINS", SourceID: 100, TargetID: 103},
			{Kind: "CONTAINS", SourceID: 100, TargetID: 102},
			{Kind: "USES", SourceID: 101, TargetID: 200},
			{Kind: "USES", SourceID: 103, TargetID: 200},
			{Kind: "CALLS", SourceID: 101, TargetID: 102, ProjectID: ptr(int64(1)), FileID: ptr(int64(10))},
		},
		Imports: []Import{
			{FileID: 10, EntityID: 200, Offset: 11, Length: 22},
			{FileID: 10, EntityID: 201, Offset: 0, Length: 10, Static: true, OnDemand: true},
		},
	}
}

func loadTestFacts(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	require.NoError(t, s.LoadFacts(context.Background(), testFacts()))
	return s
}

// ===== Schema =====

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())
	assert.Equal(t, DriverSQLite, s.Driver())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	t.Parallel()
	_, err := Open("mysql", "x")
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestRebind(t *testing.T) {
	t.Parallel()
	sqlite := &Store{driver: DriverSQLite}
	pg := &Store{driver: DriverPostgres}

	q := "SELECT id FROM entities WHERE kind = ? AND project_id = ?"
	assert.Equal(t, q, sqlite.Rebind(q))
	assert.Equal(t, "SELECT id FROM entities WHERE kind = $1 AND project_id = $2", pg.Rebind(q))
}

// ===== Load =====

func TestLoadFacts_PreservesIDs(t *testing.T) {
	t.Parallel()
	s := loadTestFacts(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Projects: 2, Files: 2, Entities: 6, Relations: 6, Imports: 2}, st)

	p, err := s.ProjectByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ProjectKindSource, p.Kind, "empty kind defaults to source")

	e, err := s.EntityByID(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "p.A", e.FQN)
	assert.Equal(t, []string{"public", "final"}, e.Modifiers)
	assert.Equal(t, int64(10), *e.FileID)
	assert.Equal(t, 30, *e.Offset)
	assert.Equal(t, 70, *e.Length)

	lib, err := s.EntityByID(ctx, 200)
	require.NoError(t, err)
	assert.Nil(t, lib.FileID)
	assert.Nil(t, lib.Offset)
	assert.Empty(t, lib.Modifiers)
}

func TestLoadFacts_RollsBackOnError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	facts := testFacts()
	facts.Entities = append(facts.Entities, Entity{ID: 100, Kind: "CLASS", FQN: "dup", ProjectID: 1})

	err := s.LoadFacts(context.Background(), facts)
	require.Error(t, err)

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, st)
}

func TestInsert_AssignsIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	pid, err := s.InsertProject(ctx, &Project{Name: "app"})
	require.NoError(t, err)
	require.Positive(t, pid)

	f := &File{ProjectID: pid, Path: "A.java"}
	fid, err := s.InsertFile(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, fid, f.ID)

	e := &Entity{Kind: "CLASS", FQN: "A", ProjectID: pid, FileID: &fid}
	eid, err := s.InsertEntity(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, eid, e.ID)

	_, err = s.InsertRelation(ctx, &Relation{Kind: "USES", SourceID: eid, TargetID: eid})
	require.NoError(t, err)
	_, err = s.InsertImport(ctx, &Import{FileID: fid, EntityID: eid})
	require.NoError(t, err)
}

// ===== Lookups =====

func TestLookups_MissReturnsNil(t *testing.T) {
	t.Parallel()
	s := loadTestFacts(t)
	ctx := context.Background()

	e, err := s.EntityByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, e)

	f, err := s.FileByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, f)

	p, err := s.ProjectByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, ok, err := s.FilePath(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntitiesByID(t *testing.T) {
	t.Parallel()
	s := loadTestFacts(t)

	es, err := s.EntitiesByID(context.Background(), []int64{103, 999, 100})
	require.NoError(t, err)
	var ids []int64
	for _, e := range es {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []int64{100, 103}, ids)

	es, err = s.EntitiesByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, es)
}

func TestEntitiesByFQNAndFile(t *testing.T) {
	t.Parallel()
	s := loadTestFacts(t)
	ctx := context.Background()

	es, err := s.EntitiesByFQN(ctx, "p.A")
	require.NoError(t, err)
	assert.Len(t, es, 2)

	es, err = s.EntitiesByFile(ctx, 10)
	require.NoError(t, err)
	require.Len(t, es, 4)
	assert.Equal(t, int64(100), es[0].ID, "entities by file are in offset order")
}

func TestContainedByKind(t *testing.T) {
	t.Parallel()
	s := loadTestFacts(t)
	ctx := context.Background()

	ctors, err := s.ContainedByKind(ctx, "CONSTRUCTOR", 100)
	require.NoError(t, err)
	require.Len(t, ctors, 1)
	assert.Equal(t, int64(102), ctors[0].ID)

	inits, err := s.ContainedByKind(ctx, "INITIALIZER", 100)
	require.NoError(t, err)
	assert.Empty(t, inits)
}

func TestLibraryEntityID(t *testing.T) {
	t.Parallel()
	s := loadTestFacts(t)
	ctx := context.Background()

	id, ok, err := s.LibraryEntityID(ctx, "p.A")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(201), id, "only library projects are searched")

	_, ok, err = s.LibraryEntityID(ctx, "p.A.m()")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRelations(t *testing.T) {
	t.Parallel()
	s := loadTestFacts(t)
	ctx := context.Background()

	targets, err := s.RelationTargetsBySource(ctx, "CONTAINS", 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 103, 102}, targets, "targets are in insertion order")

	sources, err := s.RelationSourcesByTarget(ctx, "USES", 200)
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 103}, sources)

	none, err := s.RelationTargetsBySource(ctx, "EXTENDS", 100)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestImportsByFile(t *testing.T) {
	t.Parallel()
	s := loadTestFacts(t)

	imports, err := s.ImportsByFile(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, imports, 2)
	assert.Equal(t, int64(201), imports[0].EntityID, "imports are in source order")
	assert.True(t, imports[0].Static)
	assert.True(t, imports[0].OnDemand)
	assert.Equal(t, int64(200), imports[1].EntityID)
	assert.Equal(t, 11, imports[1].Offset)
	assert.Equal(t, 22, imports[1].Length)
}

func TestFiles(t *testing.T) {
	t.Parallel()
	s := loadTestFacts(t)
	ctx := context.Background()

	files, err := s.Files(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "src/p/A.java", files[0].Path)
	assert.Equal(t, "abc", files[0].Hash)
	assert.Equal(t, "", files[1].Hash)

	path, ok, err := s.FilePath(ctx, 11)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "src/p/B.java", path)
}

func TestContentHash(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(nil))
	assert.NotEqual(t, ContentHash([]byte("a")), ContentHash([]byte("b")))
}
