package slicer

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jward/slicer/internal/store"
)

// Accessor is the read-only fact store surface one slicing operation
// queries. An Accessor is owned by a single operation and need not be safe
// for concurrent use.
type Accessor interface {
	// Entity returns ErrEntityNotFound when id is unknown.
	Entity(ctx context.Context, id int64) (*Entity, error)
	RelationTargetsBySource(ctx context.Context, rel RelationType, id int64) ([]int64, error)
	RelationSourcesByTarget(ctx context.Context, rel RelationType, id int64) ([]int64, error)
	// Contained returns the direct children of parentID of the given kind.
	Contained(ctx context.Context, kind EntityKind, parentID int64) ([]*Entity, error)
	Imports(ctx context.Context, fileID int64) ([]Import, error)
	// LibraryEntityID resolves fqn among library projects only.
	LibraryEntityID(ctx context.Context, fqn string) (int64, bool, error)
	Close() error
}

// Opener acquires a fresh Accessor at the start of each slicing operation.
type Opener func(ctx context.Context) (Accessor, error)

// DefaultEntityCacheSize bounds the per-accessor entity cache.
const DefaultEntityCacheSize = 4096

// storeAccessor adapts a store.FactReader to Accessor and caches entity
// rows for the lifetime of the accessor.
type storeAccessor struct {
	facts    store.FactReader
	entities *lru.Cache[int64, *Entity]
	release  func() error
}

// NewStoreAccessor returns an Accessor over facts. cacheSize <= 0 selects
// DefaultEntityCacheSize.
func NewStoreAccessor(facts store.FactReader, cacheSize int) Accessor {
	if cacheSize <= 0 {
		cacheSize = DefaultEntityCacheSize
	}
	cache, _ := lru.New[int64, *Entity](cacheSize)
	return &storeAccessor{facts: facts, entities: cache}
}

// StoreOpener returns an Opener that hands each operation its own cached
// accessor over a shared store. Pooling of the underlying connections is
// left to database/sql.
func StoreOpener(facts store.FactReader, cacheSize int) Opener {
	return func(ctx context.Context) (Accessor, error) {
		return NewStoreAccessor(facts, cacheSize), nil
	}
}

// DatabaseOpener returns an Opener that opens a dedicated database
// connection for each operation and closes it with the accessor.
func DatabaseOpener(driver, dsn string, cacheSize int, opts ...store.Option) Opener {
	return func(ctx context.Context) (Accessor, error) {
		s, err := store.Open(driver, dsn, opts...)
		if err != nil {
			return nil, fmt.Errorf("open accessor: %w", err)
		}
		a := NewStoreAccessor(s, cacheSize).(*storeAccessor)
		a.release = s.Close
		return a, nil
	}
}

func (a *storeAccessor) Entity(ctx context.Context, id int64) (*Entity, error) {
	if e, ok := a.entities.Get(id); ok {
		return e, nil
	}
	row, err := a.facts.EntityByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("entity %d: %w", id, ErrEntityNotFound)
	}
	e := entityFromRow(row)
	a.entities.Add(id, e)
	return e, nil
}

func (a *storeAccessor) RelationTargetsBySource(ctx context.Context, rel RelationType, id int64) ([]int64, error) {
	return a.facts.RelationTargetsBySource(ctx, string(rel), id)
}

func (a *storeAccessor) RelationSourcesByTarget(ctx context.Context, rel RelationType, id int64) ([]int64, error) {
	return a.facts.RelationSourcesByTarget(ctx, string(rel), id)
}

func (a *storeAccessor) Contained(ctx context.Context, kind EntityKind, parentID int64) ([]*Entity, error) {
	rows, err := a.facts.ContainedByKind(ctx, string(kind), parentID)
	if err != nil {
		return nil, err
	}
	entities := make([]*Entity, 0, len(rows))
	for _, row := range rows {
		e := entityFromRow(row)
		a.entities.Add(e.ID, e)
		entities = append(entities, e)
	}
	return entities, nil
}

func (a *storeAccessor) Imports(ctx context.Context, fileID int64) ([]Import, error) {
	rows, err := a.facts.ImportsByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	imports := make([]Import, 0, len(rows))
	for _, row := range rows {
		imports = append(imports, Import{
			Static:   row.Static,
			OnDemand: row.OnDemand,
			EntityID: row.EntityID,
			Offset:   row.Offset,
			Length:   row.Length,
		})
	}
	return imports, nil
}

func (a *storeAccessor) LibraryEntityID(ctx context.Context, fqn string) (int64, bool, error) {
	return a.facts.LibraryEntityID(ctx, fqn)
}

func (a *storeAccessor) Close() error {
	a.entities.Purge()
	if a.release != nil {
		return a.release()
	}
	return nil
}

func entityFromRow(row *store.Entity) *Entity {
	return &Entity{
		ID:        row.ID,
		Kind:      EntityKind(row.Kind),
		FQN:       row.FQN,
		Modifiers: row.Modifiers,
		ProjectID: row.ProjectID,
		FileID:    row.FileID,
		Offset:    row.Offset,
		Length:    row.Length,
	}
}
