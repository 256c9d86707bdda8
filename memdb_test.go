package slicer

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// memDB is an in-memory Accessor for engine tests.
type memDB struct {
	mu        sync.Mutex
	entities  map[int64]*Entity
	relations []memRelation
	imports   map[int64][]Import
	failOn    map[int64]error // Entity(id) fails with this error
	opened    int
	closed    int
}

type memRelation struct {
	kind   RelationType
	source int64
	target int64
}

func newMemDB() *memDB {
	return &memDB{
		entities: make(map[int64]*Entity),
		imports:  make(map[int64][]Import),
		failOn:   make(map[int64]error),
	}
}

// add registers an entity without a source location.
func (m *memDB) add(id int64, kind EntityKind, fqn string, project int64) *Entity {
	e := &Entity{ID: id, Kind: kind, FQN: fqn, ProjectID: project}
	m.entities[id] = e
	return e
}

// addAt registers an entity located at [offset, offset+length) of file.
func (m *memDB) addAt(id int64, kind EntityKind, fqn string, project, file int64, offset, length int) *Entity {
	e := m.add(id, kind, fqn, project)
	e.FileID = &file
	e.Offset = &offset
	e.Length = &length
	return e
}

func (m *memDB) rel(kind RelationType, source, target int64) {
	m.relations = append(m.relations, memRelation{kind: kind, source: source, target: target})
}

func (m *memDB) opener() Opener {
	return func(ctx context.Context) (Accessor, error) {
		m.mu.Lock()
		m.opened++
		m.mu.Unlock()
		return m, nil
	}
}

func (m *memDB) Entity(ctx context.Context, id int64) (*Entity, error) {
	if err := m.failOn[id]; err != nil {
		return nil, err
	}
	e, ok := m.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, ErrEntityNotFound)
	}
	return e, nil
}

func (m *memDB) RelationTargetsBySource(ctx context.Context, rel RelationType, id int64) ([]int64, error) {
	var ids []int64
	for _, r := range m.relations {
		if r.kind == rel && r.source == id {
			ids = append(ids, r.target)
		}
	}
	return ids, nil
}

func (m *memDB) RelationSourcesByTarget(ctx context.Context, rel RelationType, id int64) ([]int64, error) {
	var ids []int64
	for _, r := range m.relations {
		if r.kind == rel && r.target == id {
			ids = append(ids, r.source)
		}
	}
	return ids, nil
}

func (m *memDB) Contained(ctx context.Context, kind EntityKind, parentID int64) ([]*Entity, error) {
	var out []*Entity
	for _, r := range m.relations {
		if r.kind != RelContains || r.source != parentID {
			continue
		}
		if e, ok := m.entities[r.target]; ok && e.Kind == kind {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *Entity) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *memDB) Imports(ctx context.Context, fileID int64) ([]Import, error) {
	return m.imports[fileID], nil
}

func (m *memDB) LibraryEntityID(ctx context.Context, fqn string) (int64, bool, error) {
	for _, e := range m.entities {
		if e.FQN == fqn {
			return e.ID, true, nil
		}
	}
	return 0, false, nil
}

func (m *memDB) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	return nil
}

func ids(es []*Entity) []int64 {
	out := make([]int64, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}
