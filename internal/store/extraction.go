package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// --- Project operations ---

func (s *Store) InsertProject(ctx context.Context, p *Project) (int64, error) {
	return s.insertProject(ctx, s.db, p)
}

func (s *Store) insertProject(ctx context.Context, ex execer, p *Project) (int64, error) {
	kind := p.Kind
	if kind == "" {
		kind = ProjectKindSource
	}
	id, err := s.insertRow(ctx, ex, "projects", p.ID, []string{"name", "kind"}, []any{p.Name, kind})
	if err != nil {
		return 0, fmt.Errorf("insert project %q: %w", p.Name, err)
	}
	p.ID = id
	p.Kind = kind
	return id, nil
}

func (s *Store) ProjectByID(ctx context.Context, id int64) (*Project, error) {
	p := &Project{}
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT id, name, kind FROM projects WHERE id = ?"), id).
		Scan(&p.ID, &p.Name, &p.Kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project by id: %w", err)
	}
	return p, nil
}

// --- File operations ---

func (s *Store) InsertFile(ctx context.Context, f *File) (int64, error) {
	return s.insertFile(ctx, s.db, f)
}

func (s *Store) insertFile(ctx context.Context, ex execer, f *File) (int64, error) {
	id, err := s.insertRow(ctx, ex, "files", f.ID,
		[]string{"project_id", "path", "hash"},
		[]any{f.ProjectID, f.Path, f.Hash},
	)
	if err != nil {
		return 0, fmt.Errorf("insert file %q: %w", f.Path, err)
	}
	f.ID = id
	return id, nil
}

func (s *Store) FileByID(ctx context.Context, id int64) (*File, error) {
	f := &File{}
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT id, project_id, path, hash FROM files WHERE id = ?"), id).
		Scan(&f.ID, &f.ProjectID, &f.Path, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	f.Hash = hash.String
	return f, nil
}

// FilePath returns the repository-relative path of a file. The boolean is
// false when no such file exists.
func (s *Store) FilePath(ctx context.Context, fileID int64) (string, bool, error) {
	f, err := s.FileByID(ctx, fileID)
	if err != nil || f == nil {
		return "", false, err
	}
	return f.Path, true, nil
}

func (s *Store) Files(ctx context.Context) ([]*File, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, project_id, path, hash FROM files ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		var hash sql.NullString
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Path, &hash); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Hash = hash.String
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Entity operations ---

func (s *Store) InsertEntity(ctx context.Context, e *Entity) (int64, error) {
	return s.insertEntity(ctx, s.db, e)
}

func (s *Store) insertEntity(ctx context.Context, ex execer, e *Entity) (int64, error) {
	id, err := s.insertRow(ctx, ex, "entities", e.ID,
		[]string{"kind", "fqn", "modifiers", "project_id", "file_id", "start_offset", "length"},
		[]any{e.Kind, e.FQN, marshalModifiers(e.Modifiers), e.ProjectID, nullInt64(e.FileID), nullInt(e.Offset), nullInt(e.Length)},
	)
	if err != nil {
		return 0, fmt.Errorf("insert entity %q: %w", e.FQN, err)
	}
	e.ID = id
	return id, nil
}

// EntityCols is the column list for entity queries.
const EntityCols = `id, kind, fqn, modifiers, project_id, file_id, start_offset, length`

func scanEntity(scanner interface{ Scan(...any) error }) (*Entity, error) {
	e := &Entity{}
	var mods sql.NullString
	if err := scanner.Scan(&e.ID, &e.Kind, &e.FQN, &mods, &e.ProjectID, &e.FileID, &e.Offset, &e.Length); err != nil {
		return nil, err
	}
	e.Modifiers = unmarshalModifiers(mods.String)
	return e, nil
}

func (s *Store) queryEntities(ctx context.Context, query string, args ...any) ([]*Entity, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entities []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// EntityByID returns nil, nil when no entity has the given id.
func (s *Store) EntityByID(ctx context.Context, id int64) (*Entity, error) {
	e, err := scanEntity(s.db.QueryRowContext(ctx, s.rebind("SELECT "+EntityCols+" FROM entities WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entity by id: %w", err)
	}
	return e, nil
}

func (s *Store) EntitiesByID(ctx context.Context, ids []int64) ([]*Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	entities, err := s.queryEntities(ctx,
		"SELECT "+EntityCols+" FROM entities WHERE id IN ("+placeholderList(len(ids))+") ORDER BY id",
		int64sToArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("entities by id: %w", err)
	}
	return entities, nil
}

func (s *Store) EntitiesByFQN(ctx context.Context, fqn string) ([]*Entity, error) {
	entities, err := s.queryEntities(ctx, "SELECT "+EntityCols+" FROM entities WHERE fqn = ? ORDER BY id", fqn)
	if err != nil {
		return nil, fmt.Errorf("entities by fqn: %w", err)
	}
	return entities, nil
}

func (s *Store) EntitiesByFile(ctx context.Context, fileID int64) ([]*Entity, error) {
	entities, err := s.queryEntities(ctx, "SELECT "+EntityCols+" FROM entities WHERE file_id = ? ORDER BY start_offset, id", fileID)
	if err != nil {
		return nil, fmt.Errorf("entities by file: %w", err)
	}
	return entities, nil
}

// ContainedByKind returns the entities of the given kind that parentID
// directly CONTAINS.
func (s *Store) ContainedByKind(ctx context.Context, kind string, parentID int64) ([]*Entity, error) {
	entities, err := s.queryEntities(ctx,
		`SELECT e.id, e.kind, e.fqn, e.modifiers, e.project_id, e.file_id, e.start_offset, e.length
		 FROM relations r JOIN entities e ON e.id = r.target_id
		 WHERE r.kind = 'CONTAINS' AND r.source_id = ? AND e.kind = ?
		 ORDER BY e.id`,
		parentID, kind)
	if err != nil {
		return nil, fmt.Errorf("contained by kind: %w", err)
	}
	return entities, nil
}

// LibraryEntityID returns the id of an entity with the given FQN that
// belongs to a library project.
func (s *Store) LibraryEntityID(ctx context.Context, fqn string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT e.id FROM entities e JOIN projects p ON p.id = e.project_id
		 WHERE e.fqn = ? AND p.kind = ? ORDER BY e.id LIMIT 1`),
		fqn, ProjectKindLibrary).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("library entity id: %w", err)
	}
	return id, true, nil
}

// --- Relation operations ---

func (s *Store) InsertRelation(ctx context.Context, r *Relation) (int64, error) {
	return s.insertRelation(ctx, s.db, r)
}

func (s *Store) insertRelation(ctx context.Context, ex execer, r *Relation) (int64, error) {
	id, err := s.insertRow(ctx, ex, "relations", r.ID,
		[]string{"kind", "source_id", "target_id", "project_id", "file_id"},
		[]any{r.Kind, r.SourceID, r.TargetID, nullInt64(r.ProjectID), nullInt64(r.FileID)},
	)
	if err != nil {
		return 0, fmt.Errorf("insert relation %s %d->%d: %w", r.Kind, r.SourceID, r.TargetID, err)
	}
	r.ID = id
	return id, nil
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RelationTargetsBySource returns the targets of all relations of the given
// kind leaving sourceID, in insertion order.
func (s *Store) RelationTargetsBySource(ctx context.Context, kind string, sourceID int64) ([]int64, error) {
	ids, err := s.queryIDs(ctx, "SELECT target_id FROM relations WHERE kind = ? AND source_id = ? ORDER BY id", kind, sourceID)
	if err != nil {
		return nil, fmt.Errorf("relation targets by source: %w", err)
	}
	return ids, nil
}

// RelationSourcesByTarget returns the sources of all relations of the given
// kind entering targetID, in insertion order.
func (s *Store) RelationSourcesByTarget(ctx context.Context, kind string, targetID int64) ([]int64, error) {
	ids, err := s.queryIDs(ctx, "SELECT source_id FROM relations WHERE kind = ? AND target_id = ? ORDER BY id", kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("relation sources by target: %w", err)
	}
	return ids, nil
}

// --- Import operations ---

func (s *Store) InsertImport(ctx context.Context, imp *Import) (int64, error) {
	return s.insertImport(ctx, s.db, imp)
}

func (s *Store) insertImport(ctx context.Context, ex execer, imp *Import) (int64, error) {
	id, err := s.insertRow(ctx, ex, "imports", imp.ID,
		[]string{"file_id", "is_static", "on_demand", "entity_id", "start_offset", "length"},
		[]any{imp.FileID, imp.Static, imp.OnDemand, imp.EntityID, imp.Offset, imp.Length},
	)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}
	imp.ID = id
	return id, nil
}

// ImportsByFile returns a file's imports in source order.
func (s *Store) ImportsByFile(ctx context.Context, fileID int64) ([]*Import, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, file_id, is_static, on_demand, entity_id, start_offset, length
		 FROM imports WHERE file_id = ? ORDER BY start_offset, id`), fileID)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()
	var imports []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Static, &imp.OnDemand, &imp.EntityID, &imp.Offset, &imp.Length); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// --- Statistics ---

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	counts := []struct {
		table string
		dst   *int
	}{
		{"projects", &st.Projects},
		{"files", &st.Files},
		{"entities", &st.Entities},
		{"relations", &st.Relations},
		{"imports", &st.Imports},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats %s: %w", c.table, err)
		}
	}
	return st, nil
}
