package store

import (
	"context"
	"fmt"
)

// LoadFacts inserts a whole FactSet within a single transaction. Explicit
// IDs in the set are preserved so that relations and imports can refer to
// entities by the IDs the fixture or extractor assigned.
//
// Insert order respects FK dependencies:
//  1. Projects
//  2. Files (depend on project_id)
//  3. Entities (depend on project_id, file_id)
//  4. Relations
//  5. Imports (depend on file_id)
func (s *Store) LoadFacts(ctx context.Context, facts *FactSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load facts: begin: %w", err)
	}
	defer tx.Rollback()

	for i := range facts.Projects {
		if _, err := s.insertProject(ctx, tx, &facts.Projects[i]); err != nil {
			return fmt.Errorf("load facts: %w", err)
		}
	}
	for i := range facts.Files {
		if _, err := s.insertFile(ctx, tx, &facts.Files[i]); err != nil {
			return fmt.Errorf("load facts: %w", err)
		}
	}
	for i := range facts.Entities {
		if _, err := s.insertEntity(ctx, tx, &facts.Entities[i]); err != nil {
			return fmt.Errorf("load facts: %w", err)
		}
	}
	for i := range facts.Relations {
		if _, err := s.insertRelation(ctx, tx, &facts.Relations[i]); err != nil {
			return fmt.Errorf("load facts: %w", err)
		}
	}
	for i := range facts.Imports {
		if _, err := s.insertImport(ctx, tx, &facts.Imports[i]); err != nil {
			return fmt.Errorf("load facts: %w", err)
		}
	}

	if s.driver == DriverPostgres {
		// Identity columns do not advance on explicit inserts.
		for _, table := range []string{"projects", "files", "entities", "relations", "imports"} {
			q := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)", table, table)
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("load facts: reset %s sequence: %w", table, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load facts: commit: %w", err)
	}
	return nil
}
