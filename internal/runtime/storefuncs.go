package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/slicer/internal/store"
)

// Fact store host functions. Each returns plain Risor values (maps, lists,
// ints) so scripts never hold Go pointers into the store.

// entityToObject converts an entity row to a Risor map. Location fields are
// nil for entities without source.
func entityToObject(e *store.Entity) object.Object {
	mods := make([]object.Object, 0, len(e.Modifiers))
	for _, m := range e.Modifiers {
		mods = append(mods, object.NewString(m))
	}
	m := map[string]object.Object{
		"id":         object.NewInt(e.ID),
		"kind":       object.NewString(e.Kind),
		"fqn":        object.NewString(e.FQN),
		"modifiers":  object.NewList(mods),
		"project_id": object.NewInt(e.ProjectID),
		"file_id":    object.Nil,
		"offset":     object.Nil,
		"length":     object.Nil,
	}
	if e.FileID != nil {
		m["file_id"] = object.NewInt(*e.FileID)
	}
	if e.Offset != nil && e.Length != nil {
		m["offset"] = object.NewInt(int64(*e.Offset))
		m["length"] = object.NewInt(int64(*e.Length))
	}
	return object.NewMap(m)
}

func entitiesToList(es []*store.Entity) object.Object {
	items := make([]object.Object, 0, len(es))
	for _, e := range es {
		items = append(items, entityToObject(e))
	}
	return object.NewList(items)
}

func idsToList(ids []int64) object.Object {
	items := make([]object.Object, 0, len(ids))
	for _, id := range ids {
		items = append(items, object.NewInt(id))
	}
	return object.NewList(items)
}

// entity(id) → map or nil
func makeEntityFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("entity", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("entity", 1, len(args))
		}
		id, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("entity: %v", err)
		}
		e, err := s.EntityByID(ctx, id)
		if err != nil {
			return object.Errorf("entity: %v", err)
		}
		if e == nil {
			return object.Nil
		}
		return entityToObject(e)
	})
}

// entities_by_fqn(fqn) → list of maps
func makeEntitiesByFQNFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("entities_by_fqn", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("entities_by_fqn", 1, len(args))
		}
		fqn, err := toString(args[0])
		if err != nil {
			return object.Errorf("entities_by_fqn: %v", err)
		}
		es, err := s.EntitiesByFQN(ctx, fqn)
		if err != nil {
			return object.Errorf("entities_by_fqn: %v", err)
		}
		return entitiesToList(es)
	})
}

// entities_by_file(file_id) → list of maps
func makeEntitiesByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("entities_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("entities_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("entities_by_file: %v", err)
		}
		es, err := s.EntitiesByFile(ctx, fileID)
		if err != nil {
			return object.Errorf("entities_by_file: %v", err)
		}
		return entitiesToList(es)
	})
}

// library_entity(fqn) → id or nil
func makeLibraryEntityFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("library_entity", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("library_entity", 1, len(args))
		}
		fqn, err := toString(args[0])
		if err != nil {
			return object.Errorf("library_entity: %v", err)
		}
		id, ok, err := s.LibraryEntityID(ctx, fqn)
		if err != nil {
			return object.Errorf("library_entity: %v", err)
		}
		if !ok {
			return object.Nil
		}
		return object.NewInt(id)
	})
}

// makeRelationFn wraps one of the relation lookups.
//
// relation_targets(kind, source_id) → list of ids
// relation_sources(kind, target_id) → list of ids
func makeRelationFn(name string, lookup func(context.Context, string, int64) ([]int64, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError(name, 2, len(args))
		}
		kind, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: kind: %v", name, err)
		}
		id, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("%s: id: %v", name, err)
		}
		ids, err := lookup(ctx, strings.ToUpper(kind), id)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return idsToList(ids)
	})
}

// contained(kind, parent_id) → list of maps
func makeContainedFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("contained", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("contained", 2, len(args))
		}
		kind, err := toString(args[0])
		if err != nil {
			return object.Errorf("contained: kind: %v", err)
		}
		parent, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("contained: parent: %v", err)
		}
		es, err := s.ContainedByKind(ctx, strings.ToUpper(kind), parent)
		if err != nil {
			return object.Errorf("contained: %v", err)
		}
		return entitiesToList(es)
	})
}

// imports_by_file(file_id) → list of maps
func makeImportsByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("imports_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("imports_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("imports_by_file: %v", err)
		}
		imps, err := s.ImportsByFile(ctx, fileID)
		if err != nil {
			return object.Errorf("imports_by_file: %v", err)
		}
		items := make([]object.Object, 0, len(imps))
		for _, imp := range imps {
			items = append(items, object.NewMap(map[string]object.Object{
				"entity_id": object.NewInt(imp.EntityID),
				"static":    object.NewBool(imp.Static),
				"on_demand": object.NewBool(imp.OnDemand),
				"offset":    object.NewInt(int64(imp.Offset)),
				"length":    object.NewInt(int64(imp.Length)),
			}))
		}
		return object.NewList(items)
	})
}

// makeDBQueryFn creates a db_query bridge that executes arbitrary read-only SQL.
// Placeholders are written as ? for every driver. Returns a list of maps
// (column name → value).
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, s.Rebind(sqlStr), queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		var results []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case int32:
		return object.NewInt(int64(val))
	case float64:
		return object.NewFloat(val)
	case bool:
		return object.NewBool(val)
	case string:
		return object.NewString(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
