package store

import "context"

// FactReader is the read surface of the fact store used by the slicing
// accessor, the content providers and the scripting runtime.
type FactReader interface {
	EntityByID(ctx context.Context, id int64) (*Entity, error)
	EntitiesByFQN(ctx context.Context, fqn string) ([]*Entity, error)
	ContainedByKind(ctx context.Context, kind string, parentID int64) ([]*Entity, error)
	LibraryEntityID(ctx context.Context, fqn string) (int64, bool, error)
	RelationTargetsBySource(ctx context.Context, kind string, sourceID int64) ([]int64, error)
	RelationSourcesByTarget(ctx context.Context, kind string, targetID int64) ([]int64, error)
	ImportsByFile(ctx context.Context, fileID int64) ([]*Import, error)
	FilePath(ctx context.Context, fileID int64) (string, bool, error)
}

// Compile-time check: *Store satisfies FactReader.
var _ FactReader = (*Store)(nil)
