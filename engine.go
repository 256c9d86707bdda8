package slicer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Slicer computes slices: starting from seed entities, it walks the fact
// store's containment, use, call and inheritance edges until every
// selected entity's dependencies are present.
type Slicer struct {
	open   Opener
	logger *slog.Logger
}

// Option configures a Slicer.
type Option func(*Slicer)

// WithLogger sets the logger used for traversal diagnostics and corpus
// integrity errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Slicer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Slicer. open is called once per slicing operation and the
// returned Accessor is closed when the operation ends.
func New(open Opener, opts ...Option) *Slicer {
	s := &Slicer{
		open:   open,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Slice computes the slice for seeds. Seeds that are parameters or local
// variables are ignored; an empty seed set yields an empty slice. Any fact
// store failure aborts the operation and no slice is returned.
func (s *Slicer) Slice(ctx context.Context, seeds []int64) (*Slice, error) {
	logger := s.logger.With("op", uuid.NewString())
	start := time.Now()

	db, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("slice: open accessor: %w", err)
	}
	defer db.Close()

	r := newRun(db, logger)
	if err := r.seed(ctx, seeds); err != nil {
		return nil, fmt.Errorf("slice: seed: %w", err)
	}
	if err := r.expand(ctx); err != nil {
		return nil, fmt.Errorf("slice: expand: %w", err)
	}
	for round := 1; ; round++ {
		added, err := r.repairHierarchy(ctx)
		if err != nil {
			return nil, fmt.Errorf("slice: type hierarchy: %w", err)
		}
		if added == 0 {
			break
		}
		logger.Debug("hierarchy repair reopened worklist", "round", round, "added", added)
		if err := r.expand(ctx); err != nil {
			return nil, fmt.Errorf("slice: expand: %w", err)
		}
	}
	if err := r.attachImports(ctx); err != nil {
		return nil, fmt.Errorf("slice: imports: %w", err)
	}

	sum := r.slice.Summary()
	logger.Info("slice complete",
		"seeds", len(seeds),
		"internal", sum.Internal,
		"external", sum.External,
		"files", sum.Files,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return r.slice, nil
}

// run is the state of one slicing operation.
type run struct {
	db      Accessor
	slice   *Slice
	queue   *worklist
	missing map[int64]bool // IDs the fact store has no entity for
	checked map[int64]bool // types whose hierarchy has been repaired
	logger  *slog.Logger
}

func newRun(db Accessor, logger *slog.Logger) *run {
	sl := NewSlice()
	sl.logger = logger
	return &run{
		db:      db,
		slice:   sl,
		queue:   newWorklist(sl.Contains, func(e *Entity) { sl.Add(e) }),
		missing: make(map[int64]bool),
		checked: make(map[int64]bool),
		logger:  logger,
	}
}

// fetch returns nil, nil for unknown IDs and remembers them.
func (r *run) fetch(ctx context.Context, id int64) (*Entity, error) {
	if r.missing[id] {
		return nil, nil
	}
	e, err := r.db.Entity(ctx, id)
	if errors.Is(err, ErrEntityNotFound) {
		r.missing[id] = true
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// seed admits the seeds and every entity beneath them along CONTAINS edges.
// Each admitted entity's project becomes internal.
func (r *run) seed(ctx context.Context, seeds []int64) error {
	todo := slices.Clone(seeds)
	for i := 0; i < len(todo); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := todo[i]
		if r.slice.Contains(id) {
			continue
		}
		e, err := r.fetch(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			r.logger.Error("seed entity not found", "entity", id)
			continue
		}
		if e.Kind == KindParameter || e.Kind == KindLocalVariable {
			r.logger.Debug("ignoring seed", "entity", id, "kind", e.Kind)
			continue
		}
		r.slice.AddProject(e.ProjectID)
		r.queue.push(e)

		children, err := r.db.RelationTargetsBySource(ctx, RelContains, id)
		if err != nil {
			return fmt.Errorf("children of %d: %w", id, err)
		}
		todo = append(todo, children...)
	}
	r.logger.Debug("seeded", "seeds", len(seeds), "admitted", r.slice.Len())
	return nil
}

// expand drains the worklist.
func (r *run) expand(ctx context.Context) error {
	for {
		e, ok := r.queue.pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.expandEntity(ctx, e); err != nil {
			return fmt.Errorf("%s: %w", e, err)
		}
	}
}

func (r *run) expandEntity(ctx context.Context, e *Entity) error {
	switch e.Kind {
	case KindField, KindEnumConstant, KindInitializer, KindMethod:
		if err := r.follow(ctx, RelContains, e.ID, true); err != nil {
			return err
		}
		if err := r.follow(ctx, RelUses, e.ID, false); err != nil {
			return err
		}
		return r.follow(ctx, RelCalls, e.ID, false)

	case KindClass, KindInterface, KindEnum:
		if err := r.follow(ctx, RelContains, e.ID, true); err != nil {
			return err
		}
		if err := r.follow(ctx, RelCalls, e.ID, false); err != nil {
			return err
		}
		if !r.slice.IsInternal(e.ID) {
			return nil
		}
		for _, kind := range []EntityKind{KindInitializer, KindConstructor} {
			children, err := r.db.Contained(ctx, kind, e.ID)
			if err != nil {
				return fmt.Errorf("contained %s: %w", kind, err)
			}
			for _, c := range children {
				r.queue.push(c)
			}
		}
	}
	return nil
}

// follow admits the entities on the other end of rel edges from id. With
// reverse set it follows edges backwards (id is the target).
func (r *run) follow(ctx context.Context, rel RelationType, id int64, reverse bool) error {
	var ids []int64
	var err error
	if reverse {
		ids, err = r.db.RelationSourcesByTarget(ctx, rel, id)
	} else {
		ids, err = r.db.RelationTargetsBySource(ctx, rel, id)
	}
	if err != nil {
		return fmt.Errorf("%s edges of %d: %w", rel, id, err)
	}
	for _, other := range ids {
		if r.slice.Contains(other) {
			continue
		}
		e, err := r.fetch(ctx, other)
		if err != nil {
			return err
		}
		if e == nil {
			r.logger.Error("dangling relation", "relation", rel, "entity", id, "missing", other)
			continue
		}
		r.queue.push(e)
	}
	return nil
}

// attachImports loads the import list of every sliced file that lacks one.
func (r *run) attachImports(ctx context.Context) error {
	for _, f := range r.slice.Files() {
		if f.HasImports() {
			continue
		}
		imports, err := r.db.Imports(ctx, f.FileID)
		if err != nil {
			return fmt.Errorf("file %d: %w", f.FileID, err)
		}
		f.SetImports(imports)
	}
	return nil
}
