package slicer

import (
	"context"
	"log/slog"
	"slices"
	"sort"
)

// SlicedFile groups the sliceable internal entities of one source file,
// ordered by offset.
type SlicedFile struct {
	FileID int64

	entities      []*Entity
	imports       []Import
	importsLoaded bool
}

// entityBefore orders entities by offset. Entities without an offset sort
// last; at equal offsets the enclosing (longer) entity comes first.
func entityBefore(a, b *Entity) bool {
	switch {
	case a.Offset != nil && b.Offset != nil:
		if *a.Offset != *b.Offset {
			return *a.Offset < *b.Offset
		}
		la, lb := 0, 0
		if a.Length != nil {
			la = *a.Length
		}
		if b.Length != nil {
			lb = *b.Length
		}
		if la != lb {
			return la > lb
		}
	case a.Offset != nil:
		return true
	case b.Offset != nil:
		return false
	}
	return a.ID < b.ID
}

func (f *SlicedFile) add(e *Entity) {
	i := sort.Search(len(f.entities), func(i int) bool { return entityBefore(e, f.entities[i]) })
	f.entities = slices.Insert(f.entities, i, e)
}

// Entities returns the file's entities in offset order.
func (f *SlicedFile) Entities() []*Entity {
	return slices.Clone(f.entities)
}

// Imports returns the file's import records, or nil before they are loaded.
func (f *SlicedFile) Imports() []Import {
	return f.imports
}

// HasImports reports whether the import list has been populated.
func (f *SlicedFile) HasImports() bool {
	return f.importsLoaded
}

// SetImports attaches the file's import records.
func (f *SlicedFile) SetImports(imports []Import) {
	f.imports = imports
	f.importsLoaded = true
}

// Slice is the result of one slicing operation: the entities selected,
// partitioned into internal (seed projects) and external (libraries), the
// per-file grouping of internal entities, and the type hierarchy model.
type Slice struct {
	projects map[int64]bool
	internal map[int64]*Entity
	external map[int64]*Entity
	files    map[int64]*SlicedFile
	types    map[int64]*ModeledType
	logger   *slog.Logger
}

// NewSlice returns an empty slice.
func NewSlice() *Slice {
	return &Slice{
		projects: make(map[int64]bool),
		internal: make(map[int64]*Entity),
		external: make(map[int64]*Entity),
		files:    make(map[int64]*SlicedFile),
		types:    make(map[int64]*ModeledType),
		logger:   slog.New(slog.DiscardHandler),
	}
}

// AddProject marks a project as internal. Entities of that project already
// classified as external move to the internal set.
func (s *Slice) AddProject(projectID int64) {
	if s.projects[projectID] {
		return
	}
	s.projects[projectID] = true
	var moved []*Entity
	for id, e := range s.external {
		if e.ProjectID == projectID {
			moved = append(moved, e)
			delete(s.external, id)
		}
	}
	for _, e := range moved {
		s.addInternal(e)
	}
}

// HasProject reports whether projectID contributes internal entities.
func (s *Slice) HasProject(projectID int64) bool {
	return s.projects[projectID]
}

// Projects returns the internal project IDs in ascending order.
func (s *Slice) Projects() []int64 {
	ids := make([]int64, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Add classifies e as internal or external by its project. Sliceable
// internal entities are also grouped into their file. Add reports false
// when e was already present.
func (s *Slice) Add(e *Entity) bool {
	if s.Contains(e.ID) {
		return false
	}
	if s.projects[e.ProjectID] {
		s.addInternal(e)
	} else {
		s.external[e.ID] = e
	}
	return true
}

func (s *Slice) addInternal(e *Entity) {
	s.internal[e.ID] = e
	if !e.Kind.Sliceable() || e.FileID == nil {
		return
	}
	f := s.files[*e.FileID]
	if f == nil {
		f = &SlicedFile{FileID: *e.FileID}
		s.files[*e.FileID] = f
	}
	f.add(e)
}

func (s *Slice) Contains(id int64) bool {
	return s.IsInternal(id) || s.IsExternal(id)
}

func (s *Slice) IsInternal(id int64) bool {
	_, ok := s.internal[id]
	return ok
}

func (s *Slice) IsExternal(id int64) bool {
	_, ok := s.external[id]
	return ok
}

// Get returns the entity with the given ID, or nil.
func (s *Slice) Get(id int64) *Entity {
	if e, ok := s.internal[id]; ok {
		return e
	}
	return s.external[id]
}

// AddType memoizes a resolved type node.
func (s *Slice) AddType(t *ModeledType) {
	s.types[t.EntityID] = t
}

// Type returns the memoized type node for id, or nil.
func (s *Slice) Type(id int64) *ModeledType {
	return s.types[id]
}

// Len returns the number of entities in the slice.
func (s *Slice) Len() int {
	return len(s.internal) + len(s.external)
}

// InternalEntities returns the internal entities ordered by ID.
func (s *Slice) InternalEntities() []*Entity {
	return sortedEntities(s.internal)
}

// ExternalEntities returns the external entities ordered by ID.
func (s *Slice) ExternalEntities() []*Entity {
	return sortedEntities(s.external)
}

// IDs returns every entity ID in the slice in ascending order.
func (s *Slice) IDs() []int64 {
	ids := make([]int64, 0, s.Len())
	for id := range s.internal {
		ids = append(ids, id)
	}
	for id := range s.external {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Files returns the sliced files ordered by file ID.
func (s *Slice) Files() []*SlicedFile {
	files := make([]*SlicedFile, 0, len(s.files))
	for _, f := range s.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].FileID < files[j].FileID })
	return files
}

// File returns the sliced file with the given ID, or nil.
func (s *Slice) File(fileID int64) *SlicedFile {
	return s.files[fileID]
}

// ToArchive reconstructs every sliced file from content and returns the
// zip archive bytes.
func (s *Slice) ToArchive(ctx context.Context, content ContentProvider) ([]byte, error) {
	return NewReconstructor(content, WithReconstructLogger(s.logger)).Archive(ctx, s)
}

// Summary counts the slice's contents.
type Summary struct {
	Projects int `json:"projects"`
	Internal int `json:"internal"`
	External int `json:"external"`
	Files    int `json:"files"`
	Types    int `json:"types"`
}

func (s *Slice) Summary() Summary {
	return Summary{
		Projects: len(s.projects),
		Internal: len(s.internal),
		External: len(s.external),
		Files:    len(s.files),
		Types:    len(s.types),
	}
}

func sortedEntities(m map[int64]*Entity) []*Entity {
	out := make([]*Entity, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
