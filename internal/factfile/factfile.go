// Package factfile reads fact store fixtures written in YAML.
//
// A fixture lists projects, files, entities, relations and imports with
// explicit IDs, so relations can name their endpoints directly:
//
//	projects:
//	  - {id: 1, name: app}
//	  - {id: 2, name: jdk, kind: library}
//	files:
//	  - id: 10
//	    project: 1
//	    path: src/com/example/Foo.java
//	    content: |
//	      package com.example;
//	      ...
//	entities:
//	  - {id: 100, kind: CLASS, fqn: com.example.Foo, project: 1, file: 10, offset: 22, length: 80}
//	relations:
//	  - {kind: CONTAINS, source: 100, target: 101}
//	imports:
//	  - {file: 10, entity: 200, offset: 0, length: 21}
//
// A file's optional content is the original source text; WriteSources
// lays it out as a repository checkout. When a file has content, an entity
// or import may give a match string instead of offset and length: its span
// is the first occurrence of that text in the file.
package factfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jward/slicer"
	"github.com/jward/slicer/internal/store"
)

type Document struct {
	Projects  []Project  `yaml:"projects"`
	Files     []File     `yaml:"files"`
	Entities  []Entity   `yaml:"entities"`
	Relations []Relation `yaml:"relations"`
	Imports   []Import   `yaml:"imports"`
}

type Project struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type File struct {
	ID      int64  `yaml:"id"`
	Project int64  `yaml:"project"`
	Path    string `yaml:"path"`
	Hash    string `yaml:"hash"`
	Content string `yaml:"content"`
}

type Entity struct {
	ID        int64    `yaml:"id"`
	Kind      string   `yaml:"kind"`
	FQN       string   `yaml:"fqn"`
	Modifiers []string `yaml:"modifiers"`
	Project   int64    `yaml:"project"`
	File      *int64   `yaml:"file"`
	Offset    *int     `yaml:"offset"`
	Length    *int     `yaml:"length"`
	Match     string   `yaml:"match"`
}

type Relation struct {
	Kind    string `yaml:"kind"`
	Source  int64  `yaml:"source"`
	Target  int64  `yaml:"target"`
	Project *int64 `yaml:"project"`
	File    *int64 `yaml:"file"`
}

type Import struct {
	File     int64  `yaml:"file"`
	Entity   int64  `yaml:"entity"`
	Offset   int    `yaml:"offset"`
	Length   int    `yaml:"length"`
	Static   bool   `yaml:"static"`
	OnDemand bool   `yaml:"on_demand"`
	Match    string `yaml:"match"`
}

// Parse decodes and validates a fixture. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	if err := doc.resolveMatches(); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseFile parses the fixture at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open facts: %w", err)
	}
	defer f.Close()
	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Validate checks kinds and that every project, file and entity ID is
// unique and that files and entities refer to declared projects and files.
// Relation and import endpoints may dangle; the slicer tolerates that.
func (d *Document) Validate() error {
	var errs []error
	projects := make(map[int64]bool)
	for _, p := range d.Projects {
		if p.ID == 0 || projects[p.ID] {
			errs = append(errs, fmt.Errorf("project %q: missing or duplicate id %d", p.Name, p.ID))
		}
		projects[p.ID] = true
		switch p.Kind {
		case "", store.ProjectKindSource, store.ProjectKindLibrary:
		default:
			errs = append(errs, fmt.Errorf("project %d: unknown kind %q", p.ID, p.Kind))
		}
	}
	files := make(map[int64]bool)
	for _, f := range d.Files {
		if f.ID == 0 || files[f.ID] {
			errs = append(errs, fmt.Errorf("file %q: missing or duplicate id %d", f.Path, f.ID))
		}
		files[f.ID] = true
		if !projects[f.Project] {
			errs = append(errs, fmt.Errorf("file %d: unknown project %d", f.ID, f.Project))
		}
	}
	entities := make(map[int64]bool)
	for _, e := range d.Entities {
		if e.ID == 0 || entities[e.ID] {
			errs = append(errs, fmt.Errorf("entity %q: missing or duplicate id %d", e.FQN, e.ID))
		}
		entities[e.ID] = true
		if _, err := slicer.ParseEntityKind(e.Kind); err != nil {
			errs = append(errs, fmt.Errorf("entity %d: %w", e.ID, err))
		}
		if !projects[e.Project] {
			errs = append(errs, fmt.Errorf("entity %d: unknown project %d", e.ID, e.Project))
		}
		if e.File != nil && !files[*e.File] {
			errs = append(errs, fmt.Errorf("entity %d: unknown file %d", e.ID, *e.File))
		}
		if (e.Offset == nil) != (e.Length == nil) {
			errs = append(errs, fmt.Errorf("entity %d: offset and length must be set together", e.ID))
		}
	}
	for i, r := range d.Relations {
		if _, err := slicer.ParseRelationType(r.Kind); err != nil {
			errs = append(errs, fmt.Errorf("relation %d: %w", i, err))
		}
	}
	for i, imp := range d.Imports {
		if !files[imp.File] {
			errs = append(errs, fmt.Errorf("import %d: unknown file %d", i, imp.File))
		}
	}
	return errors.Join(errs...)
}

// resolveMatches fills in offset and length from match strings.
func (d *Document) resolveMatches() error {
	contents := make(map[int64]string, len(d.Files))
	for _, f := range d.Files {
		contents[f.ID] = f.Content
	}
	find := func(fileID int64, match string) (int, error) {
		i := strings.Index(contents[fileID], match)
		if i < 0 {
			return 0, fmt.Errorf("match %q not found in file %d", match, fileID)
		}
		return i, nil
	}
	var errs []error
	for i := range d.Entities {
		e := &d.Entities[i]
		if e.Match == "" {
			continue
		}
		if e.File == nil {
			errs = append(errs, fmt.Errorf("entity %d: match needs a file", e.ID))
			continue
		}
		off, err := find(*e.File, e.Match)
		if err != nil {
			errs = append(errs, fmt.Errorf("entity %d: %w", e.ID, err))
			continue
		}
		length := len(e.Match)
		e.Offset, e.Length = &off, &length
	}
	for i := range d.Imports {
		imp := &d.Imports[i]
		if imp.Match == "" {
			continue
		}
		off, err := find(imp.File, imp.Match)
		if err != nil {
			errs = append(errs, fmt.Errorf("import %d: %w", i, err))
			continue
		}
		imp.Offset, imp.Length = off, len(imp.Match)
	}
	return errors.Join(errs...)
}

// FactSet converts the document to store rows.
func (d *Document) FactSet() *store.FactSet {
	fs := &store.FactSet{}
	for _, p := range d.Projects {
		fs.Projects = append(fs.Projects, store.Project{ID: p.ID, Name: p.Name, Kind: p.Kind})
	}
	for _, f := range d.Files {
		hash := f.Hash
		if hash == "" && f.Content != "" {
			hash = store.ContentHash([]byte(f.Content))
		}
		fs.Files = append(fs.Files, store.File{ID: f.ID, ProjectID: f.Project, Path: f.Path, Hash: hash})
	}
	for _, e := range d.Entities {
		kind, _ := slicer.ParseEntityKind(e.Kind)
		fs.Entities = append(fs.Entities, store.Entity{
			ID:        e.ID,
			Kind:      string(kind),
			FQN:       e.FQN,
			Modifiers: e.Modifiers,
			ProjectID: e.Project,
			FileID:    e.File,
			Offset:    e.Offset,
			Length:    e.Length,
		})
	}
	for _, r := range d.Relations {
		rel, _ := slicer.ParseRelationType(r.Kind)
		fs.Relations = append(fs.Relations, store.Relation{
			Kind:      string(rel),
			SourceID:  r.Source,
			TargetID:  r.Target,
			ProjectID: r.Project,
			FileID:    r.File,
		})
	}
	for _, imp := range d.Imports {
		fs.Imports = append(fs.Imports, store.Import{
			FileID:   imp.File,
			Static:   imp.Static,
			OnDemand: imp.OnDemand,
			EntityID: imp.Entity,
			Offset:   imp.Offset,
			Length:   imp.Length,
		})
	}
	return fs
}

// WriteSources writes every file that carries content under dir at its
// path and returns how many were written.
func (d *Document) WriteSources(dir string) (int, error) {
	n := 0
	for _, f := range d.Files {
		if f.Content == "" {
			continue
		}
		path := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return n, fmt.Errorf("write sources: %w", err)
		}
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return n, fmt.Errorf("write sources: %w", err)
		}
		n++
	}
	return n, nil
}

// Content serves the fixture's file contents by file ID. Files without
// content are reported as unavailable.
func (d *Document) Content() slicer.ContentProvider {
	contents := make(map[int64][]byte, len(d.Files))
	for _, f := range d.Files {
		if f.Content != "" {
			contents[f.ID] = []byte(f.Content)
		}
	}
	return slicer.ContentFunc(func(ctx context.Context, fileID int64) ([]byte, error) {
		return contents[fileID], nil
	})
}
