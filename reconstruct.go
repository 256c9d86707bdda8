package slicer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ContentProvider returns the original bytes of a source file. Content
// returns nil, nil when the file is not available (library sources are
// usually not mirrored).
type ContentProvider interface {
	Content(ctx context.Context, fileID int64) ([]byte, error)
}

// ContentFunc adapts a function to ContentProvider.
type ContentFunc func(ctx context.Context, fileID int64) ([]byte, error)

func (f ContentFunc) Content(ctx context.Context, fileID int64) ([]byte, error) {
	return f(ctx, fileID)
}

// SourceFile is one reconstructed compilation unit.
type SourceFile struct {
	FileID int64  `json:"file_id"`
	Path   string `json:"path"`
	Source []byte `json:"-"`
}

// Reconstructor rebuilds Java source text for the files of a slice from the
// original file bytes.
type Reconstructor struct {
	content     ContentProvider
	logger      *slog.Logger
	checkSyntax bool
}

// ReconstructOption configures a Reconstructor.
type ReconstructOption func(*Reconstructor)

// WithReconstructLogger sets the logger for skipped files and syntax warnings.
func WithReconstructLogger(logger *slog.Logger) ReconstructOption {
	return func(r *Reconstructor) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSyntaxCheck parses each reconstructed file and logs a warning for
// files that do not parse cleanly. Such files are still emitted.
func WithSyntaxCheck(enabled bool) ReconstructOption {
	return func(r *Reconstructor) {
		r.checkSyntax = enabled
	}
}

// NewReconstructor creates a Reconstructor that reads file bytes from content.
func NewReconstructor(content ContentProvider, opts ...ReconstructOption) *Reconstructor {
	r := &Reconstructor{
		content: content,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconstruct rebuilds every sliced file. A file whose content cannot be
// fetched or whose spans do not fit the content is logged and left out.
// Only context cancellation is returned as an error.
func (r *Reconstructor) Reconstruct(ctx context.Context, s *Slice) ([]SourceFile, error) {
	var out []SourceFile
	seen := make(map[string]int64)
	for _, f := range s.Files() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := r.ReconstructFile(ctx, s, f)
		if err != nil {
			r.logger.Error("reconstruct file", "file", f.FileID, "err", err)
			continue
		}
		if prev, dup := seen[src.Path]; dup {
			r.logger.Warn("duplicate archive path", "path", src.Path, "file", f.FileID, "kept", prev)
			continue
		}
		seen[src.Path] = f.FileID
		if r.checkSyntax {
			issues, err := CheckSyntax(ctx, src.Source)
			if err != nil {
				r.logger.Warn("syntax check failed", "path", src.Path, "err", err)
			} else if len(issues) > 0 {
				r.logger.Warn("reconstructed file has syntax errors", "path", src.Path, "first", issues[0].String(), "count", len(issues))
			}
		}
		out = append(out, *src)
	}
	return out, nil
}

// ReconstructFile fetches f's content and renders it.
func (r *Reconstructor) ReconstructFile(ctx context.Context, s *Slice, f *SlicedFile) (*SourceFile, error) {
	content, err := r.content.Content(ctx, f.FileID)
	if err != nil {
		return nil, fmt.Errorf("fetch content: %w", err)
	}
	if content == nil {
		return nil, ErrNoContent
	}
	return r.render(s, f, content)
}

func (r *Reconstructor) render(s *Slice, f *SlicedFile, content []byte) (*SourceFile, error) {
	entities := f.Entities()
	if len(entities) == 0 {
		return nil, fmt.Errorf("file %d has no entities", f.FileID)
	}
	fqn := entities[0].FQN
	if i := strings.IndexByte(fqn, '$'); i >= 0 {
		fqn = fqn[:i]
	}

	var b bytes.Buffer
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		fmt.Fprintf(&b, "package %s;\n\n", fqn[:i])
	}
	for _, imp := range f.Imports() {
		if !s.Contains(imp.EntityID) {
			continue
		}
		text, err := span(content, imp.Offset, imp.Offset+imp.Length)
		if err != nil {
			return nil, fmt.Errorf("import of %d: %w", imp.EntityID, err)
		}
		b.Write(text)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	var open []int
	for _, e := range entities {
		start, end, ok := e.Span()
		if !ok {
			r.logger.Warn("entity has no source span", "entity", e.ID, "file", f.FileID)
			continue
		}
		for len(open) > 0 && start >= open[len(open)-1] {
			b.WriteString("}\n")
			open = open[:len(open)-1]
		}
		if e.Kind.IsDeclaredType() {
			b.WriteString(typeHeader(s, e))
			b.WriteString(" {\n")
			open = append(open, end)
			continue
		}
		text, err := span(content, start, end)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e, err)
		}
		b.Write(text)
		b.WriteByte('\n')
	}
	for range open {
		b.WriteString("}\n")
	}

	return &SourceFile{
		FileID: f.FileID,
		Path:   strings.ReplaceAll(fqn, ".", "/") + ".java",
		Source: b.Bytes(),
	}, nil
}

func span(content []byte, start, end int) ([]byte, error) {
	if start < 0 || end < start || end > len(content) {
		return nil, fmt.Errorf("[%d,%d) of %d bytes: %w", start, end, len(content), ErrOutOfRange)
	}
	return content[start:end], nil
}

// typeHeader synthesizes a declaration line for a declared type, naming
// only the supertypes that are present in the slice.
func typeHeader(s *Slice, e *Entity) string {
	var b strings.Builder
	for _, m := range e.Modifiers {
		b.WriteString(m)
		b.WriteByte(' ')
	}
	b.WriteString(e.Kind.Keyword())
	b.WriteByte(' ')
	b.WriteString(e.SimpleName())

	t := s.Type(e.ID)
	if t == nil {
		return b.String()
	}
	var ifaces []string
	for _, id := range t.SuperInterfaces {
		if other := s.Get(id); other != nil {
			ifaces = append(ifaces, sourceName(other.FQN))
		}
	}

	switch e.Kind {
	case KindClass:
		if sup := s.Get(t.Superclass); sup != nil {
			if st := s.Type(t.Superclass); st != nil && !st.IsRoot() {
				b.WriteString(" extends ")
				b.WriteString(sourceName(sup.FQN))
			}
		}
		if len(ifaces) > 0 {
			b.WriteString(" implements ")
			b.WriteString(strings.Join(ifaces, ", "))
		}
	case KindInterface:
		if len(ifaces) > 0 {
			b.WriteString(" extends ")
			b.WriteString(strings.Join(ifaces, ", "))
		}
	case KindEnum:
		if len(ifaces) > 0 {
			b.WriteString(" implements ")
			b.WriteString(strings.Join(ifaces, ", "))
		}
	}
	return b.String()
}

// sourceName turns a binary nested-type name into its source form.
func sourceName(fqn string) string {
	return strings.ReplaceAll(fqn, "$", ".")
}
