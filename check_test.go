package slicer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSyntax_Clean(t *testing.T) {
	t.Parallel()
	src := []byte("package p;\n\nclass A {\n    int x = 1;\n    void m() { x++; }\n}\n")
	issues, err := CheckSyntax(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheckSyntax_ReportsErrors(t *testing.T) {
	t.Parallel()
	src := []byte("package p;\n\nclass A {\n    int x = ;\n}\n")
	issues, err := CheckSyntax(context.Background(), src)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	lines := make([]int, len(issues))
	for i, is := range issues {
		lines[i] = is.Line
	}
	assert.Contains(t, lines, 4)
}

func TestSyntaxIssue_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "3:7: missing ;", SyntaxIssue{Line: 3, Column: 7, Missing: true, Node: ";"}.String())
	assert.Equal(t, "1:1: unexpected ERROR", SyntaxIssue{Line: 1, Column: 1, Node: "ERROR"}.String())
}

func TestReconstruct_WithSyntaxCheckStillEmits(t *testing.T) {
	t.Parallel()
	content := []byte("int x = ;")
	s := internalSlice(
		located(1, KindClass, "p.A", 1, 1, 0, len(content)),
		located(2, KindField, "p.A.x", 1, 1, 0, len(content)),
	)
	rec := NewReconstructor(staticContent(map[int64][]byte{1: content}), WithSyntaxCheck(true))

	files, err := rec.Reconstruct(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, string(files[0].Source), "int x = ;")
}
