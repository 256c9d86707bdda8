package slicer

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// SyntaxIssue locates one error or missing node in a parsed Java file.
// Line and Column are 1-based.
type SyntaxIssue struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Missing bool   `json:"missing"`
	Node    string `json:"node"`
}

func (i SyntaxIssue) String() string {
	if i.Missing {
		return fmt.Sprintf("%d:%d: missing %s", i.Line, i.Column, i.Node)
	}
	return fmt.Sprintf("%d:%d: unexpected %s", i.Line, i.Column, i.Node)
}

// CheckSyntax parses src as Java and reports every error and missing node.
// A nil result means src parsed cleanly.
func CheckSyntax(ctx context.Context, src []byte) ([]SyntaxIssue, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse java: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}
	var issues []SyntaxIssue
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsError() || n.IsMissing() {
			p := n.StartPoint()
			issues = append(issues, SyntaxIssue{
				Line:    int(p.Row) + 1,
				Column:  int(p.Column) + 1,
				Missing: n.IsMissing(),
				Node:    n.Type(),
			})
			if n.IsError() {
				continue
			}
		}
		if !n.HasError() {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.Child(i))
		}
	}
	return issues, nil
}
