package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/slicer"
	"github.com/jward/slicer/internal/store"
)

var flagReverse bool

var entityCmd = &cobra.Command{
	Use:   "entity <id>",
	Short: "Show one entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return outputError("entity", fmt.Errorf("invalid entity id %q", args[0]))
		}
		s, err := openStore()
		if err != nil {
			return outputError("entity", err)
		}
		defer s.Close()

		ctx := context.Background()
		e, err := s.EntityByID(ctx, id)
		if err != nil {
			return outputError("entity", err)
		}
		if e == nil {
			return outputResult(CLIResult{Command: "entity", Results: nil})
		}
		out, err := toCLIEntity(ctx, s, e)
		if err != nil {
			return outputError("entity", err)
		}
		return outputResult(CLIResult{Command: "entity", Results: out})
	},
}

var relationsCmd = &cobra.Command{
	Use:   "relations <kind> <id>",
	Short: "List the targets of an entity's relations",
	Long:  "Lists the targets of the entity's outgoing relations of the given kind (CONTAINS, USES, CALLS, EXTENDS, IMPLEMENTS). With --reverse, lists the sources of incoming relations instead.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := slicer.ParseRelationType(args[0])
		if err != nil {
			return outputError("relations", err)
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return outputError("relations", fmt.Errorf("invalid entity id %q", args[1]))
		}
		s, err := openStore()
		if err != nil {
			return outputError("relations", err)
		}
		defer s.Close()

		ctx := context.Background()
		var ids []int64
		if flagReverse {
			ids, err = s.RelationSourcesByTarget(ctx, string(kind), id)
		} else {
			ids, err = s.RelationTargetsBySource(ctx, string(kind), id)
		}
		if err != nil {
			return outputError("relations", err)
		}
		ents, err := s.EntitiesByID(ctx, ids)
		if err != nil {
			return outputError("relations", err)
		}
		results := make([]CLIEntity, 0, len(ents))
		for _, e := range ents {
			out, err := toCLIEntity(ctx, s, e)
			if err != nil {
				return outputError("relations", err)
			}
			results = append(results, out)
		}
		total := len(results)
		return outputResult(CLIResult{Command: "relations", Results: results, TotalCount: &total})
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List source files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return outputError("files", err)
		}
		defer s.Close()

		files, err := s.Files(context.Background())
		if err != nil {
			return outputError("files", err)
		}
		results := make([]CLIFile, len(files))
		for i, f := range files {
			results[i] = CLIFile{ID: f.ID, ProjectID: f.ProjectID, Path: f.Path}
		}
		total := len(results)
		return outputResult(CLIResult{Command: "files", Results: results, TotalCount: &total})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count the rows of each fact table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return outputError("stats", err)
		}
		defer s.Close()

		st, err := s.Stats(context.Background())
		if err != nil {
			return outputError("stats", err)
		}
		return outputResult(CLIResult{Command: "stats", Results: st})
	},
}

func init() {
	relationsCmd.Flags().BoolVar(&flagReverse, "reverse", false, "list sources of incoming relations")
}

func toCLIEntity(ctx context.Context, s *store.Store, e *store.Entity) (CLIEntity, error) {
	out := CLIEntity{
		ID:        e.ID,
		Kind:      e.Kind,
		FQN:       e.FQN,
		Modifiers: e.Modifiers,
		ProjectID: e.ProjectID,
		FileID:    e.FileID,
		Offset:    e.Offset,
		Length:    e.Length,
	}
	if e.FileID != nil {
		path, ok, err := s.FilePath(ctx, *e.FileID)
		if err != nil {
			return out, err
		}
		if ok {
			out.File = path
		}
	}
	return out, nil
}
