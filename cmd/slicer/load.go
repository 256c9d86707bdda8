package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/slicer/internal/factfile"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the fact store tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return outputError("init", err)
		}
		defer s.Close()
		if err := s.Migrate(); err != nil {
			return outputError("init", err)
		}
		return outputResult(CLIResult{
			Command: "init",
			Results: CLIInit{Driver: s.Driver(), Database: cfg.Database.DSN},
		})
	},
}

var flagSources string

var loadCmd = &cobra.Command{
	Use:   "load <facts.yaml>...",
	Short: "Load YAML fact files into the fact store",
	Long:  "Parses and validates each fact file and loads it in one transaction. With --sources, file contents carried by the fact files are also written out as a repository checkout for the repo content provider.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&flagSources, "sources", "", "write file contents from the fact files under this directory")
}

func runLoad(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("load", err)
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return outputError("load", err)
	}

	ctx := context.Background()
	var loaded []CLILoad
	for _, path := range args {
		doc, err := factfile.ParseFile(path)
		if err != nil {
			return outputError("load", err)
		}
		if err := s.LoadFacts(ctx, doc.FactSet()); err != nil {
			return outputError("load", fmt.Errorf("%s: %w", path, err))
		}
		res := CLILoad{
			File:      path,
			Projects:  len(doc.Projects),
			Files:     len(doc.Files),
			Entities:  len(doc.Entities),
			Relations: len(doc.Relations),
			Imports:   len(doc.Imports),
		}
		if flagSources != "" {
			n, err := doc.WriteSources(flagSources)
			if err != nil {
				return outputError("load", err)
			}
			res.Sources = n
		}
		logger.Info("loaded facts", "file", path, "entities", res.Entities, "relations", res.Relations)
		loaded = append(loaded, res)
	}
	return outputResult(CLIResult{Command: "load", Results: loaded})
}
