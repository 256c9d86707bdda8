package main

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jward/slicer/internal/content"
)

var flagRepo string

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Upload repository files to the configured S3 bucket",
	Long:  "Copies every file of the fact store from a local repository checkout into the bucket configured under content.s3, so the s3 content provider can serve it.",
	Args:  cobra.NoArgs,
	RunE:  runMirror,
}

func init() {
	mirrorCmd.Flags().StringVar(&flagRepo, "repo", "", "repository checkout to read from (default: content.repo)")
}

func runMirror(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("mirror", err)
	}
	defer s.Close()

	root := flagRepo
	if root == "" {
		root = cfg.Content.Repo
	}
	repo, err := content.NewRepo(root, s)
	if err != nil {
		return outputError("mirror", err)
	}
	bucket, err := content.NewS3(contentConfig().S3, s)
	if err != nil {
		return outputError("mirror", err)
	}

	ctx := context.Background()
	files, err := s.Files(ctx)
	if err != nil {
		return outputError("mirror", err)
	}

	var (
		mu  sync.Mutex
		res = CLIMirror{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, f := range files {
		g.Go(func() error {
			b, err := repo.Content(gctx, f.ID)
			if err != nil {
				return err
			}
			if b == nil {
				mu.Lock()
				res.Missing = append(res.Missing, f.Path)
				mu.Unlock()
				return nil
			}
			if err := bucket.Put(gctx, f.Path, b); err != nil {
				return err
			}
			mu.Lock()
			res.Uploaded++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outputError("mirror", fmt.Errorf("mirroring %s: %w", root, err))
	}
	sort.Strings(res.Missing)
	logger.Info("mirrored repository", "uploaded", res.Uploaded, "missing", len(res.Missing))
	return outputResult(CLIResult{Command: "mirror", Results: res})
}
