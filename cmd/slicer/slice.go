package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/slicer"
	"github.com/jward/slicer/internal/runtime"
	"github.com/jward/slicer/internal/store"
)

var (
	flagOutput      string
	flagSeedScript  string
	flagScriptsDir  string
	flagParams      []string
	flagTimeout     string
	flagCheckSyntax bool
	flagWorkers     int
)

var sliceCmd = &cobra.Command{
	Use:   "slice [entity-id...]",
	Short: "Slice the corpus from seed entities",
	Long:  "Computes the slice of the given seed entity IDs, plus any seeds selected by --seed-script, and optionally writes the reconstructed sources as a zip archive.",
	RunE:  runSlice,
}

var batchCmd = &cobra.Command{
	Use:   "batch <seed-file>",
	Short: "Slice many independent seed sets concurrently",
	Long:  "Reads one seed set per line (IDs separated by spaces or commas; blank lines and # comments are skipped) and slices them concurrently, each with its own database connection.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	sliceCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the reconstructed sources to this zip file")
	sliceCmd.Flags().StringVar(&flagSeedScript, "seed-script", "", "Risor script that selects seeds by calling seed()")
	sliceCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "directory for seed scripts and their imports")
	sliceCmd.Flags().StringArrayVar(&flagParams, "param", nil, "script global as name=value (repeatable)")
	sliceCmd.Flags().StringVar(&flagTimeout, "timeout", "", "abort slicing after this duration (e.g. 30s)")
	sliceCmd.Flags().BoolVar(&flagCheckSyntax, "check-syntax", false, "parse reconstructed files and warn on syntax errors")

	batchCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write one zip per seed set into this directory")
	batchCmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent slicing operations (default: number of CPUs)")
	batchCmd.Flags().StringVar(&flagTimeout, "timeout", "", "abort the whole batch after this duration")
	batchCmd.Flags().BoolVar(&flagCheckSyntax, "check-syntax", false, "parse reconstructed files and warn on syntax errors")
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if cfg.Slice.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Slice.Timeout)
	}
	return context.WithCancel(ctx)
}

func runSlice(cmd *cobra.Command, args []string) error {
	seeds, err := parseIDs(args)
	if err != nil {
		return outputError("slice", err)
	}

	s, err := openStore()
	if err != nil {
		return outputError("slice", err)
	}
	defer s.Close()

	ctx, cancel := withTimeout(context.Background())
	defer cancel()

	provider, err := newProvider(s)
	if err != nil {
		return outputError("slice", err)
	}

	if flagSeedScript != "" {
		params, err := parseParams(flagParams)
		if err != nil {
			return outputError("slice", err)
		}
		rt := runtime.NewRuntime(s, flagScriptsDir,
			runtime.WithContent(provider),
			runtime.WithLogger(logger),
		)
		scripted, err := rt.SelectSeeds(ctx, flagSeedScript, params)
		if err != nil {
			return outputError("slice", err)
		}
		seeds = append(seeds, scripted...)
	}
	if len(seeds) == 0 {
		return outputError("slice", fmt.Errorf("no seeds: pass entity IDs or --seed-script"))
	}

	sl, err := newSlicer(slicer.StoreOpener(s, cfg.Cache.Entities)).Slice(ctx, seeds)
	if err != nil {
		return outputError("slice", err)
	}

	res := sliceResult(seeds, sl)
	if flagOutput != "" {
		n, err := writeArchiveFile(ctx, newReconstructor(provider), sl, flagOutput)
		if err != nil {
			return outputError("slice", err)
		}
		res.Archive = flagOutput
		res.ArchiveFiles = n
	}
	return outputResult(CLIResult{Command: "slice", Results: res})
}

func runBatch(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return outputError("batch", err)
	}
	seedSets, err := readSeedSets(f)
	f.Close()
	if err != nil {
		return outputError("batch", fmt.Errorf("%s: %w", args[0], err))
	}

	ctx, cancel := withTimeout(context.Background())
	defer cancel()

	open := slicer.DatabaseOpener(cfg.Database.Driver, cfg.Database.DSN, cfg.Cache.Entities,
		store.WithMaxOpenConns(cfg.Database.MaxOpenConns),
		store.WithConnMaxIdleTime(cfg.Database.ConnMaxIdleTime),
	)
	slices, err := newSlicer(open).SliceAll(ctx, seedSets, cfg.Slice.Workers)
	if err != nil {
		return outputError("batch", err)
	}

	results := make([]CLISlice, len(slices))
	for i, sl := range slices {
		results[i] = sliceResult(seedSets[i], sl)
	}

	if flagOutput != "" {
		s, err := openStore()
		if err != nil {
			return outputError("batch", err)
		}
		defer s.Close()
		provider, err := newProvider(s)
		if err != nil {
			return outputError("batch", err)
		}
		if err := os.MkdirAll(flagOutput, 0o755); err != nil {
			return outputError("batch", err)
		}
		rec := newReconstructor(provider)
		for i, sl := range slices {
			path := filepath.Join(flagOutput, fmt.Sprintf("slice-%03d.zip", i+1))
			n, err := writeArchiveFile(ctx, rec, sl, path)
			if err != nil {
				return outputError("batch", err)
			}
			results[i].Archive = path
			results[i].ArchiveFiles = n
		}
	}

	total := len(results)
	return outputResult(CLIResult{Command: "batch", Results: results, TotalCount: &total})
}

func sliceResult(seeds []int64, sl *slicer.Slice) CLISlice {
	res := CLISlice{
		Seeds:    seeds,
		Summary:  sl.Summary(),
		Internal: []int64{},
		External: []int64{},
	}
	for _, e := range sl.InternalEntities() {
		res.Internal = append(res.Internal, e.ID)
	}
	for _, e := range sl.ExternalEntities() {
		res.External = append(res.External, e.ID)
	}
	return res
}

func writeArchiveFile(ctx context.Context, rec *slicer.Reconstructor, sl *slicer.Slice, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating archive: %w", err)
	}
	n, err := rec.WriteArchive(ctx, sl, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", path, err)
	}
	return n, nil
}

// parseIDs parses entity ID arguments. Each argument may itself hold
// several comma-separated IDs.
func parseIDs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid entity id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// readSeedSets reads one seed set per non-blank, non-comment line.
func readSeedSets(r io.Reader) ([][]int64, error) {
	var sets [][]int64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
		if text == "" {
			continue
		}
		ids, err := parseIDs(strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		sets = append(sets, ids)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}

// parseParams turns name=value pairs into script globals. Integer values
// are passed as ints.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: want name=value", p)
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			params[name] = n
			continue
		}
		params[name] = value
	}
	return params, nil
}
