package main_test

import (
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the slicer binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "slicer"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "slicer")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot returns the root of the project by walking up from the test
// file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

type result struct {
	Command    string          `json:"command"`
	Results    json.RawMessage `json:"results"`
	TotalCount *int            `json:"total_count"`
	Error      string          `json:"error"`
}

type sliceResult struct {
	Seeds    []int64 `json:"seeds"`
	Internal []int64 `json:"internal"`
	External []int64 `json:"external"`
	Summary  struct {
		Files int `json:"files"`
	} `json:"summary"`
	Archive      string `json:"archive"`
	ArchiveFiles int    `json:"archive_files"`
}

// workspace is a scratch directory with the shop fixture loaded into
// facts.db and its sources written under repo/.
type workspace struct {
	bin string
	dir string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	w := &workspace{bin: buildBinary(t), dir: t.TempDir()}
	fixture := filepath.Join(projectRoot(t), "testdata", "shop.yaml")
	res := w.run(t, "load", fixture, "--sources", "repo")
	require.Empty(t, res.Error)
	return w
}

// run executes the binary in the workspace and decodes its JSON envelope.
func (w *workspace) run(t *testing.T, args ...string) result {
	t.Helper()
	out, err := w.exec(t, args...)
	require.NoError(t, err, "%v failed: %s", args, out)
	var res result
	require.NoError(t, json.Unmarshal(out, &res), "output: %s", out)
	return res
}

func (w *workspace) exec(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command(w.bin, append([]string{"--db", "facts.db"}, args...)...)
	cmd.Dir = w.dir
	cmd.Env = append(os.Environ(),
		"SLICER_CONTENT_PROVIDER=repo",
		"SLICER_CONTENT_REPO=repo",
		"SLICER_LOG_LEVEL=error",
	)
	return cmd.Output()
}

func TestInit_CreatesDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := t.TempDir()

	cmd := exec.Command(bin, "init", "--db", "facts.db")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "init failed: %s", string(out))

	_, err = os.Stat(filepath.Join(dir, "facts.db"))
	require.NoError(t, err, "facts.db should exist")
}

func TestLoad_WritesSourcesAndStats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	w := newWorkspace(t)

	_, err := os.Stat(filepath.Join(w.dir, "repo", "com", "shop", "Order.java"))
	require.NoError(t, err)

	res := w.run(t, "stats")
	var stats map[string]int
	require.NoError(t, json.Unmarshal(res.Results, &stats))
	assert.Equal(t, 3, stats["projects"])
	assert.Equal(t, 4, stats["files"])
}

func TestSlice_WritesArchive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	w := newWorkspace(t)

	res := w.run(t, "slice", "105", "-o", "out.zip")
	var sl sliceResult
	require.NoError(t, json.Unmarshal(res.Results, &sl))
	assert.Equal(t, []int64{105}, sl.Seeds)
	assert.Equal(t, []int64{100, 101, 102, 103, 104, 105, 110, 120}, sl.Internal)
	assert.Equal(t, []int64{200, 201, 300}, sl.External)
	assert.Equal(t, 3, sl.ArchiveFiles)

	zr, err := zip.OpenReader(filepath.Join(w.dir, "out.zip"))
	require.NoError(t, err)
	defer zr.Close()
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(b)
	}
	require.Contains(t, files, "com/shop/Order.java")
	order := files["com/shop/Order.java"]
	assert.True(t, strings.HasPrefix(order, "package com.shop;\n"))
	assert.Contains(t, order, "import java.util.List;")
	assert.Contains(t, order, "public class Order extends com.shop.BaseEntity implements com.shop.Priced {")
	assert.NotContains(t, order, "describe()")
}

func TestSlice_SeedScript(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	w := newWorkspace(t)
	script := `for _, e := range entities_by_fqn(fqn) { seed(e) }`
	require.NoError(t, os.WriteFile(filepath.Join(w.dir, "seeds.risor"), []byte(script), 0o644))

	res := w.run(t, "slice", "--seed-script", "seeds.risor", "--param", "fqn=com.shop.Priced")
	var sl sliceResult
	require.NoError(t, json.Unmarshal(res.Results, &sl))
	assert.Equal(t, []int64{120}, sl.Seeds)
	assert.Equal(t, []int64{120, 121}, sl.Internal)
}

func TestSlice_NoSeedsIsAnError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	w := newWorkspace(t)

	out, err := w.exec(t, "slice")
	require.Error(t, err)
	var res result
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, "slice", res.Command)
	assert.Contains(t, res.Error, "no seeds")
}

func TestBatch_OneArchivePerLine(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	w := newWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(w.dir, "seeds.txt"), []byte("# sets\n105\n\n201\n"), 0o644))

	res := w.run(t, "batch", "seeds.txt", "-o", "out", "--workers", "2")
	var slices []sliceResult
	require.NoError(t, json.Unmarshal(res.Results, &slices))
	require.Len(t, slices, 2)
	assert.Equal(t, []int64{105}, slices[0].Seeds)
	assert.Equal(t, []int64{201}, slices[1].Seeds)
	assert.Equal(t, 3, slices[0].ArchiveFiles)

	_, err := os.Stat(filepath.Join(w.dir, "out", "slice-002.zip"))
	assert.NoError(t, err)
}

func TestRelations_Reverse(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	w := newWorkspace(t)

	res := w.run(t, "relations", "uses", "300", "--reverse")
	var ents []struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(res.Results, &ents))
	var ids []int64
	for _, e := range ents {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []int64{101, 201}, ids)
}

func TestEntity_TextFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	w := newWorkspace(t)

	out, err := w.exec(t, "--format", "text", "entity", "105")
	require.NoError(t, err)
	assert.Contains(t, string(out), "com.shop.Order.total()")
	assert.Contains(t, string(out), "com/shop/Order.java")
}
