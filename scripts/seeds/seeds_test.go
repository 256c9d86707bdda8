package seeds_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/slicer"
	"github.com/jward/slicer/internal/factfile"
	"github.com/jward/slicer/internal/runtime"
	"github.com/jward/slicer/internal/store"
)

func findModuleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find module root")
		}
		dir = parent
	}
}

type testEnv struct {
	store *store.Store
	rt    *runtime.Runtime
	t     *testing.T
}

// newTestEnv loads the shop fixture into a temp database and returns a
// Runtime that resolves scripts from scripts/seeds.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := findModuleRoot(t)

	doc, err := factfile.ParseFile(filepath.Join(root, "testdata", "shop.yaml"))
	require.NoError(t, err)

	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	require.NoError(t, s.LoadFacts(context.Background(), doc.FactSet()))

	rt := runtime.NewRuntime(s, filepath.Join(root, "scripts", "seeds"))
	return &testEnv{store: s, rt: rt, t: t}
}

func (e *testEnv) seeds(script, fqn string) []int64 {
	e.t.Helper()
	ids, err := e.rt.SelectSeeds(context.Background(), script, map[string]any{"fqn": fqn})
	require.NoError(e.t, err)
	return ids
}

// ---------- Seed scripts ----------

func TestType(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	assert.Equal(t, []int64{100}, env.seeds("type.risor", "com.shop.Order"))
	assert.Equal(t, []int64{300}, env.seeds("type.risor", "java.util.List"))
	assert.Empty(t, env.seeds("type.risor", "com.shop.Order.total()"))
	assert.Empty(t, env.seeds("type.risor", "com.shop.Missing"))
}

func TestPublicAPI(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	assert.Equal(t, []int64{105, 106, 104}, env.seeds("public_api.risor", "com.shop.Order"))
	assert.Equal(t, []int64{112}, env.seeds("public_api.risor", "com.shop.BaseEntity"))
	// Interface methods carry no explicit modifiers.
	assert.Empty(t, env.seeds("public_api.risor", "com.shop.Priced"))
}

func TestImplementors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	assert.Equal(t, []int64{100}, env.seeds("implementors.risor", "com.shop.Priced"))
	assert.Equal(t, []int64{100}, env.seeds("implementors.risor", "com.shop.BaseEntity"))
	assert.Equal(t, []int64{110}, env.seeds("implementors.risor", "java.lang.Object"))
	assert.Empty(t, env.seeds("implementors.risor", "com.shop.Order"))
}

func TestCallers(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	assert.Equal(t, []int64{105}, env.seeds("callers.risor", "com.util.Money.sum(java.util.List)"))
	assert.Empty(t, env.seeds("callers.risor", "com.shop.Order.describe()"))
}

func TestMissingParam(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.rt.SelectSeeds(context.Background(), "type.risor", nil)
	assert.Error(t, err)
}

// ---------- Slicing from script seeds ----------

func TestCallersSlice(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	seeds := env.seeds("callers.risor", "com.util.Money.sum(java.util.List)")
	sl, err := slicer.New(slicer.StoreOpener(env.store, 0)).Slice(context.Background(), seeds)
	require.NoError(t, err)

	var internal []int64
	for _, e := range sl.InternalEntities() {
		internal = append(internal, e.ID)
	}
	assert.Equal(t, []int64{100, 101, 102, 103, 104, 105, 110, 120}, internal)
}
