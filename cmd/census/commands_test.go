package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/census-mcp/internal/codec"
	"github.com/dshills/census-mcp/internal/config"
	"github.com/dshills/census-mcp/internal/storage"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addFilterFlags(fs)
	fs.Int("start", 0, "")
	fs.Int("stop", 0, "")
	fs.Float64("vmin", 0, "")
	fs.Float64("vmax", 0, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestFilterFromFlags(t *testing.T) {
	t.Run("unset flags add no clauses", func(t *testing.T) {
		f, err := filterFromFlags(newFlagSet(t))
		require.NoError(t, err)
		assert.True(t, f.IsZero())
	})

	t.Run("explicit zero is a clause", func(t *testing.T) {
		f, err := filterFromFlags(newFlagSet(t, "--betti=0", "--alternating=false"))
		require.NoError(t, err)
		require.NotNil(t, f.Betti)
		assert.Equal(t, 0, *f.Betti)
		require.NotNil(t, f.Alternating)
		assert.False(t, *f.Alternating)
	})

	t.Run("all flags", func(t *testing.T) {
		f, err := filterFromFlags(newFlagSet(t,
			"--cusps=2", "--tets=5", "--crossings=11",
			"--knots-vs-links=links", "--filter=volume > 2"))
		require.NoError(t, err)
		assert.Equal(t, 2, *f.Cusps)
		assert.Equal(t, 5, *f.Tets)
		assert.Equal(t, 11, *f.Crossings)
		assert.Equal(t, "links", f.KnotsVsLinks)
		assert.Equal(t, "volume > 2", f.Where)
	})

	t.Run("bad knots-vs-links", func(t *testing.T) {
		_, err := filterFromFlags(newFlagSet(t, "--knots-vs-links=both"))
		assert.Error(t, err)
	})
}

func TestRangeFromFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"everything", nil, ":"},
		{"ordinal", []string{"--start=2", "--stop=-1"}, "2:-1"},
		{"open start", []string{"--stop=3"}, ":3"},
		{"volume", []string{"--vmin=2.5"}, "2.5:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := rangeFromFlags(newFlagSet(t, tt.args...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.String())
		})
	}
}

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestGetCommandNegativeRange(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "manifolds.sqlite")
	w, err := storage.Create(ctx, path)
	require.NoError(t, err)
	rel := storage.Relation{Name: storage.OrientableCuspedRelation, Shape: storage.CuspedShape}
	for i := range 5 {
		blob, err := codec.Encode(codec.Payload{NumCusps: 1, Body: []byte(fmt.Sprintf("body-%d", i))})
		require.NoError(t, err)
		require.NoError(t, w.Insert(ctx, rel, &storage.Row{
			Name: fmt.Sprintf("x%d", i), Triangulation: blob, Volume: 2.0 + 0.1*float64(i), Cusps: 1, Tets: i,
		}))
	}
	require.NoError(t, w.Close())

	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvDatabase, path)
	t.Setenv(config.EnvAltDatabase, filepath.Join(t.TempDir(), "absent.sqlite"))

	t.Run("key starting with a dash", func(t *testing.T) {
		out := run(t, "get", "orientable_cusped", "-3:")
		for _, name := range []string{"x2", "x3", "x4"} {
			assert.Contains(t, out, name)
		}
		assert.NotContains(t, out, "x1")
	})

	t.Run("flags before the census", func(t *testing.T) {
		out := run(t, "get", "--tets", "4", "orientable_cusped", "-1:")
		assert.Contains(t, out, "x4")
		assert.NotContains(t, out, "x3")
	})
}

func TestInitCommand(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "manifolds.sqlite")
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvDatabase, path)

	out := run(t, "init", path)
	assert.Contains(t, out, storage.CurrentSchemaVersion)

	w, err := storage.Create(ctx, path)
	require.NoError(t, err)
	require.NoError(t, w.Insert(ctx, storage.Relation{Name: storage.CensusKnotsRelation, Shape: storage.CuspedShape},
		&storage.Row{Name: "K4_3", Triangulation: []byte{0}}))
	require.NoError(t, w.Close())

	run(t, "init", "--reset", "--relation", "scratch_view", "--shape", "closed", path)

	db, err := storage.OpenReadOnly(path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT count(*) FROM census_knots_view").Scan(&count))
	assert.Equal(t, 0, count)
	require.NoError(t, db.QueryRowContext(ctx, "SELECT count(*) FROM scratch_view WHERE m = 0 AND l = 0").Scan(&count))
	assert.Equal(t, 0, count)
}
