package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-flow-graph/pkg/cfg"
	"github.com/l3aro/go-flow-graph/pkg/dirty"
	"github.com/l3aro/go-flow-graph/pkg/gir"
	"github.com/l3aro/go-flow-graph/pkg/registry"
	"github.com/l3aro/go-flow-graph/pkg/store"
)

var testLayout = store.Layout{GIRDir: ".gir", SemanticDir: ".semantic", Ext: ".cfg"}

// writeUnit saves a unit holding one method with a short straight body.
func writeUnit(t *testing.T, root, name string, id int64) string {
	t.Helper()
	unit := &gir.Unit{
		ID: id,
		Statements: gir.Compose(gir.Node{
			ID: 1, Op: gir.OpMethodDecl, Name: "run",
			Body: []gir.Node{gir.Stmt(2), {ID: 3, Op: gir.OpReturn}},
		}),
	}
	path := filepath.Join(root, ".gir", name)
	require.NoError(t, gir.SaveUnit(path, unit))
	return path
}

// writeDeepUnit saves a unit whose only method nests ifs five levels deep.
func writeDeepUnit(t *testing.T, root, name string) string {
	t.Helper()
	inner := []gir.Node{gir.Stmt(10)}
	for id := int64(6); id >= 2; id-- {
		inner = []gir.Node{{ID: id, Op: gir.OpIf, Then: inner}}
	}
	unit := &gir.Unit{
		ID:         99,
		Statements: gir.Compose(gir.Node{ID: 1, Op: gir.OpMethodDecl, Name: "deep", Body: inner}),
	}
	path := filepath.Join(root, ".gir", name)
	require.NoError(t, gir.SaveUnit(path, unit))
	return path
}

func TestRunner_BuildsAndRegisters(t *testing.T) {
	root := t.TempDir()
	paths := []string{
		writeUnit(t, root, "a.gir.yaml", 1),
		writeUnit(t, root, "pkg/b.gir.json", 2),
		writeUnit(t, root, "c.gir.msgpack", 3),
	}

	reg := registry.NewMemory()
	r := NewRunner(Options{Layout: testLayout, Workers: 2}, reg, nil)

	report, err := r.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, report.Units, 3)
	assert.NotEmpty(t, report.RunID)

	for i, u := range report.Units {
		assert.Equal(t, paths[i], u.UnitPath)
		assert.NoError(t, u.Err)
		assert.Equal(t, 1, u.Methods)
		assert.Equal(t, 2, u.Edges)
	}

	cfgPath := filepath.Join(root, ".semantic", "pkg", "b.cfg")
	assert.Equal(t, cfgPath, report.Units[1].CFGPath)

	rows, err := store.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, []cfg.EdgeRow{
		{UnitID: 2, MethodID: 1, Source: 2, Target: 3, Weight: cfg.Empty},
		{UnitID: 2, MethodID: 1, Source: 3, Target: cfg.Exit, Weight: cfg.Return},
	}, rows)

	entry, err := reg.Get(context.Background(), paths[1])
	require.NoError(t, err)
	assert.Equal(t, cfgPath, entry.CFGPath)
	assert.Equal(t, report.RunID, entry.RunID)
	assert.Equal(t, int64(2), entry.UnitID)

	methods, edges, failed := report.Totals()
	assert.Equal(t, 3, methods)
	assert.Equal(t, 6, edges)
	assert.Zero(t, failed)
}

func TestRunner_SkipPolicyKeepsGoing(t *testing.T) {
	root := t.TempDir()
	paths := []string{
		writeDeepUnit(t, root, "deep.gir.yaml"),
		filepath.Join(root, ".gir", "missing.gir.yaml"),
		writeUnit(t, root, "ok.gir.yaml", 5),
	}

	opts := Options{Layout: testLayout, Workers: 1, Analysis: cfg.Options{MaxDepth: 3}}
	report, err := NewRunner(opts, nil, nil).Run(context.Background(), paths)
	require.NoError(t, err)

	deep := report.Units[0]
	assert.NoError(t, deep.Err)
	require.Len(t, deep.Failures, 1)
	assert.ErrorIs(t, deep.Failures[0], cfg.ErrAnalysisTooDeep)
	// A unit with only failed methods still gets an (empty) edge file.
	assert.FileExists(t, deep.CFGPath)

	assert.Error(t, report.Units[1].Err)
	assert.NoError(t, report.Units[2].Err)
	assert.FileExists(t, filepath.Join(root, ".semantic", "ok.cfg"))

	_, _, failed := report.Totals()
	assert.Equal(t, 2, failed)
}

func TestRunner_AbortPolicy(t *testing.T) {
	root := t.TempDir()
	paths := []string{writeDeepUnit(t, root, "deep.gir.yaml")}
	for i := 0; i < 5; i++ {
		paths = append(paths, writeUnit(t, root, fmt.Sprintf("u%d.gir.yaml", i), int64(i+10)))
	}

	opts := Options{Layout: testLayout, Workers: 1, AbortOnError: true, Analysis: cfg.Options{MaxDepth: 3}}
	report, err := NewRunner(opts, nil, nil).Run(context.Background(), paths)
	require.ErrorIs(t, err, ErrAborted)

	assert.True(t, report.Units[0].Failed())
	// With one worker the next unit cannot start before the failure is seen.
	assert.ErrorIs(t, report.Units[len(paths)-1].Err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(root, ".semantic", "u4.cfg"))
}

func TestRunner_CancelledContext(t *testing.T) {
	root := t.TempDir()
	paths := []string{writeUnit(t, root, "a.gir.yaml", 1)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner(Options{Layout: testLayout}, nil, nil).Run(ctx, paths)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, report.Units[0].Err, context.Canceled)
}

func TestRunner_ProcessUnitAndMetrics(t *testing.T) {
	root := t.TempDir()
	path := writeUnit(t, root, "one.gir.yaml", 8)

	r := NewRunner(Options{Layout: testLayout}, nil, nil)
	u := r.ProcessUnit(context.Background(), path)
	require.NoError(t, u.Err)
	assert.Equal(t, int64(8), u.UnitID)

	metricsPath := filepath.Join(root, "gfg.prom")
	require.NoError(t, r.Metrics().WriteTextfile(metricsPath))

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `gfg_build_units_total{status="ok"} 1`)
	assert.Contains(t, text, "gfg_build_edges_total 2")
	assert.Contains(t, text, "gfg_build_unit_duration_seconds_count 1")
}

func TestRunner_IncrementalSkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	paths := []string{
		writeUnit(t, root, "a.gir.yaml", 1),
		writeUnit(t, root, "b.gir.yaml", 2),
		writeDeepUnit(t, root, "deep.gir.yaml"),
	}
	tracker := dirty.New(dirty.WithStateFile(filepath.Join(root, "state.msgpack")))
	opts := Options{Layout: testLayout, Workers: 2, Analysis: cfg.Options{MaxDepth: 3}, Tracker: tracker}

	report, err := NewRunner(opts, nil, nil).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Zero(t, report.Skipped())
	// The partially failed unit is not recorded.
	assert.Equal(t, 2, tracker.Len())

	writeUnit(t, root, "b.gir.yaml", 20)

	r := NewRunner(opts, nil, nil)
	report, err = r.Run(context.Background(), paths)
	require.NoError(t, err)
	assert.True(t, report.Units[0].Skipped)
	assert.Equal(t, filepath.Join(root, ".semantic", "a.cfg"), report.Units[0].CFGPath)
	assert.False(t, report.Units[1].Skipped)
	assert.Equal(t, int64(20), report.Units[1].UnitID)
	assert.False(t, report.Units[2].Skipped)
	assert.Equal(t, 1, report.Skipped())

	metricsPath := filepath.Join(root, "gfg.prom")
	require.NoError(t, r.Metrics().WriteTextfile(metricsPath))
	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `gfg_build_units_total{status="skipped"} 1`)

	// Changing analysis options invalidates every unit.
	opts.Analysis.DoWhileSelfLoop = true
	report, err = NewRunner(opts, nil, nil).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Zero(t, report.Skipped())
}
