package gir

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleUnitYAML = `unit_id: 12
path: proj/.gir/src/app.ts
language: typescript
statements:
  - {id: 1, parent: 0, op: method_decl, name: main, parameters: 1, body: 2}
  - {id: 2, parent: 1, op: parameter_decl, name: argv}
  - {id: 3, parent: 2, op: if_stmt, then_body: 3, else_body: 4}
  - {id: 4, parent: 3, op: return_stmt}
  - {id: 5, parent: 4, op: call_stmt}
  - {id: 6, parent: 2, op: try_stmt, try_body: 5, catch_bodies: [6, 7], finally_body: 8}
  - {id: 7, parent: 5, op: call_stmt}
  - {id: 8, parent: 6, op: call_stmt}
`

func TestDecodeUnit_YAML(t *testing.T) {
	unit, err := DecodeUnit(strings.NewReader(sampleUnitYAML), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, int64(12), unit.ID)
	assert.Equal(t, "typescript", unit.Language)
	require.Len(t, unit.Statements, 8)

	ifStmt := unit.Statements[2]
	assert.Equal(t, OpIf, ifStmt.Op)
	assert.Equal(t, BlockID(3), ifStmt.Then)
	assert.Equal(t, BlockID(4), ifStmt.Else)

	try := unit.Statements[5]
	assert.Equal(t, []BlockID{6, 7}, try.Catches)
	assert.Equal(t, BlockID(8), try.Finally)

	table, err := unit.Table()
	require.NoError(t, err)

	// Catch block 7 and finally block 8 are declared but empty.
	body, err := table.Block(2)
	require.NoError(t, err)
	assert.Equal(t, 6, body.Len())
	assert.Equal(t, 5, body.Boundary(try.TryBody, try.Catches[0], try.Catches[1], try.Finally))

	methods := unit.Methods()
	require.Len(t, methods, 1)
	assert.Equal(t, "main", methods[0].Name)
}

func TestUnitFiles_RoundTrip(t *testing.T) {
	unit, err := DecodeUnit(strings.NewReader(sampleUnitYAML), FormatYAML)
	require.NoError(t, err)

	dir := t.TempDir()
	for _, name := range []string{"a.gir.yaml", "a.gir.json", "a.gir.msgpack"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveUnit(path, unit))

			loaded, err := LoadUnit(path)
			require.NoError(t, err)
			assert.Equal(t, unit, loaded)
		})
	}
}

func TestLoadUnit_DefaultsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.gir.yml")
	require.NoError(t, SaveUnit(path, &Unit{ID: 1, Statements: Compose(Stmt(1))}))

	unit, err := LoadUnit(path)
	require.NoError(t, err)
	assert.Equal(t, path, unit.Path)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path   string
		format Format
		ok     bool
	}{
		{"x/app.gir.yaml", FormatYAML, true},
		{"x/app.GIR.YML", FormatYAML, true},
		{"x/app.gir.json", FormatJSON, true},
		{"x/app.gir.msgpack", FormatMsgpack, true},
		{"x/app.yaml", "", false},
		{"x/app.ts", "", false},
	}

	for _, tt := range tests {
		format, ok := DetectFormat(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.format, format, tt.path)
	}

	assert.Equal(t, "x/app", TrimUnitSuffix("x/app.gir.json"))
	assert.Equal(t, "x/app.ts", TrimUnitSuffix("x/app.ts"))

	_, err := LoadUnit("x/app.ts")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
