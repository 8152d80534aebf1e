// Package store persists control flow edge rows as columnar msgpack files
// and derives where a unit's rows are written.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-flow-graph/pkg/cfg"
	"github.com/l3aro/go-flow-graph/pkg/gir"
)

// SchemaVersion is written into every edge file header.
const SchemaVersion = 1

// ErrSchemaMismatch is returned when an edge file has an unknown schema.
var ErrSchemaMismatch = errors.New("edge file schema mismatch")

// Columns is the column-oriented layout of a set of edge rows. All slices
// have the same length.
type Columns struct {
	Schema   int     `msgpack:"schema"`
	UnitID   []int64 `msgpack:"unit_id"`
	MethodID []int64 `msgpack:"method_id"`
	Source   []int64 `msgpack:"src_stmt_id"`
	Target   []int64 `msgpack:"dst_stmt_id"`
	Weight   []int8  `msgpack:"control_flow_type"`
}

// FromRows converts rows to columns.
func FromRows(rows []cfg.EdgeRow) *Columns {
	c := &Columns{
		Schema:   SchemaVersion,
		UnitID:   make([]int64, len(rows)),
		MethodID: make([]int64, len(rows)),
		Source:   make([]int64, len(rows)),
		Target:   make([]int64, len(rows)),
		Weight:   make([]int8, len(rows)),
	}
	for i, r := range rows {
		c.UnitID[i] = r.UnitID
		c.MethodID[i] = r.MethodID
		c.Source[i] = r.Source
		c.Target[i] = r.Target
		c.Weight[i] = int8(r.Weight)
	}
	return c
}

// Len returns the number of rows.
func (c *Columns) Len() int {
	return len(c.Source)
}

// Rows converts columns back to rows. Missing or unknown weights read as
// the neutral kind.
func (c *Columns) Rows() ([]cfg.EdgeRow, error) {
	n := len(c.Source)
	if len(c.UnitID) != n || len(c.MethodID) != n || len(c.Target) != n {
		return nil, fmt.Errorf("column lengths differ: unit=%d method=%d src=%d dst=%d",
			len(c.UnitID), len(c.MethodID), n, len(c.Target))
	}

	rows := make([]cfg.EdgeRow, n)
	for i := 0; i < n; i++ {
		weight := cfg.Empty
		if i < len(c.Weight) {
			if k := cfg.Kind(c.Weight[i]); k.Valid() {
				weight = k
			}
		}
		rows[i] = cfg.EdgeRow{
			UnitID:   c.UnitID[i],
			MethodID: c.MethodID[i],
			Source:   c.Source[i],
			Target:   c.Target[i],
			Weight:   weight,
		}
	}
	return rows, nil
}

// Write encodes rows to w.
func Write(w io.Writer, rows []cfg.EdgeRow) error {
	return msgpack.NewEncoder(w).Encode(FromRows(rows))
}

// Read decodes rows from r.
func Read(r io.Reader) ([]cfg.EdgeRow, error) {
	var c Columns
	if err := msgpack.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding edge columns: %w", err)
	}
	if c.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, c.Schema, SchemaVersion)
	}
	return c.Rows()
}

// Save writes rows to path, creating parent directories. The file is
// written to a temporary sibling and renamed into place.
func Save(path string, rows []cfg.EdgeRow) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := Write(bw, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding edges for %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// Load reads rows from path.
func Load(path string) ([]cfg.EdgeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

// Layout derives output paths from unit paths.
type Layout struct {
	// GIRDir is the directory name holding unit files, e.g. ".gir".
	GIRDir string
	// SemanticDir replaces GIRDir in output paths, e.g. ".semantic".
	SemanticDir string
	// Ext is appended to the derived path, e.g. ".cfg".
	Ext string
}

// PathFor returns the edge file path of a unit. The unit file suffix is
// stripped, every "/GIRDir/" segment is replaced by "/SemanticDir/" and Ext
// is appended. A relative path starting with GIRDir is treated as if it had
// a leading separator. A path without a GIRDir segment gets its output
// alongside the unit file.
func (l Layout) PathFor(unitPath string) string {
	base := filepath.ToSlash(gir.TrimUnitSuffix(unitPath))

	if l.GIRDir != "" && l.SemanticDir != "" {
		relative := !strings.HasPrefix(base, "/")
		if relative {
			base = "/" + base
		}
		base = strings.ReplaceAll(base, "/"+l.GIRDir+"/", "/"+l.SemanticDir+"/")
		if relative {
			base = base[1:]
		}
	}

	return filepath.FromSlash(base + l.Ext)
}
