package gir

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTable is returned when a statement table is not a valid
	// preorder layout.
	ErrInvalidTable = errors.New("invalid statement table")

	// ErrUnknownBlock is returned when a block id is not declared inside
	// the block it is looked up from.
	ErrUnknownBlock = errors.New("unknown block")
)

// Block is an ordered, randomly indexable run of statements. A block holds
// its direct statements and, after each of them, the rows of that
// statement's sub-blocks.
type Block interface {
	// Len returns the number of rows spanned by the block.
	Len() int

	// At returns the row at index i, 0 <= i < Len().
	At(i int) *Statement

	// Sub returns the sub-block id declared by a statement of this block,
	// renumbered from 0.
	Sub(id BlockID) (Block, error)

	// Boundary returns the highest index, in this block's coordinates,
	// spanned by any of the given sub-blocks. NA and empty blocks are
	// skipped; -1 is returned when nothing is spanned.
	Boundary(ids ...BlockID) int
}

// span is a half-open row range [lo, hi).
type span struct {
	lo, hi int
}

func (s span) empty() bool { return s.lo >= s.hi }

// Table is the flat statement table of one unit.
type Table struct {
	rows  []Statement
	spans map[BlockID]span
	owner map[BlockID]int
	byID  map[int64]int
}

// NewTable validates rows and indexes their block structure.
//
// Rows must be in preorder: every statement follows the statement declaring
// its parent block, and each block's rows, nested rows included, are
// contiguous.
func NewTable(rows []Statement) (*Table, error) {
	t := &Table{
		rows:  rows,
		spans: map[BlockID]span{Root: {lo: -1, hi: -1}},
		owner: make(map[BlockID]int),
		byID:  make(map[int64]int, len(rows)),
	}

	// end[i] is the last row index inside statement i's subtree so far.
	end := make([]int, len(rows))

	for i := range rows {
		row := &rows[i]
		end[i] = i

		if row.ID < 0 {
			return nil, fmt.Errorf("%w: statement %d has a negative id", ErrInvalidTable, row.ID)
		}
		if prev, dup := t.byID[row.ID]; dup {
			return nil, fmt.Errorf("%w: statement id %d repeated at rows %d and %d", ErrInvalidTable, row.ID, prev, i)
		}
		t.byID[row.ID] = i

		if row.Parent != Root {
			if _, declared := t.owner[row.Parent]; !declared {
				return nil, fmt.Errorf("%w: statement %d references undeclared parent block %d", ErrInvalidTable, row.ID, row.Parent)
			}
		}

		for b := row.Parent; ; {
			sp := t.spans[b]
			switch {
			case sp.lo < 0:
				sp = span{lo: i, hi: i + 1}
			case sp.hi == i:
				sp.hi = i + 1
			default:
				return nil, fmt.Errorf("%w: block %d is not contiguous at statement %d", ErrInvalidTable, b, row.ID)
			}
			t.spans[b] = sp

			if b == Root {
				break
			}
			o := t.owner[b]
			if end[o] != i-1 {
				return nil, fmt.Errorf("%w: statement %d is separated from its owner %d", ErrInvalidTable, row.ID, rows[o].ID)
			}
			end[o] = i
			b = rows[o].Parent
		}

		for _, sb := range row.SubBlocks() {
			if _, dup := t.owner[sb.ID]; dup {
				return nil, fmt.Errorf("%w: block %d declared twice (statement %d, field %s)", ErrInvalidTable, sb.ID, row.ID, sb.Field)
			}
			t.owner[sb.ID] = i
			t.spans[sb.ID] = span{lo: -1, hi: -1}
		}
	}

	for id, sp := range t.spans {
		if sp.lo >= 0 {
			continue
		}
		if id == Root {
			t.spans[id] = span{}
			continue
		}
		at := t.owner[id] + 1
		t.spans[id] = span{lo: at, hi: at}
	}

	return t, nil
}

// Len returns the number of statements in the table.
func (t *Table) Len() int {
	return len(t.rows)
}

// Statement looks up a statement by id.
func (t *Table) Statement(id int64) (*Statement, bool) {
	i, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return &t.rows[i], true
}

// Root returns the unit's top-level block.
func (t *Table) Root() Block {
	sp := t.spans[Root]
	return &view{t: t, lo: sp.lo, hi: sp.hi}
}

// Block returns any declared block of the table.
func (t *Table) Block(id BlockID) (Block, error) {
	if id.IsNA() {
		return nil, fmt.Errorf("%w: block %d is absent", ErrUnknownBlock, id)
	}
	sp, ok := t.spans[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}
	return &view{t: t, lo: sp.lo, hi: sp.hi}, nil
}

// view is a renumbered window over a table.
type view struct {
	t      *Table
	lo, hi int
}

func (v *view) Len() int {
	return v.hi - v.lo
}

func (v *view) At(i int) *Statement {
	return &v.t.rows[v.lo+i]
}

func (v *view) Sub(id BlockID) (Block, error) {
	if id.IsNA() {
		return nil, fmt.Errorf("%w: block %d is absent", ErrUnknownBlock, id)
	}
	if !v.owns(id) {
		return nil, fmt.Errorf("%w: %d is not declared inside this block", ErrUnknownBlock, id)
	}
	sp := v.t.spans[id]
	return &view{t: v.t, lo: sp.lo, hi: sp.hi}, nil
}

func (v *view) Boundary(ids ...BlockID) int {
	boundary := -1
	for _, id := range ids {
		if id.IsNA() || !v.owns(id) {
			continue
		}
		sp := v.t.spans[id]
		if sp.empty() {
			continue
		}
		if last := sp.hi - 1 - v.lo; last > boundary {
			boundary = last
		}
	}
	return boundary
}

func (v *view) owns(id BlockID) bool {
	o, ok := v.t.owner[id]
	return ok && o >= v.lo && o < v.hi
}

// Table indexes the unit's statements.
func (u *Unit) Table() (*Table, error) {
	t, err := NewTable(u.Statements)
	if err != nil {
		return nil, fmt.Errorf("unit %d (%s): %w", u.ID, u.Path, err)
	}
	return t, nil
}
