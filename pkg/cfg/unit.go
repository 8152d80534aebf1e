package cfg

import (
	"fmt"

	"github.com/l3aro/go-flow-graph/pkg/gir"
)

// MethodError records the failure of one method analysis.
type MethodError struct {
	UnitID   int64
	MethodID int64
	Name     string
	Err      error
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("unit %d method %d (%s): %v", e.UnitID, e.MethodID, e.Name, e.Err)
}

func (e *MethodError) Unwrap() error { return e.Err }

// UnitResult holds the graphs of every method in a unit.
type UnitResult struct {
	UnitID   int64
	Path     string
	Methods  []*CFGInfo
	Failures []*MethodError
}

// Rows concatenates the edge rows of every analysed method.
func (r *UnitResult) Rows() []EdgeRow {
	n := 0
	for _, m := range r.Methods {
		n += len(m.Rows)
	}
	rows := make([]EdgeRow, 0, n)
	for _, m := range r.Methods {
		rows = append(rows, m.Rows...)
	}
	return rows
}

// Method returns the graph of the method with the given name or id string.
func (r *UnitResult) Method(key string) (*CFGInfo, bool) {
	for _, m := range r.Methods {
		if m.MethodName == key || fmt.Sprint(m.MethodID) == key {
			return m, true
		}
	}
	return nil, false
}

// AnalyzeUnit builds the graph of every method declared in the unit. A
// method that fails is recorded in Failures and does not affect the others.
// The returned error is non-nil only when the unit's table is invalid.
func AnalyzeUnit(u *gir.Unit, opts Options) (*UnitResult, error) {
	table, err := u.Table()
	if err != nil {
		return nil, err
	}

	res := &UnitResult{UnitID: u.ID, Path: u.Path}
	for _, decl := range u.Methods() {
		info, err := analyzeMethod(table, u.ID, decl, opts)
		if err != nil {
			res.Failures = append(res.Failures, &MethodError{
				UnitID:   u.ID,
				MethodID: decl.ID,
				Name:     decl.Name,
				Err:      err,
			})
			continue
		}
		res.Methods = append(res.Methods, info)
	}
	return res, nil
}

func analyzeMethod(table *gir.Table, unitID int64, decl gir.Method, opts Options) (*CFGInfo, error) {
	m := Method{UnitID: unitID, MethodID: decl.ID, Name: decl.Name}

	if !decl.Parameters.IsNA() {
		blk, err := table.Block(decl.Parameters)
		if err != nil {
			return nil, &MalformedStatementError{StmtID: decl.ID, Field: "parameters", Err: err}
		}
		m.Init = blk
	}
	if !decl.Body.IsNA() {
		blk, err := table.Block(decl.Body)
		if err != nil {
			return nil, &MalformedStatementError{StmtID: decl.ID, Field: "body", Err: err}
		}
		m.Body = blk
	}

	return BuildCFG(m, opts)
}
