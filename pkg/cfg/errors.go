package cfg

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedStatement matches every MalformedStatementError.
	ErrMalformedStatement = errors.New("malformed statement")

	// ErrAnalysisTooDeep matches every AnalysisTooDeepError.
	ErrAnalysisTooDeep = errors.New("nesting too deep")
)

// MalformedStatementError reports a control statement whose sub-block field
// cannot be resolved.
type MalformedStatementError struct {
	StmtID int64
	Field  string
	Err    error
}

func (e *MalformedStatementError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed statement %d: field %s", e.StmtID, e.Field)
	}
	return fmt.Sprintf("malformed statement %d: field %s: %v", e.StmtID, e.Field, e.Err)
}

func (e *MalformedStatementError) Unwrap() error { return e.Err }

func (e *MalformedStatementError) Is(target error) bool {
	return target == ErrMalformedStatement
}

// AnalysisTooDeepError reports construct nesting beyond Options.MaxDepth.
type AnalysisTooDeepError struct {
	StmtID int64
	Depth  int
}

func (e *AnalysisTooDeepError) Error() string {
	return fmt.Sprintf("nesting too deep at statement %d (depth %d)", e.StmtID, e.Depth)
}

func (e *AnalysisTooDeepError) Is(target error) bool {
	return target == ErrAnalysisTooDeep
}
