// Package cfg builds per-method control flow graphs over statement ids from
// the block-structured statement tables of package gir.
package cfg

import "github.com/l3aro/go-flow-graph/pkg/gir"

// DefaultMaxDepth bounds construct nesting when Options.MaxDepth is unset.
const DefaultMaxDepth = 256

// Options tunes graph construction.
type Options struct {
	// MaxDepth is the deepest construct nesting analysed before failing
	// with AnalysisTooDeepError. Zero means DefaultMaxDepth.
	MaxDepth int

	// DoWhileSelfLoop adds a LOOP_FALSE edge from a do-while statement to
	// itself after a non-empty body, as older pipeline versions did.
	DoWhileSelfLoop bool

	// ForConditionSelfLoop keeps the FOR_CONDITION edge from a for statement
	// to itself when it has neither init nor condition prebody.
	ForConditionSelfLoop bool
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// Method is the input of one method analysis. A nil block is absent.
type Method struct {
	UnitID   int64
	MethodID int64
	Name     string
	Init     gir.Block
	Body     gir.Block
}

// EdgeRow is the persisted form of one edge.
type EdgeRow struct {
	UnitID   int64 `json:"unit_id" msgpack:"unit_id"`
	MethodID int64 `json:"method_id" msgpack:"method_id"`
	Source   int64 `json:"src_stmt_id" msgpack:"src_stmt_id"`
	Target   int64 `json:"dst_stmt_id" msgpack:"dst_stmt_id"`
	Weight   Kind  `json:"control_flow_type" msgpack:"control_flow_type"`
}

// CFGInfo is the finalized graph of one method.
type CFGInfo struct {
	UnitID     int64     `json:"unit_id"`
	MethodID   int64     `json:"method_id"`
	MethodName string    `json:"method_name,omitempty"`
	NodeCount  int       `json:"node_count"`
	Rows       []EdgeRow `json:"edges"`
}
