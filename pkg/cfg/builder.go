package cfg

import (
	"github.com/l3aro/go-flow-graph/pkg/gir"
)

// builder threads pending markers through one method's blocks and writes
// the resulting edges into its graph. It is not safe for concurrent use; every
// method analysis gets its own builder.
type builder struct {
	opts  Options
	graph *Graph
	depth int
}

// Build analyses one method and returns its graph before collapsing.
func Build(m Method, opts Options) (*Graph, error) {
	b := &builder{
		opts:  opts,
		graph: NewGraph(m.UnitID, m.MethodID),
	}

	initExits, err := b.analyzeInitBlock(m.Init, nil)
	if err != nil {
		return nil, err
	}
	last, err := b.analyzeBlock(m.Body, initExits)
	if err != nil {
		return nil, err
	}
	if len(last) > 0 {
		b.graph.Link(last, Exit)
	}
	return b.graph, nil
}

// analyzeBlock walks a block and returns its open exits.
func (b *builder) analyzeBlock(blk gir.Block, preds []Marker) ([]Marker, error) {
	if blk == nil || blk.Len() == 0 {
		return preds, nil
	}

	for i := 0; i < blk.Len(); {
		st := blk.At(i)
		if st.Op.Construct() == gir.Plain {
			b.graph.Link(preds, st.ID)
			preds = []Marker{Bare(st.ID)}
			i++
			continue
		}

		exits, boundary, err := b.dispatch(blk, i, st, preds)
		if err != nil {
			return nil, err
		}
		preds = exits
		if boundary < 0 {
			break
		}
		i = boundary + 1
	}

	return preds, nil
}

// analyzeInitBlock walks a method's parameter prologue.
//
// Each parameter declaration is linked from the pending set and contributes a
// PARAMETER_INPUT_TRUE marker. The first statement after a run of parameter
// declarations is entered through PARAMETER_INPUT_FALSE markers on the
// pending set. The result is every parameter marker followed by the open
// exits of the trailing statements.
func (b *builder) analyzeInitBlock(blk gir.Block, preds []Marker) ([]Marker, error) {
	if blk == nil || blk.Len() == 0 {
		return preds, nil
	}

	var params []Marker
	afterParam := false

	for i := 0; i < blk.Len(); {
		st := blk.At(i)

		if st.Op.Construct() == gir.Parameter {
			b.graph.Link(preds, st.ID)
			params = append(params, Tagged(st.ID, ParameterInputTrue))
			preds = []Marker{Bare(st.ID)}
			afterParam = true
			i++
			continue
		}

		if afterParam {
			preds = retag(preds, ParameterInputFalse)
			afterParam = false
		}

		if st.Op.Construct() == gir.Plain {
			b.graph.Link(preds, st.ID)
			preds = []Marker{Bare(st.ID)}
			i++
			continue
		}

		exits, boundary, err := b.dispatch(blk, i, st, preds)
		if err != nil {
			return nil, err
		}
		preds = exits
		if boundary < 0 {
			break
		}
		i = boundary + 1
	}

	// A prologue ending on a parameter leaves only that parameter pending,
	// which its PARAMETER_INPUT_TRUE marker already covers.
	if afterParam {
		preds = nil
	}
	return append(params, preds...), nil
}

// dispatch runs the handler of a non-plain statement at index pos of blk.
func (b *builder) dispatch(blk gir.Block, pos int, st *gir.Statement, preds []Marker) ([]Marker, int, error) {
	if err := b.enter(st); err != nil {
		return nil, 0, err
	}
	defer b.leave()

	switch st.Op.Construct() {
	case gir.If:
		return b.ifStmt(blk, pos, st, preds)
	case gir.While, gir.ForIn:
		return b.whileStmt(blk, pos, st, preds)
	case gir.DoWhile:
		return b.doWhileStmt(blk, pos, st, preds)
	case gir.For:
		return b.forStmt(blk, pos, st, preds)
	case gir.Return:
		return b.terminal(st, preds, Return)
	case gir.Break:
		return b.terminal(st, preds, Break)
	case gir.Continue:
		return b.terminal(st, preds, Continue)
	case gir.Yield:
		return b.yieldStmt(st, preds)
	case gir.Try:
		return b.tryStmt(blk, pos, st, preds)
	case gir.Decl:
		return nil, -1, nil
	default:
		// Parameter declarations outside a prologue carry no special meaning.
		b.graph.Link(preds, st.ID)
		return []Marker{Bare(st.ID)}, pos, nil
	}
}

func (b *builder) enter(st *gir.Statement) error {
	b.depth++
	if b.depth > b.opts.maxDepth() {
		return &AnalysisTooDeepError{StmtID: st.ID, Depth: b.depth}
	}
	return nil
}

func (b *builder) leave() {
	b.depth--
}

// subBlock resolves an optional sub-block field. It returns nil for an
// absent field.
func (b *builder) subBlock(blk gir.Block, st *gir.Statement, field string, id gir.BlockID) (gir.Block, error) {
	if id.IsNA() {
		return nil, nil
	}
	sub, err := blk.Sub(id)
	if err != nil {
		return nil, &MalformedStatementError{StmtID: st.ID, Field: field, Err: err}
	}
	return sub, nil
}

// boundary is the index to resume after: the construct itself or the last
// row of its sub-blocks, whichever is later.
func boundary(blk gir.Block, pos int, ids ...gir.BlockID) int {
	if last := blk.Boundary(ids...); last > pos {
		return last
	}
	return pos
}

func retag(markers []Marker, k Kind) []Marker {
	out := make([]Marker, len(markers))
	for i, m := range markers {
		out[i] = Tagged(m.Stmt, k)
	}
	return out
}

func concat(sets ...[]Marker) []Marker {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	out := make([]Marker, 0, n)
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}
