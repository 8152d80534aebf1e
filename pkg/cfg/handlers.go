package cfg

import (
	"fmt"

	"github.com/l3aro/go-flow-graph/pkg/gir"
)

// Handlers link their predecessors to the construct, analyse its sub-blocks
// and return the construct's open exits together with the highest index of
// blk they consumed. A negative index ends the enclosing walk.

// analyzeSub analyses an optional sub-block entered through entry. Absent
// and empty sub-blocks pass entry through unchanged.
func (b *builder) analyzeSub(blk gir.Block, st *gir.Statement, field string, id gir.BlockID, entry []Marker) ([]Marker, error) {
	sub, err := b.subBlock(blk, st, field, id)
	if err != nil {
		return nil, err
	}
	return b.analyzeBlock(sub, entry)
}

func (b *builder) ifStmt(blk gir.Block, pos int, st *gir.Statement, preds []Marker) ([]Marker, int, error) {
	b.graph.Link(preds, st.ID)

	thenExits, err := b.analyzeSub(blk, st, "then_body", st.Then, []Marker{Tagged(st.ID, IfTrue)})
	if err != nil {
		return nil, 0, err
	}
	elseExits, err := b.analyzeSub(blk, st, "else_body", st.Else, []Marker{Tagged(st.ID, IfFalse)})
	if err != nil {
		return nil, 0, err
	}

	return concat(thenExits, elseExits), boundary(blk, pos, st.Then, st.Else), nil
}

// whileStmt also handles for-in loops.
func (b *builder) whileStmt(blk gir.Block, pos int, st *gir.Statement, preds []Marker) ([]Marker, int, error) {
	b.graph.Link(preds, st.ID)

	body, err := b.subBlock(blk, st, "body", st.Body)
	if err != nil {
		return nil, 0, err
	}
	if body != nil && body.Len() > 0 {
		exits, err := b.analyzeBlock(body, []Marker{Tagged(st.ID, LoopTrue)})
		if err != nil {
			return nil, 0, err
		}
		b.graph.Link(exits, st.ID)
	}

	return []Marker{Tagged(st.ID, LoopFalse)}, boundary(blk, pos, st.Body), nil
}

func (b *builder) doWhileStmt(blk gir.Block, pos int, st *gir.Statement, preds []Marker) ([]Marker, int, error) {
	b.graph.Link(preds, st.ID)

	body, err := b.subBlock(blk, st, "body", st.Body)
	if err != nil {
		return nil, 0, err
	}
	if body != nil && body.Len() > 0 {
		exits, err := b.analyzeBlock(body, []Marker{Tagged(st.ID, LoopTrue)})
		if err != nil {
			return nil, 0, err
		}
		b.graph.Link(exits, st.ID)

		if b.opts.DoWhileSelfLoop {
			b.graph.AddEdge(st.ID, st.ID, LoopFalse)
		}
	}

	return []Marker{Tagged(st.ID, LoopFalse)}, boundary(blk, pos, st.Body), nil
}

// forStmt threads init, condition prebody, body and update in order. The
// condition prebody is analysed twice: once on entry and once after each
// iteration.
func (b *builder) forStmt(blk gir.Block, pos int, st *gir.Statement, preds []Marker) ([]Marker, int, error) {
	b.graph.Link(preds, st.ID)

	initBlk, err := b.subBlock(blk, st, "init_body", st.Init)
	if err != nil {
		return nil, 0, err
	}
	condBlk, err := b.subBlock(blk, st, "condition_prebody", st.ConditionPrebody)
	if err != nil {
		return nil, 0, err
	}
	bodyBlk, err := b.subBlock(blk, st, "body", st.Body)
	if err != nil {
		return nil, 0, err
	}
	updateBlk, err := b.subBlock(blk, st, "update_body", st.Update)
	if err != nil {
		return nil, 0, err
	}

	entry := []Marker{Tagged(st.ID, ForCondition)}
	exits, err := b.analyzeBlock(initBlk, entry)
	if err != nil {
		return nil, 0, err
	}
	exits, err = b.analyzeBlock(condBlk, exits)
	if err != nil {
		return nil, 0, err
	}
	// With neither init nor condition the entry marker only points back at
	// the loop head.
	if !isEmpty(initBlk) || !isEmpty(condBlk) || b.opts.ForConditionSelfLoop {
		b.graph.Link(exits, st.ID)
	}

	exits, err = b.analyzeBlock(bodyBlk, []Marker{Tagged(st.ID, LoopTrue)})
	if err != nil {
		return nil, 0, err
	}
	exits, err = b.analyzeBlock(updateBlk, exits)
	if err != nil {
		return nil, 0, err
	}
	exits, err = b.analyzeBlock(condBlk, exits)
	if err != nil {
		return nil, 0, err
	}
	b.graph.Link(exits, st.ID)

	end := boundary(blk, pos, st.Init, st.ConditionPrebody, st.Update, st.Body)
	return []Marker{Tagged(st.ID, LoopFalse)}, end, nil
}

// terminal handles return, break and continue. Break and continue targets
// are not resolved here: their markers flow to whatever follows.
func (b *builder) terminal(st *gir.Statement, preds []Marker, k Kind) ([]Marker, int, error) {
	b.graph.Link(preds, st.ID)
	return []Marker{Tagged(st.ID, k)}, -1, nil
}

func (b *builder) yieldStmt(st *gir.Statement, preds []Marker) ([]Marker, int, error) {
	b.graph.Link(preds, st.ID)
	b.graph.AddEdge(st.ID, Exit, Yield)
	return []Marker{Tagged(st.ID, Yield)}, -1, nil
}

// tryStmt assumes every catch body is reachable from every exit of the try
// body, and the finally body from every exit of both.
func (b *builder) tryStmt(blk gir.Block, pos int, st *gir.Statement, preds []Marker) ([]Marker, int, error) {
	b.graph.Link(preds, st.ID)

	tryExits, err := b.analyzeSub(blk, st, "try_body", st.TryBody, []Marker{Tagged(st.ID, Try)})
	if err != nil {
		return nil, 0, err
	}

	var catchExits []Marker
	for i, id := range st.Catches {
		if id.IsNA() {
			continue
		}
		exits, err := b.analyzeSub(blk, st, fmt.Sprintf("catch_bodies[%d]", i), id, tryExits)
		if err != nil {
			return nil, 0, err
		}
		catchExits = append(catchExits, exits...)
	}

	exits, err := b.analyzeSub(blk, st, "finally_body", st.Finally, concat(tryExits, catchExits))
	if err != nil {
		return nil, 0, err
	}

	ids := make([]gir.BlockID, 0, len(st.Catches)+2)
	ids = append(ids, st.TryBody)
	ids = append(ids, st.Catches...)
	ids = append(ids, st.Finally)
	return exits, boundary(blk, pos, ids...), nil
}

func isEmpty(blk gir.Block) bool {
	return blk == nil || blk.Len() == 0
}
