package gir

// Node is a nested statement used to build tables programmatically.
//
// A nil child slice means the sub-block is absent; a non-nil empty slice
// declares an empty sub-block.
type Node struct {
	ID   int64
	Op   Operation
	Name string

	Parameters       []Node
	Then             []Node
	Else             []Node
	Body             []Node
	Init             []Node
	ConditionPrebody []Node
	Update           []Node
	TryBody          []Node
	Catches          [][]Node
	Finally          []Node
}

// Stmt returns a plain node.
func Stmt(id int64) Node {
	return Node{ID: id, Op: "expr_stmt"}
}

// Compose flattens top-level nodes into preorder rows, assigning block ids
// from 1 upward in visit order.
func Compose(nodes ...Node) []Statement {
	c := &composer{next: 1}
	c.block(Root, nodes)
	return c.rows
}

// ComposeTable is Compose followed by NewTable.
func ComposeTable(nodes ...Node) (*Table, error) {
	return NewTable(Compose(nodes...))
}

type composer struct {
	rows []Statement
	next BlockID
}

func (c *composer) block(parent BlockID, nodes []Node) {
	for i := range nodes {
		c.node(parent, &nodes[i])
	}
}

func (c *composer) node(parent BlockID, n *Node) {
	idx := len(c.rows)
	c.rows = append(c.rows, Statement{})

	// Block ids are reserved before any child row is appended so that
	// every sub-block of this node is declared by the row itself.
	type pending struct {
		id    BlockID
		nodes []Node
	}
	var children []pending
	reserve := func(nodes []Node) BlockID {
		if nodes == nil {
			return 0
		}
		id := c.next
		c.next++
		children = append(children, pending{id: id, nodes: nodes})
		return id
	}

	st := Statement{ID: n.ID, Parent: parent, Op: n.Op, Name: n.Name}
	st.Parameters = reserve(n.Parameters)
	st.Init = reserve(n.Init)
	st.ConditionPrebody = reserve(n.ConditionPrebody)
	st.Then = reserve(n.Then)
	st.Else = reserve(n.Else)
	st.Body = reserve(n.Body)
	st.Update = reserve(n.Update)
	st.TryBody = reserve(n.TryBody)
	for _, catch := range n.Catches {
		if catch == nil {
			catch = []Node{}
		}
		st.Catches = append(st.Catches, reserve(catch))
	}
	st.Finally = reserve(n.Finally)
	c.rows[idx] = st

	for _, ch := range children {
		c.block(ch.id, ch.nodes)
	}
}
