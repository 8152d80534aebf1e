package cfg

// Finalize collapses parallel edges and serialises the graph to edge rows
// sorted by source, then target.
func Finalize(g *Graph) []EdgeRow {
	g.Collapse()
	return g.Rows()
}

// Rows serialises the graph as it stands.
func (g *Graph) Rows() []EdgeRow {
	edges := g.Edges()
	rows := make([]EdgeRow, len(edges))
	for i, e := range edges {
		weight := e.Kind
		if !weight.Valid() {
			weight = Empty
		}
		rows[i] = EdgeRow{
			UnitID:   g.UnitID,
			MethodID: g.MethodID,
			Source:   e.Source,
			Target:   e.Target,
			Weight:   weight,
		}
	}
	return rows
}

// BuildCFG builds, collapses and serialises one method's graph.
func BuildCFG(m Method, opts Options) (*CFGInfo, error) {
	g, err := Build(m, opts)
	if err != nil {
		return nil, err
	}
	rows := Finalize(g)
	return &CFGInfo{
		UnitID:     m.UnitID,
		MethodID:   m.MethodID,
		MethodName: m.Name,
		NodeCount:  g.NodeCount(),
		Rows:       rows,
	}, nil
}
