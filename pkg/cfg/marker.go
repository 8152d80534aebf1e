package cfg

import "fmt"

// Marker is a control flow exit that has not been linked to its successor
// yet. A bare marker yields an Empty edge; a tagged marker yields an edge of
// its own kind.
type Marker struct {
	Stmt   int64
	Kind   Kind
	tagged bool
}

// Bare returns an untagged marker on stmt.
func Bare(stmt int64) Marker {
	return Marker{Stmt: stmt}
}

// Tagged returns a marker on stmt that resolves to an edge of kind k.
func Tagged(stmt int64, k Kind) Marker {
	return Marker{Stmt: stmt, Kind: k, tagged: true}
}

// IsTagged reports whether the marker carries its own kind.
func (m Marker) IsTagged() bool {
	return m.tagged
}

// EdgeKind is the kind of the edge the marker resolves to.
func (m Marker) EdgeKind() Kind {
	if m.tagged {
		return m.Kind
	}
	return Empty
}

func (m Marker) String() string {
	if m.tagged {
		return fmt.Sprintf("%d/%s", m.Stmt, m.Kind)
	}
	return fmt.Sprintf("%d", m.Stmt)
}
