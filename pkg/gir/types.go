// Package gir defines the block-structured statement representation consumed
// by the control flow pass. A unit is stored as a flat table of statements in
// preorder; every statement belongs to one block and may own sub-blocks.
package gir

// BlockID identifies a block of statements within a unit.
//
// Root names the unit's top-level block. It is never a valid sub-block
// reference, so any id <= 0 in a sub-block field reads as absent.
type BlockID int64

// Root is the top-level block of a unit.
const Root BlockID = 0

// IsNA reports whether id marks an absent sub-block.
func (id BlockID) IsNA() bool {
	return id <= 0
}

// Operation is the statement tag emitted by a language front end.
type Operation string

const (
	OpIf            Operation = "if_stmt"
	OpWhile         Operation = "while_stmt"
	OpDoWhile       Operation = "dowhile_stmt"
	OpFor           Operation = "for_stmt"
	OpForIn         Operation = "forin_stmt"
	OpBreak         Operation = "break_stmt"
	OpContinue      Operation = "continue_stmt"
	OpTry           Operation = "try_stmt"
	OpReturn        Operation = "return_stmt"
	OpYield         Operation = "yield"
	OpYieldStmt     Operation = "yield_stmt"
	OpMethodDecl    Operation = "method_decl"
	OpClassDecl     Operation = "class_decl"
	OpRecordDecl    Operation = "record_decl"
	OpInterfaceDecl Operation = "interface_decl"
	OpStructDecl    Operation = "struct_decl"
	OpParameterDecl Operation = "parameter_decl"
)

// Construct classifies statements by the control flow they introduce.
type Construct int

const (
	Plain Construct = iota
	If
	While
	DoWhile
	For
	ForIn
	Return
	Break
	Continue
	Yield
	Try
	Decl
	Parameter
)

var constructNames = [...]string{
	Plain:     "plain",
	If:        "if",
	While:     "while",
	DoWhile:   "do_while",
	For:       "for",
	ForIn:     "for_in",
	Return:    "return",
	Break:     "break",
	Continue:  "continue",
	Yield:     "yield",
	Try:       "try",
	Decl:      "decl",
	Parameter: "parameter",
}

func (c Construct) String() string {
	if c < 0 || int(c) >= len(constructNames) {
		return "unknown"
	}
	return constructNames[c]
}

// Construct maps an operation tag to its construct. Unknown tags are Plain.
func (op Operation) Construct() Construct {
	switch op {
	case OpIf:
		return If
	case OpWhile:
		return While
	case OpDoWhile:
		return DoWhile
	case OpFor:
		return For
	case OpForIn:
		return ForIn
	case OpBreak:
		return Break
	case OpContinue:
		return Continue
	case OpTry:
		return Try
	case OpReturn:
		return Return
	case OpYield, OpYieldStmt:
		return Yield
	case OpMethodDecl, OpClassDecl, OpRecordDecl, OpInterfaceDecl, OpStructDecl:
		return Decl
	case OpParameterDecl:
		return Parameter
	default:
		return Plain
	}
}

// Statement is one row of a unit's statement table.
type Statement struct {
	ID     int64     `yaml:"id" json:"id" msgpack:"id"`
	Parent BlockID   `yaml:"parent" json:"parent" msgpack:"parent"`
	Op     Operation `yaml:"op" json:"op" msgpack:"op"`
	Name   string    `yaml:"name,omitempty" json:"name,omitempty" msgpack:"name,omitempty"`

	Parameters       BlockID   `yaml:"parameters,omitempty" json:"parameters,omitempty" msgpack:"parameters,omitempty"`
	Then             BlockID   `yaml:"then_body,omitempty" json:"then_body,omitempty" msgpack:"then_body,omitempty"`
	Else             BlockID   `yaml:"else_body,omitempty" json:"else_body,omitempty" msgpack:"else_body,omitempty"`
	Body             BlockID   `yaml:"body,omitempty" json:"body,omitempty" msgpack:"body,omitempty"`
	Init             BlockID   `yaml:"init_body,omitempty" json:"init_body,omitempty" msgpack:"init_body,omitempty"`
	ConditionPrebody BlockID   `yaml:"condition_prebody,omitempty" json:"condition_prebody,omitempty" msgpack:"condition_prebody,omitempty"`
	Update           BlockID   `yaml:"update_body,omitempty" json:"update_body,omitempty" msgpack:"update_body,omitempty"`
	TryBody          BlockID   `yaml:"try_body,omitempty" json:"try_body,omitempty" msgpack:"try_body,omitempty"`
	Catches          []BlockID `yaml:"catch_bodies,omitempty" json:"catch_bodies,omitempty" msgpack:"catch_bodies,omitempty"`
	Finally          BlockID   `yaml:"finally_body,omitempty" json:"finally_body,omitempty" msgpack:"finally_body,omitempty"`
}

// SubBlock names one sub-block field of a statement.
type SubBlock struct {
	Field string
	ID    BlockID
}

// SubBlocks lists the statement's non-NA sub-block fields in declaration order.
func (s *Statement) SubBlocks() []SubBlock {
	var out []SubBlock
	add := func(field string, id BlockID) {
		if !id.IsNA() {
			out = append(out, SubBlock{Field: field, ID: id})
		}
	}
	add("parameters", s.Parameters)
	add("init_body", s.Init)
	add("condition_prebody", s.ConditionPrebody)
	add("then_body", s.Then)
	add("else_body", s.Else)
	add("body", s.Body)
	add("update_body", s.Update)
	add("try_body", s.TryBody)
	for _, id := range s.Catches {
		add("catch_bodies", id)
	}
	add("finally_body", s.Finally)
	return out
}

// Method describes one method declaration found in a unit.
type Method struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Parameters BlockID `json:"parameters"`
	Body       BlockID `json:"body"`
}

// Unit is one lowered source file.
type Unit struct {
	ID         int64       `yaml:"unit_id" json:"unit_id" msgpack:"unit_id"`
	Path       string      `yaml:"path" json:"path" msgpack:"path"`
	Language   string      `yaml:"language,omitempty" json:"language,omitempty" msgpack:"language,omitempty"`
	Statements []Statement `yaml:"statements" json:"statements" msgpack:"statements"`
}

// Methods returns every method declaration in the unit, nested ones included,
// in table order.
func (u *Unit) Methods() []Method {
	var methods []Method
	for i := range u.Statements {
		st := &u.Statements[i]
		if st.Op != OpMethodDecl {
			continue
		}
		methods = append(methods, Method{
			ID:         st.ID,
			Name:       st.Name,
			Parameters: st.Parameters,
			Body:       st.Body,
		})
	}
	return methods
}
