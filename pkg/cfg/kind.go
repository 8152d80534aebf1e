package cfg

import (
	"fmt"
	"strings"
)

// Kind classifies why a control flow edge exists.
type Kind int

const (
	Empty Kind = iota // unconditional
	IfTrue
	IfFalse
	LoopTrue
	LoopFalse
	ForCondition
	ParameterInputTrue
	ParameterInputFalse
	Return
	Break
	Continue
	Yield
	Try
)

var kindNames = [...]string{
	Empty:               "EMPTY",
	IfTrue:              "IF_TRUE",
	IfFalse:             "IF_FALSE",
	LoopTrue:            "LOOP_TRUE",
	LoopFalse:           "LOOP_FALSE",
	ForCondition:        "FOR_CONDITION",
	ParameterInputTrue:  "PARAMETER_INPUT_TRUE",
	ParameterInputFalse: "PARAMETER_INPUT_FALSE",
	Return:              "RETURN",
	Break:               "BREAK",
	Continue:            "CONTINUE",
	Yield:               "YIELD",
	Try:                 "TRY",
}

// Kinds lists every kind in numeric order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

// Valid reports whether k is a defined kind.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind parses the upper-snake name of a kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == upper {
			return Kind(i), nil
		}
	}
	return Empty, fmt.Errorf("unknown control flow kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid control flow kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
