package node

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Mode selects whether and in which order the whole tree is materialized
// before the first execution.
type Mode int

const (
	// ModeOff materializes nodes on demand only.
	ModeOff Mode = iota
	// ModeHead resolves a descriptor before its children.
	ModeHead
	// ModeTail resolves a descriptor after its children.
	ModeTail
)

// Modes lists every mode in option order.
var Modes = []Mode{ModeOff, ModeHead, ModeTail}

// ParseMode converts the integer option value into a Mode.
func ParseMode(v int) (Mode, error) {
	if v < int(ModeOff) || v > int(ModeTail) {
		return ModeOff, fmt.Errorf("invalid pre-materialization mode %d: must be 0 (off), 1 (head) or 2 (tail)", v)
	}
	return Mode(v), nil
}

// ParseModeName converts a mode name as returned by Mode.String.
func ParseModeName(name string) (Mode, error) {
	for _, m := range Modes {
		if m.String() == name {
			return m, nil
		}
	}
	return ModeOff, fmt.Errorf("unknown pre-materialization mode %q", name)
}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeHead:
		return "head"
	case ModeTail:
		return "tail"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Context is the configuration shared by every node of one language instance.
// It is read-only once created.
type Context struct {
	// Null is the sentinel returned when no child produces a result.
	Null           cty.Value
	PreMaterialize Mode
}

// NewContext creates a context with the standard sentinel.
func NewContext(mode Mode) *Context {
	return &Context{
		Null:           cty.NullVal(cty.DynamicPseudoType),
		PreMaterialize: mode,
	}
}

// IsNull reports whether v is the sentinel of c.
func (c *Context) IsNull(v cty.Value) bool {
	return v.RawEquals(c.Null)
}
