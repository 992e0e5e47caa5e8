package planning

// Kind discriminates the schemas an Action can be built from. The set of
// kinds is closed; every switch over Kind handles all of them.
type Kind int

const (
	KindStrips Kind = iota
	KindConditional
	KindMethod
)

func (k Kind) String() string {
	switch k {
	case KindStrips:
		return "strips"
	case KindConditional:
		return "conditional"
	case KindMethod:
		return "method"
	}
	return "unknown"
}

// IsPrimitive reports whether actions of this kind change the state.
func (k Kind) IsPrimitive() bool {
	return k == KindStrips || k == KindConditional
}
