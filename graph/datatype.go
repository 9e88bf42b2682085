package graph

// DataType tags the kind of value a socket carries.
//
// Data types are open-ended: node behaviors may introduce their own tags for
// domain values (components, control shapes, name templates). The core only
// reserves TypeExec, which sequences execution flow instead of carrying data.
type DataType string

const (
	// TypeExec is the reserved control-flow type. Exec sockets carry no
	// value; their edges define the order nodes execute in. An exec output
	// may fan into only one downstream node, so a branch has exactly one
	// linear continuation.
	TypeExec DataType = "Exec"

	// TypeNumber carries float64 values.
	TypeNumber DataType = "Number"

	// TypeString carries string values.
	TypeString DataType = "String"

	// TypeBool carries bool values.
	TypeBool DataType = "Boolean"

	// TypeAny accepts any value. Used by sink nodes that only display or
	// forward what they receive.
	TypeAny DataType = "Any"
)

// IsExec reports whether the type is the reserved control-flow type.
func (d DataType) IsExec() bool {
	return d == TypeExec
}

// hasValue reports whether v counts as a present value for required-input
// verification. Zero values (nil, empty string, false, numeric zero) count
// as unset, matching the lenient "connection or non-empty default" rule.
func hasValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float32:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
