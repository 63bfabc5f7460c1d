package domain

// FieldKind is the input type of a field.
type FieldKind string

const (
	KindText        FieldKind = "text"
	KindPassword    FieldKind = "password"
	KindEmail       FieldKind = "email"
	KindNumber      FieldKind = "number"
	KindBoolean     FieldKind = "boolean"
	KindChoice      FieldKind = "choice"
	KindMultiChoice FieldKind = "multichoice"
	KindList        FieldKind = "list" // delimited free text, split on submit
	KindTimeRange   FieldKind = "timerange"
)

// Kinds lists every supported kind.
var Kinds = []FieldKind{
	KindText, KindPassword, KindEmail, KindNumber, KindBoolean,
	KindChoice, KindMultiChoice, KindList, KindTimeRange,
}

// Known reports whether k is a supported kind.
func (k FieldKind) Known() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Zero returns the default value a field of this kind starts with.
func (k FieldKind) Zero() Value {
	switch k {
	case KindBoolean:
		return false
	case KindMultiChoice:
		return []string{}
	case KindTimeRange:
		return map[string]any{"from": "", "to": ""}
	default:
		return ""
	}
}

// Textual reports whether values of this kind are plain strings.
func (k FieldKind) Textual() bool {
	switch k {
	case KindBoolean, KindMultiChoice, KindTimeRange:
		return false
	}
	return true
}
