package domain

import "sort"

// Reason classifies why a field failed validation.
type Reason string

const (
	ReasonMissingRequired    Reason = "missing_required"
	ReasonPatternMismatch    Reason = "pattern_mismatch"
	ReasonCrossFieldMismatch Reason = "cross_field_mismatch"
	ReasonLengthTooShort     Reason = "length_too_short"
)

// Valid reports whether r is one of the known reasons.
func (r Reason) Valid() bool {
	switch r {
	case ReasonMissingRequired, ReasonPatternMismatch, ReasonCrossFieldMismatch, ReasonLengthTooShort:
		return true
	}
	return false
}

// Failure is a single user-facing validation problem.
// Failures are data returned to the caller, never errors.
type Failure struct {
	Field   string `json:"field"`
	Reason  Reason `json:"reason"`
	Message string `json:"message,omitempty"`
}

// Failures is the result of validating a step. Treat it as a set.
type Failures []Failure

// Has reports whether a failure with the given field and reason is present.
func (f Failures) Has(field string, reason Reason) bool {
	for _, item := range f {
		if item.Field == field && item.Reason == reason {
			return true
		}
	}
	return false
}

// For returns the failures attached to one field.
func (f Failures) For(field string) Failures {
	var out Failures
	for _, item := range f {
		if item.Field == field {
			out = append(out, item)
		}
	}
	return out
}

// Fields lists the distinct failing field names in first-seen order.
func (f Failures) Fields() []string {
	seen := make(map[string]bool, len(f))
	var out []string
	for _, item := range f {
		if !seen[item.Field] {
			seen[item.Field] = true
			out = append(out, item.Field)
		}
	}
	return out
}

// First returns the first failure, for hosts that surface a single message.
func (f Failures) First() (Failure, bool) {
	if len(f) == 0 {
		return Failure{}, false
	}
	return f[0], true
}

// SameSet compares two failure lists ignoring order and messages.
func SameSet(a, b Failures) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(x Failure) string { return x.Field + "\x00" + string(x.Reason) }
	ka := make([]string, len(a))
	kb := make([]string, len(b))
	for i := range a {
		ka[i] = key(a[i])
		kb[i] = key(b[i])
	}
	sort.Strings(ka)
	sort.Strings(kb)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}
