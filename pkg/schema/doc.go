// Package schema describes wizards: the fields they declare, the ordered steps
// owning those fields, conditional rules and extra CEL checks.
//
// Definitions can be built in Go (see pkg/dsl) or parsed from YAML/JSON:
//
//	def, err := schema.ParseYAML(data)
//	if err != nil {
//	    // *schema.IntegrityError lists every problem with a path
//	}
//
// Parsed documents are first checked against an embedded JSON Schema, then
// decoded and checked for integrity:
//
//   - every declared field is owned by exactly one step;
//   - a dependent field has at most one controlling rule, and rules form no cycles;
//   - patterns compile, checks compile to boolean CEL programs;
//   - options like min_items or must_be_true only appear on kinds that support them.
//
// Each field kind maps to a Type (see TypeOf) that validates values before
// they reach the field store. Coerce converts loosely typed input, such as
// form text or JSON numbers, into the canonical shape of a kind.
package schema
