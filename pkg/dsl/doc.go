/*
Package dsl provides a fluent Go builder for wizard definitions.

It is the code-first alternative to Markdown, YAML or JSON documents: the
result of Build is the same validated schema.Definition a loader returns,
so it can be handed straight to formflow.New. This is useful for built-in
wizards, unit tests and definitions generated at runtime.

Example usage:

	b := dsl.New("newsletter").Title("Newsletter")

	b.Step("contact").
		Field("email").Kind(domain.KindEmail).Required().
		Field("topics").Kind(domain.KindList).MinItems(1)

	b.Step("extras").
		Field("member").Kind(domain.KindChoice).Options("yes", "no").Default("no").
		Field("memberNumber").Required()

	b.When("member", "yes").Reveal("memberNumber")

	def, err := b.Build()
	if err != nil {
		return err
	}
	eng, err := formflow.New(def)
*/
package dsl
