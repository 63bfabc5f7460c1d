package loam

// WizardMetadata is the frontmatter of a wizard document.
// Nested sections stay generic; they are checked against the definition
// schema when the document is converted.
type WizardMetadata struct {
	ID          string `json:"id" mapstructure:"id"`
	Title       string `json:"title" mapstructure:"title"`
	Description string `json:"description" mapstructure:"description"`
	Fields      []any  `json:"fields" mapstructure:"fields"`
	Steps       []any  `json:"steps" mapstructure:"steps"`
	Rules       []any  `json:"rules" mapstructure:"rules"`
	Checks      []any  `json:"checks" mapstructure:"checks"`
}

// IsWizard reports whether the document declares steps. Other documents in
// the repository (READMEs, notes) are ignored.
func (m WizardMetadata) IsWizard() bool {
	return len(m.Steps) > 0
}
