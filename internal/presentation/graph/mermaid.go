package graph

import (
	"fmt"
	"strings"

	"github.com/clubdesk/formflow/pkg/schema"
)

// Overlay marks the progress of one session on the graph.
type Overlay struct {
	VisitedSteps []int
	CurrentStep  int
	Submitted    bool
}

// GenerateMermaid renders a wizard as a Mermaid flowchart:
// - Steps: [Rectangle] listing their fields, required ones marked with *
// - Conditional fields: [/Parallelogram/] hanging off their step by a dotted edge
// - Submit: ((Circle)) after the last step
// The overlay, when given, styles visited and current steps.
func GenerateMermaid(def *schema.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, step := range def.Steps {
		id := stepID(step.ID)
		title := step.Title
		if title == "" {
			title = step.ID
		}

		var fields []string
		for _, name := range step.Fields {
			if _, conditional := def.RuleFor(name); conditional {
				continue
			}
			f, _ := def.Field(name)
			if f.Required || f.MustBeTrue {
				name += "*"
			}
			fields = append(fields, name)
		}
		fmt.Fprintf(&sb, "    %s[\"%d. %s<br/>%s\"]\n", id, i+1, escape(title), escape(strings.Join(fields, ", ")))

		if i < len(def.Steps)-1 {
			fmt.Fprintf(&sb, "    %s --> %s\n", id, stepID(def.Steps[i+1].ID))
		} else {
			fmt.Fprintf(&sb, "    %s --> submit((\"submit\"))\n", id)
		}
	}

	for _, rule := range def.Rules {
		step := def.StepOf(rule.Dependent)
		if step < 0 {
			continue
		}
		from := stepID(def.Steps[step].ID)
		to := from + "__" + sanitizeMermaidID(rule.Dependent)
		label := fmt.Sprintf("%s = %s", rule.Controller, rule.Trigger)
		fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s[/\"%s\"/]\n", from, escape(label), to, rule.Dependent)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[int]bool)
		for _, i := range overlay.VisitedSteps {
			if i < 0 || i >= len(def.Steps) || seen[i] {
				continue
			}
			seen[i] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", stepID(def.Steps[i].ID))
		}
		switch {
		case overlay.Submitted:
			sb.WriteString("    class submit current;\n")
		case overlay.CurrentStep >= 0 && overlay.CurrentStep < len(def.Steps):
			fmt.Fprintf(&sb, "    class %s current;\n", stepID(def.Steps[overlay.CurrentStep].ID))
		}
	}

	return sb.String()
}

// stepID prefixes step IDs so they never collide with Mermaid keywords
// such as "end".
func stepID(id string) string {
	return "step_" + sanitizeMermaidID(id)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
