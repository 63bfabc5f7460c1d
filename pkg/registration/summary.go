package registration

import (
	"fmt"
	"strings"

	"github.com/clubdesk/formflow/pkg/domain"
)

const notAvailable = "N/A"

// Line is one row of the review shown before confirmation.
type Line struct {
	Label string
	Value string
}

// Summary renders the review of a registration in progress. Each line has
// its own precedence list; missing values render as "N/A".
func Summary(fields domain.FieldStore) []Line {
	values := fields.Snapshot()
	str := func(paths ...string) string {
		return domain.ResolveString(values, paths...).OrElse(notAvailable)
	}

	lines := []Line{
		{"Name", str("preferredName", "fullName")},
		{"E-mail", str("email")},
		{"Phone", str("phone")},
		{"Emergency contact", str("emergencyContact", "phone")},
		{"Date of birth", str("dateOfBirth")},
		{"Health notes", health(values)},
		{"Sports", list(values, "sports", ",")},
		{"Experience", experience(values)},
		{"Availability", availability(values)},
		{"Plan", str("membershipPlan")},
	}
	return lines
}

func health(values map[string]any) string {
	var notes []string
	if strings.EqualFold(domain.AsString(values["chronicIllness"]), "yes") {
		notes = append(notes, domain.ResolveString(values, "chronicIllnessDetails").OrElse("chronic illness"))
	}
	if strings.EqualFold(domain.AsString(values["injuries"]), "yes") {
		notes = append(notes, domain.ResolveString(values, "injuryDetails").OrElse("past injuries"))
	}
	if len(notes) == 0 {
		return "none declared"
	}
	return strings.Join(notes, "; ")
}

func list(values map[string]any, key, sep string) string {
	var items []string
	for _, part := range strings.Split(domain.AsString(values[key]), sep) {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return notAvailable
	}
	return strings.Join(items, ", ")
}

func experience(values map[string]any) string {
	if !strings.EqualFold(domain.AsString(values["priorTraining"]), "yes") {
		return "beginner"
	}
	years := domain.ResolveString(values, "trainingYears")
	if y, ok := years.Get(); ok {
		return fmt.Sprintf("%s years", y)
	}
	return "trained before"
}

func availability(values map[string]any) string {
	from := domain.ResolveString(values, "availability.from")
	to := domain.ResolveString(values, "availability.to")
	f, okFrom := from.Get()
	t, okTo := to.Get()
	if !okFrom || !okTo {
		return notAvailable
	}
	return f + " to " + t
}
