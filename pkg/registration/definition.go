package registration

import (
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/dsl"
	"github.com/clubdesk/formflow/pkg/schema"
)

// WizardID identifies the member registration wizard.
const WizardID = "member-registration"

// Step indices, in order.
const (
	StepAccount = iota
	StepPersonal
	StepHealth
	StepSports
	StepConfirm
)

// Membership plans offered on the confirmation step.
var Plans = []string{"monthly", "quarterly", "annual"}

// Definition returns the sports-club member registration wizard.
func Definition() *schema.Definition {
	b := dsl.New(WizardID).
		Title("Member registration").
		Describe("Join the club in five short steps.")

	b.Step("account").
		Title("Account").
		Describe("Your login details. The password needs **at least 8 characters**.").
		Field("fullName").Label("Full name").Required().
		Field("email").Label("E-mail").Kind(domain.KindEmail).Required().
		Field("password").Label("Password").Kind(domain.KindPassword).Required().MinLength(8).Sensitive().
		Field("confirmPassword").Label("Confirm password").Kind(domain.KindPassword).Required().Matches("password").Sensitive()

	b.Step("personal").
		Title("Personal details").
		Field("preferredName").Label("Preferred name").Optional().
		Field("phone").Label("Phone").Required().Pattern(`^\+?[0-9 ()-]{7,20}$`).
		Field("dateOfBirth").Label("Date of birth (YYYY-MM-DD)").Required().Pattern(`^\d{4}-\d{2}-\d{2}$`).
		Field("gender").Label("Gender").Kind(domain.KindChoice).Options("female", "male", "other", "prefer_not_to_say").Optional().
		Field("emergencyContact").Label("Emergency contact").Optional()

	b.Step("health").
		Title("Health").
		Describe("Coaches use this to plan safe sessions. It is never shared.").
		Field("chronicIllness").Label("Any chronic illness?").Kind(domain.KindChoice).Options("yes", "no").Default("no").Required().
		Field("chronicIllnessDetails").Label("Chronic illness details").
		Field("injuries").Label("Any past injuries?").Kind(domain.KindChoice).Options("yes", "no").Default("no").Required().
		Field("injuryDetails").Label("Injury details").
		Field("medications").Label("Medications (comma separated)").Kind(domain.KindList).Optional()

	b.Step("sports").
		Title("Sports & preferences").
		Field("sports").Label("Sports (comma separated)").Kind(domain.KindList).Required().MinItems(1).
		Field("priorTraining").Label("Trained before?").Kind(domain.KindChoice).Options("yes", "no").Default("no").Required().
		Field("trainingYears").Label("Years of training").Kind(domain.KindNumber).Numeric(schema.NumericInt).
		Field("availability").Label("Preferred training time").Kind(domain.KindTimeRange).Optional().
		Field("goals").Label("Goals (one per line)").Kind(domain.KindList).Delimiter("\n").Optional()

	b.Step("confirm").
		Title("Confirm").
		Field("membershipPlan").Label("Membership plan").Kind(domain.KindChoice).Options(Plans...).Required().
		Field("agreeToTerms").Label("I agree to the club terms").Kind(domain.KindBoolean).MustBeTrue()

	b.When("chronicIllness", "yes").Reveal("chronicIllnessDetails")
	b.When("injuries", "yes").Reveal("injuryDetails")
	b.When("priorTraining", "yes").Reveal("trainingYears")

	b.Check("sports", "trainingYears", `int(fields.trainingYears) >= 0 && int(fields.trainingYears) <= 80`,
		domain.ReasonPatternMismatch, "Years of training must be between 0 and 80")

	return b.MustBuild()
}
