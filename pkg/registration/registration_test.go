package registration

import (
	"testing"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinition_IsValid(t *testing.T) {
	def := Definition()
	require.NoError(t, def.Validate())

	assert.Equal(t, WizardID, def.ID)
	assert.Len(t, def.Steps, 5)
	assert.Equal(t, "confirm", def.Steps[StepConfirm].ID)
	assert.Equal(t, StepHealth, def.StepOf("chronicIllnessDetails"))
	assert.ElementsMatch(t, []string{"password", "confirmPassword"}, def.Sensitive())
}

func TestDecode(t *testing.T) {
	payload := domain.Payload{
		"fullName":       "Ada Lovelace",
		"email":          "ada@example.com",
		"password":       "longenough1",
		"phone":          "+44 20 7946 0000",
		"dateOfBirth":    "1990-12-10",
		"chronicIllness": "no",
		"injuries":       "yes",
		"injuryDetails":  "Left knee",
		"sports":         []string{"Yoga", "Pilates"},
		"priorTraining":  "yes",
		"trainingYears":  4,
		"availability":   map[string]any{"from": "18:00", "to": "20:00"},
		"membershipPlan": "annual",
		"agreeToTerms":   true,
	}

	reg, err := Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", reg.DisplayName())
	assert.Equal(t, []string{"Yoga", "Pilates"}, reg.Sports)
	assert.Equal(t, 4, reg.TrainingYears)
	require.NotNil(t, reg.Availability)
	assert.Equal(t, "18:00", reg.Availability.From)
	assert.True(t, reg.AgreeToTerms)
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	_, err := Decode(domain.Payload{"fullName": "Ada", "email": "a@b.co", "nickname": "A"})
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	store := Definition().Defaults()
	set := func(name string, v any) {
		var err error
		store, err = store.Set(name, v)
		require.NoError(t, err)
	}
	set("fullName", "Ada Lovelace")
	set("preferredName", "Ada")
	set("email", "ada@example.com")
	set("injuries", "yes")
	set("sports", "Yoga, , Boxing")

	lines := make(map[string]string)
	for _, l := range Summary(store) {
		lines[l.Label] = l.Value
	}

	assert.Equal(t, "Ada", lines["Name"], "preferred name wins")
	assert.Equal(t, "N/A", lines["Phone"])
	assert.Equal(t, "N/A", lines["Emergency contact"], "falls back to phone, then N/A")
	assert.Equal(t, "past injuries", lines["Health notes"])
	assert.Equal(t, "Yoga, Boxing", lines["Sports"])
	assert.Equal(t, "beginner", lines["Experience"])
	assert.Equal(t, "N/A", lines["Availability"])
}
