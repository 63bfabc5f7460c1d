package runtime_test

import (
	"testing"

	"github.com/clubdesk/formflow/internal/runtime"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/dsl"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_ConditionalRoundTrip(t *testing.T) {
	def := registration.Definition()
	r := runtime.NewResolver(def)
	store := def.Defaults()

	assert.False(t, r.IsRequired("chronicIllnessDetails", store))
	assert.False(t, r.IsVisible("chronicIllnessDetails", store))

	store, _ = store.Set("chronicIllness", "yes")
	store, _ = store.Set("chronicIllnessDetails", "Asthma")
	assert.True(t, r.IsRequired("chronicIllnessDetails", store))
	assert.True(t, r.IsVisible("chronicIllnessDetails", store))

	store, _ = store.Set("chronicIllness", "no")
	assert.False(t, r.IsRequired("chronicIllnessDetails", store), "requiredness restored")
	assert.Equal(t, "Asthma", store.Value("chronicIllnessDetails"), "value preserved while hidden")
}

func TestResolver_TriggerIsCaseInsensitive(t *testing.T) {
	def := registration.Definition()
	r := runtime.NewResolver(def)
	store, _ := def.Defaults().Set("priorTraining", " YES ")

	assert.True(t, r.IsRequired("trainingYears", store))
}

func TestResolver_Effects(t *testing.T) {
	b := dsl.New("effects")
	b.Step("one").
		Field("member").Kind(domain.KindBoolean).
		Field("memberID").Required().
		Field("discount").
		Field("notes").Required()
	b.When("member", "yes").Show("memberID")
	b.When("member", "true").Require("discount")
	b.When("memberID", "vip").Reveal("notes")
	def, err := b.Build()
	require.NoError(t, err)

	r := runtime.NewResolver(def)
	store := def.Defaults()

	t.Run("untriggered", func(t *testing.T) {
		assert.False(t, r.IsVisible("memberID", store), "show hides")
		assert.True(t, r.IsVisible("discount", store), "require keeps visible")
		assert.False(t, r.IsRequired("discount", store))
	})

	store, _ = store.Set("member", true)
	store, _ = store.Set("memberID", "VIP")

	t.Run("triggered", func(t *testing.T) {
		assert.True(t, r.IsVisible("memberID", store))
		assert.True(t, r.IsRequired("memberID", store), "show keeps the static flag")
		assert.True(t, r.IsRequired("discount", store))
		assert.True(t, r.IsRequired("notes", store))
	})

	t.Run("chain hides with its controller", func(t *testing.T) {
		off, _ := store.Set("member", false)
		assert.False(t, r.IsVisible("memberID", off))
		assert.False(t, r.IsVisible("notes", off), "memberID still says vip, but it is hidden")
		assert.Equal(t, "VIP", off.Value("memberID"))
	})
}

func TestResolver_UnknownField(t *testing.T) {
	def := registration.Definition()
	r := runtime.NewResolver(def)
	assert.False(t, r.IsVisible("nickname", def.Defaults()))
	assert.False(t, r.IsRequired("nickname", def.Defaults()))
}

func TestMatches(t *testing.T) {
	tests := []struct {
		value   domain.Value
		trigger string
		want    bool
	}{
		{"yes", "yes", true},
		{"Yes", "yes", true},
		{"no", "yes", false},
		{true, "yes", true},
		{true, "true", true},
		{false, "no", true},
		{false, "yes", false},
		{[]string{"Yoga", "Boxing"}, "boxing", true},
		{[]string{}, "boxing", false},
		{map[string]any{"from": "yes"}, "yes", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, runtime.Matches(tt.value, tt.trigger), "Matches(%v, %q)", tt.value, tt.trigger)
	}
}
