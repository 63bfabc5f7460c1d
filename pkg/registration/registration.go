package registration

import (
	"fmt"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// TimeRange is a preferred training window.
type TimeRange struct {
	From string `json:"from" mapstructure:"from"`
	To   string `json:"to" mapstructure:"to"`
}

// Registration is the typed form of a submitted registration payload.
type Registration struct {
	FullName         string `json:"fullName" mapstructure:"fullName"`
	PreferredName    string `json:"preferredName,omitempty" mapstructure:"preferredName"`
	Email            string `json:"email" mapstructure:"email"`
	Password         string `json:"-" mapstructure:"password"`
	Phone            string `json:"phone" mapstructure:"phone"`
	DateOfBirth      string `json:"dateOfBirth" mapstructure:"dateOfBirth"`
	Gender           string `json:"gender,omitempty" mapstructure:"gender"`
	EmergencyContact string `json:"emergencyContact,omitempty" mapstructure:"emergencyContact"`

	ChronicIllness        string   `json:"chronicIllness" mapstructure:"chronicIllness"`
	ChronicIllnessDetails string   `json:"chronicIllnessDetails,omitempty" mapstructure:"chronicIllnessDetails"`
	Injuries              string   `json:"injuries" mapstructure:"injuries"`
	InjuryDetails         string   `json:"injuryDetails,omitempty" mapstructure:"injuryDetails"`
	Medications           []string `json:"medications,omitempty" mapstructure:"medications"`

	Sports        []string   `json:"sports" mapstructure:"sports"`
	PriorTraining string     `json:"priorTraining" mapstructure:"priorTraining"`
	TrainingYears int        `json:"trainingYears,omitempty" mapstructure:"trainingYears"`
	Availability  *TimeRange `json:"availability,omitempty" mapstructure:"availability"`
	Goals         []string   `json:"goals,omitempty" mapstructure:"goals"`

	MembershipPlan string `json:"membershipPlan" mapstructure:"membershipPlan"`
	AgreeToTerms   bool   `json:"agreeToTerms" mapstructure:"agreeToTerms"`
}

// Decode converts an assembled payload into a Registration.
func Decode(payload domain.Payload) (*Registration, error) {
	var reg Registration
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &reg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]any(payload)); err != nil {
		return nil, fmt.Errorf("failed to decode registration: %w", err)
	}
	if reg.Email == "" || reg.FullName == "" {
		return nil, fmt.Errorf("registration payload is missing identity fields")
	}
	return &reg, nil
}

// DisplayName prefers the preferred name over the legal name.
func (r *Registration) DisplayName() string {
	if r.PreferredName != "" {
		return r.PreferredName
	}
	return r.FullName
}
