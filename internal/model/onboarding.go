package model

import (
	"strings"

	"github.com/jwalitptl/care-booking/pkg/slug"
)

// OnboardingRequest is the provider application payload.
type OnboardingRequest struct {
	Name          string   `json:"name"`
	Email         string   `json:"email" binding:"omitempty,email"`
	Phone         string   `json:"phone"`
	Bio           string   `json:"bio"`
	Specialties   []string `json:"specialties"`
	ClinicName    string   `json:"clinic_name"`
	ClinicAddress string   `json:"clinic_address"`
	ClinicPhone   string   `json:"clinic_phone"`
	Island        string   `json:"island"`

	IntegrationType string `json:"integration_type"`
	CompanyID       string `json:"company_id"`
	APIUser         string `json:"api_user"`
	APIKey          string `json:"api_key"`
}

// MissingFields returns every required field that is absent, in payload order.
func (r *OnboardingRequest) MissingFields() []string {
	var missing []string
	check := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	check("name", r.Name)
	check("bio", r.Bio)
	if len(r.CleanSpecialties()) == 0 {
		missing = append(missing, "specialties")
	}
	check("phone", r.Phone)
	check("clinic_name", r.ClinicName)
	check("clinic_address", r.ClinicAddress)
	check("island", r.Island)
	return missing
}

// InvalidFields adds to MissingFields the names that are present but yield an
// empty slug, such as "!!!" or text with no ASCII letters or digits.
func (r *OnboardingRequest) InvalidFields() []string {
	invalid := r.MissingFields()
	for _, f := range []struct{ field, value string }{
		{"name", r.Name},
		{"clinic_name", r.ClinicName},
	} {
		if strings.TrimSpace(f.value) != "" && slug.Make(f.value) == "" {
			invalid = append(invalid, f.field)
		}
	}
	return invalid
}

// CleanSpecialties trims entries and drops blanks, keeping order.
func (r *OnboardingRequest) CleanSpecialties() []string {
	out := make([]string, 0, len(r.Specialties))
	for _, s := range r.Specialties {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// HasIntegration is true only when all three credential fields are present.
func (r *OnboardingRequest) HasIntegration() bool {
	return strings.TrimSpace(r.CompanyID) != "" &&
		strings.TrimSpace(r.APIUser) != "" &&
		strings.TrimSpace(r.APIKey) != ""
}

// OnboardingResult is what a committed onboarding transaction produced.
type OnboardingResult struct {
	Profile      *Profile     `json:"profile"`
	Clinic       *Clinic      `json:"clinic"`
	Provider     *Provider    `json:"provider"`
	Integration  *Integration `json:"integration,omitempty"`
	ClinicReused bool         `json:"clinic_reused"`
}

// OnboardingAck is the non-durable acknowledgment returned when the store is
// unreachable. Durable is always false; callers must not treat it as persisted.
type OnboardingAck struct {
	Status    string `json:"status"`
	Durable   bool   `json:"durable"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}
