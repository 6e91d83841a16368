package service

import (
	"strings"
	"sync"

	"github.com/ihu-online/admissions-api/internal/models"
)

// Form field names as submitted by the application form.
const (
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldDateOfBirth     = "dateOfBirth"
	FieldEmailAddress    = "emailAddress"
	FieldCountryCode     = "countryCode"
	FieldPhoneNumber     = "phone"
	FieldAddress         = "address"
	FieldCity            = "city"
	FieldState           = "state"
	FieldCountryOrRegion = "countryOrRegion"
	FieldZipOrPostalCode = "zipOrPostalCode"
	FieldResident        = "resident"
	FieldEnrollmentType  = "enrollmentType"
	FieldCourseType      = "courseType"
	FieldSelectedCourse  = "selectedCourse"
	FieldGraduationYear  = "graduationYear"
	FieldHowDidYouHear   = "howDidYouHearAboutIHU"
	FieldObjectives      = "objectives"
	FieldSignature       = "signature"
)

// draftSteps assigns form fields to wizard steps. Step validity gates UI
// navigation only; Submittable re-checks everything.
var draftSteps = [][]string{
	{FieldFirstName, FieldLastName, FieldDateOfBirth, FieldEmailAddress, FieldCountryCode, FieldPhoneNumber},
	{FieldAddress, FieldCity, FieldState, FieldCountryOrRegion, FieldZipOrPostalCode, FieldResident},
	{FieldEnrollmentType, FieldCourseType, FieldGraduationYear},
	{FieldHowDidYouHear, FieldObjectives, FieldSignature},
}

// Draft accumulates form fields and the two uniqueness results for one
// editing session. It performs no network calls of its own and is
// deterministic given its inputs.
type Draft struct {
	mu sync.Mutex

	fields        map[string]string
	requireCourse bool

	email models.UniquenessCheckResult
	phone models.UniquenessCheckResult
}

// NewDraft creates an empty draft. When requireCourse is set, selectedCourse
// joins the required-field set (course-selection deployments).
func NewDraft(requireCourse bool) *Draft {
	return &Draft{
		fields:        make(map[string]string),
		requireCourse: requireCourse,
	}
}

// RequiredFields returns the effective required-field set.
func (d *Draft) RequiredFields() []string {
	fields := make([]string, 0, 19)
	for _, step := range draftSteps {
		fields = append(fields, step...)
	}
	if d.requireCourse {
		fields = append(fields, FieldSelectedCourse)
	}
	return fields
}

// SetField records a form value.
func (d *Draft) SetField(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fields[name] = value
}

// Field returns the current value of a form field.
func (d *Draft) Field(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fields[name]
}

// ApplyUniqueness records a checker result. Results arriving out of issuance
// order are dropped so a superseded check can never overwrite a newer one.
func (d *Draft) ApplyUniqueness(res models.UniquenessCheckResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch res.Field {
	case models.FieldEmail:
		if res.Seq >= d.email.Seq {
			d.email = res
		}
	case models.FieldPhone:
		if res.Seq >= d.phone.Seq {
			d.phone = res
		}
	}
}

// EmailResult returns the latest applied email uniqueness result.
func (d *Draft) EmailResult() models.UniquenessCheckResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.email
}

// PhoneResult returns the latest applied phone uniqueness result.
func (d *Draft) PhoneResult() models.UniquenessCheckResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phone
}

// FieldComplete reports whether the field holds a non-empty value.
func (d *Draft) FieldComplete(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.TrimSpace(d.fields[name]) != ""
}

// StepValid reports whether every field assigned to the 1-based step is
// complete. Unknown steps are invalid.
func (d *Draft) StepValid(step int) bool {
	if step < 1 || step > len(draftSteps) {
		return false
	}
	for _, name := range draftSteps[step-1] {
		if !d.FieldComplete(name) {
			return false
		}
	}
	if step == 3 && d.requireCourse && !d.FieldComplete(FieldSelectedCourse) {
		return false
	}
	return true
}

// Submittable reports whether the draft may be persisted: every required
// field complete and both uniqueness results available. A result still
// checking, in error, or taken blocks submission (fail-closed).
func (d *Draft) Submittable() bool {
	for _, name := range d.RequiredFields() {
		if !d.FieldComplete(name) {
			return false
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.email.State == models.UniquenessAvailable && d.phone.State == models.UniquenessAvailable
}

// Values returns a copy of the accumulated form fields.
func (d *Draft) Values() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	values := make(map[string]string, len(d.fields))
	for k, v := range d.fields {
		values[k] = v
	}
	return values
}
