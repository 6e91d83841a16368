package models

import "time"

// Review status of an admission application. Independent of payment.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Payment status of an admission application. Independent of review.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusRefunded  = "REFUNDED"
)

// ValidStatus reports whether s is a known review status.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Registration is the durable admission application record. Email is stored
// lowercase-normalized; email and (country_code, phone) each carry a unique
// index, which is the authoritative uniqueness guard.
type Registration struct {
	ID          string `db:"id" json:"id"`
	Email       string `db:"email" json:"email"`
	CountryCode string `db:"country_code" json:"country_code"`
	Phone       string `db:"phone" json:"phone"`

	FirstName       string `db:"first_name" json:"first_name"`
	LastName        string `db:"last_name" json:"last_name"`
	DateOfBirth     string `db:"date_of_birth" json:"date_of_birth"`
	Address         string `db:"address" json:"address"`
	City            string `db:"city" json:"city"`
	State           string `db:"state" json:"state"`
	CountryOrRegion string `db:"country_or_region" json:"country_or_region"`
	ZipOrPostalCode string `db:"zip_or_postal_code" json:"zip_or_postal_code"`
	Resident        string `db:"resident" json:"resident"`
	EnrollmentType  string `db:"enrollment_type" json:"enrollment_type"`
	CourseType      string `db:"course_type" json:"course_type"`
	SelectedCourse  string `db:"selected_course" json:"selected_course,omitempty"`
	GraduationYear  string `db:"graduation_year" json:"graduation_year"`
	HowDidYouHear   string `db:"how_did_you_hear" json:"how_did_you_hear"`
	Objectives      string `db:"objectives" json:"objectives"`
	Signature       string `db:"signature" json:"signature"`

	Status        string     `db:"status" json:"status"`
	PaymentStatus string     `db:"payment_status" json:"payment_status"`
	OrderID       *string    `db:"order_id" json:"order_id,omitempty"`
	PaidAt        *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// RegistrationFilter encapsulates allowed search parameters for admin listing.
type RegistrationFilter struct {
	Search        string
	Status        string
	PaymentStatus string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// PaymentAttempt is the ephemeral record of an opened checkout session,
// held in Redis until it is confirmed or superseded.
type PaymentAttempt struct {
	RegistrationID string    `json:"registration_id"`
	SessionID      string    `json:"session_id"`
	CheckoutURL    string    `json:"checkout_url,omitempty"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	OpenedAt       time.Time `json:"opened_at"`
}
