package dto

// SubmitRegistrationRequest is the full application form payload. Fields
// beyond email and phone are presence-checked only; their content is opaque
// to the admission core.
type SubmitRegistrationRequest struct {
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	DateOfBirth     string `json:"dateOfBirth" validate:"required"`
	EmailAddress    string `json:"emailAddress" validate:"required,email"`
	CountryCode     string `json:"countryCode" validate:"required"`
	Phone           string `json:"phone" validate:"required,min=5"`
	Address         string `json:"address" validate:"required"`
	City            string `json:"city" validate:"required"`
	State           string `json:"state" validate:"required"`
	CountryOrRegion string `json:"countryOrRegion" validate:"required"`
	ZipOrPostalCode string `json:"zipOrPostalCode" validate:"required"`
	Resident        string `json:"resident" validate:"required"`
	EnrollmentType  string `json:"enrollmentType" validate:"required"`
	CourseType      string `json:"courseType" validate:"required"`
	SelectedCourse  string `json:"selectedCourse"`
	GraduationYear  string `json:"graduationYear" validate:"required"`
	HowDidYouHear   string `json:"howDidYouHearAboutIHU" validate:"required"`
	Objectives      string `json:"objectives" validate:"required"`
	Signature       string `json:"signature" validate:"required"`
}

// SubmitRegistrationResponse reports the outcome of a submission.
type SubmitRegistrationResponse struct {
	Success    bool   `json:"success"`
	InsertedID string `json:"insertedId,omitempty"`
}

// UniquenessResponse is the availability lookup reply.
type UniquenessResponse struct {
	Exists bool `json:"exists"`
}

// OpenAttemptResponse describes the checkout session opened for a registration.
type OpenAttemptResponse struct {
	RegistrationID string `json:"registrationId"`
	SessionID      string `json:"sessionId"`
	CheckoutURL    string `json:"checkoutUrl,omitempty"`
	AmountCents    int64  `json:"amountCents"`
	Currency       string `json:"currency"`
}

// ConfirmPaymentRequest is the completion payload shared by the gateway
// return path and the test completion path.
type ConfirmPaymentRequest struct {
	RegistrationID string `json:"registrationId" validate:"required"`
	OrderID        string `json:"orderId"`
	Test           bool   `json:"test"`
}

// WebhookEvent is the payment provider's confirmation callback body.
type WebhookEvent struct {
	Type           string `json:"type"`
	RegistrationID string `json:"referenceId"`
	OrderID        string `json:"orderId"`
}

// UpdateStatusRequest mutates the administrative review status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED"`
}

// UpdatePaymentStatusRequest mutates the payment status through the
// administrative path.
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required,oneof=PENDING COMPLETED FAILED REFUNDED"`
}
