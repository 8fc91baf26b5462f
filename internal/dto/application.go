package dto

// SubmitApplicationRequest creates and submits a license application.
type SubmitApplicationRequest struct {
	LicenseType string `json:"licenseType"`
}

// ConfirmPaymentRequest is posted by the payment gateway collaborator once a
// license fee settles.
type ConfirmPaymentRequest struct {
	Reference string `json:"reference"`
}
