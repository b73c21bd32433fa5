package domain

// VerificationStatus is the outcome of an email verification attempt.
type VerificationStatus string

const (
	VerificationSuccess         VerificationStatus = "success"
	VerificationAlreadyVerified VerificationStatus = "already_verified"
	VerificationError           VerificationStatus = "error"
)
