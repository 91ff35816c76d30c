package domain

import "time"

// VerificationLog is an append-only record of one verification attempt.
type VerificationLog struct {
	ID                  string
	DiscountCodeID      string
	Success             bool
	ErrorMessage        *string
	VerificationDetails string
	CreatedAt           time.Time
}

// VerificationOutcome classifies how a verification attempt ended.
type VerificationOutcome string

const (
	OutcomeVerified       VerificationOutcome = "verified"
	OutcomeNoInput        VerificationOutcome = "no_input"
	OutcomeRejected       VerificationOutcome = "rejected"
	OutcomeInconclusive   VerificationOutcome = "inconclusive"
	OutcomeTechnicalError VerificationOutcome = "technical_error"
)

// VerificationResult is what a verifier reports for one candidate.
// Valid is true only for OutcomeVerified.
type VerificationResult struct {
	Valid   bool
	Outcome VerificationOutcome
	Details string
}
