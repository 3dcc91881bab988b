package domain

import "time"

// Age verification lifecycle states.
const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
	VerificationExpired  = "expired"
)

// Veriff decision codes delivered on the webhook.
const (
	DecisionApproved     = 9001
	DecisionRejected     = 9102
	DecisionResubmission = 9103
	DecisionExpired      = 9104
)

// MaxVerificationAttempts caps how many Veriff sessions a user may start.
const MaxVerificationAttempts = 3

// AgeVerification tracks one user's KYC state against the Veriff vendor.
// SessionID is the vendor-issued session identifier; a user has at most one
// row, mutated in place as attempts and decisions arrive.
type AgeVerification struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	SessionID    string     `json:"session_id"`
	SessionURL   string     `json:"session_url,omitempty"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	DecisionCode *int       `json:"decision_code,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	CreatedAt    time.Time  `json:"created"`
	UpdatedAt    time.Time  `json:"updated"`
}

// Decided reports whether the verification reached a terminal decision.
func (v *AgeVerification) Decided() bool {
	return v.Status == VerificationApproved || v.Status == VerificationRejected
}

// VerificationDecision is the parsed body of a Veriff decision webhook.
type VerificationDecision struct {
	SessionID string
	Code      int
	Reason    string
}
