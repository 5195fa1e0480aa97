package domain

// VerificationStep is the position of an in-progress email verification.
type VerificationStep string

const (
	StepRequestSent   VerificationStep = "request_sent"
	StepAwaitingInput VerificationStep = "awaiting_input"
	StepVerified      VerificationStep = "verified"
)

// VerificationAttempt is the snapshot of a verification flow exposed to the
// client: which email is being proven, how long until resend unlocks, and
// whether the code has been accepted. It lives only as long as its flow.
type VerificationAttempt struct {
	Email            string           `json:"email"`
	Step             VerificationStep `json:"step"`
	ExpiresInSeconds int              `json:"expiresInSeconds"`
	ResendAvailable  bool             `json:"resendAvailable"`
}

// OTPLength is the code length the backend issues and accepts.
const OTPLength = 6
