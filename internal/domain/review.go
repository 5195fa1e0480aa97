package domain

// Review eligibility reasons returned by the backend.
const (
	ReasonCompletedStayRequired = "COMPLETED_STAY_REQUIRED"
)

// ReviewEligibility is derived per hotel-detail view and never persisted.
type ReviewEligibility struct {
	HotelID   int64  `json:"hotelId"`
	UserID    int64  `json:"userId"`
	CanReview bool   `json:"canReview"`
	Message   string `json:"message,omitempty"`
}

const (
	MsgCompletedStayRequired = "You can review this hotel after completing your stay."
	MsgNotEligible           = "You are not eligible to review this hotel."
)
