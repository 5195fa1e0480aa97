// Package review decides whether a guest may leave a hotel review. The gate
// fails closed: any backend problem reads as "not eligible" and is only
// logged, never surfaced to the guest.
package review

import (
	"context"

	"github.com/brightstay/stayflow/internal/backend"
	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/pkg/logger"
)

type EligibilityChecker interface {
	ReviewEligibility(ctx context.Context, hotelID, userID int64) (*backend.EligibilityResult, error)
}

type Gate struct {
	backend EligibilityChecker
}

func NewGate(checker EligibilityChecker) *Gate {
	return &Gate{backend: checker}
}

// Check resolves the guest's eligibility for the hotel. A signed-out guest
// (userID <= 0) is never eligible.
func (g *Gate) Check(ctx context.Context, hotelID, userID int64) domain.ReviewEligibility {
	out := domain.ReviewEligibility{
		HotelID: hotelID,
		UserID:  userID,
		Message: domain.MsgNotEligible,
	}

	if userID <= 0 {
		return out
	}

	res, err := g.backend.ReviewEligibility(ctx, hotelID, userID)
	if err != nil {
		logger.WarnContext(ctx, "Eligibility check failed, treating as not eligible",
			"hotel_id", hotelID,
			"user_id", userID,
			"error", err,
		)
		return out
	}

	if res.CanReview {
		out.CanReview = true
		out.Message = ""
		return out
	}

	if res.Reason == domain.ReasonCompletedStayRequired {
		out.Message = domain.MsgCompletedStayRequired
	}

	return out
}
