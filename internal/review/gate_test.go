package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/brightstay/stayflow/internal/backend"
	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/internal/review"
)

type fakeChecker struct {
	result *backend.EligibilityResult
	err    error
	calls  int
}

func (f *fakeChecker) ReviewEligibility(_ context.Context, hotelID, userID int64) (*backend.EligibilityResult, error) {
	f.calls++
	return f.result, f.err
}

func TestGateEligible(t *testing.T) {
	g := review.NewGate(&fakeChecker{result: &backend.EligibilityResult{CanReview: true}})

	out := g.Check(context.Background(), 3, 7)
	if !out.CanReview {
		t.Error("CanReview = false, want true")
	}
	if out.Message != "" {
		t.Errorf("Message = %q, want empty", out.Message)
	}
}

func TestGateCompletedStayRequired(t *testing.T) {
	g := review.NewGate(&fakeChecker{result: &backend.EligibilityResult{
		CanReview: false,
		Reason:    domain.ReasonCompletedStayRequired,
	}})

	out := g.Check(context.Background(), 3, 7)
	if out.CanReview {
		t.Error("CanReview = true, want false")
	}
	if out.Message != domain.MsgCompletedStayRequired {
		t.Errorf("Message = %q, want completed-stay message", out.Message)
	}
}

func TestGateOtherReason(t *testing.T) {
	g := review.NewGate(&fakeChecker{result: &backend.EligibilityResult{
		CanReview: false,
		Reason:    "BANNED",
	}})

	out := g.Check(context.Background(), 3, 7)
	if out.CanReview {
		t.Error("CanReview = true, want false")
	}
	if out.Message != domain.MsgNotEligible {
		t.Errorf("Message = %q, want generic message", out.Message)
	}
}

// Transport failures read as ineligible, with no error surfaced.
func TestGateFailsClosed(t *testing.T) {
	g := review.NewGate(&fakeChecker{err: errors.New("connection refused")})

	out := g.Check(context.Background(), 3, 7)
	if out.CanReview {
		t.Error("CanReview = true on backend error, want false")
	}
	if out.Message != domain.MsgNotEligible {
		t.Errorf("Message = %q", out.Message)
	}
}

func TestGateAnonymousNeverChecks(t *testing.T) {
	fc := &fakeChecker{result: &backend.EligibilityResult{CanReview: true}}
	g := review.NewGate(fc)

	out := g.Check(context.Background(), 3, 0)
	if out.CanReview {
		t.Error("anonymous guest reported eligible")
	}
	if fc.calls != 0 {
		t.Error("anonymous guest reached the backend")
	}
}
