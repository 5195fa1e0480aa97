package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightstay/stayflow/internal/backend"
)

func newClient(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.New(srv.URL, 5*time.Second)
}

func TestLoginDecodesUser(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ada@example.com" || body["password"] != "secret1" {
			t.Errorf("unexpected body: %v", body)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"user": map[string]interface{}{
				"id":              7,
				"firstName":       "Ada",
				"lastName":        "Byron",
				"email":           "ada@example.com",
				"phone":           "555-0101",
				"isEmailVerified": true,
			},
		})
	})

	sess, err := c.Login(context.Background(), "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if sess.UserID != 7 || sess.FirstName != "Ada" || !sess.IsEmailVerified {
		t.Errorf("session = %+v", sess)
	}
}

func TestLoginFailureCarriesMessage(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "Invalid email or password",
		})
	})

	_, err := c.Login(context.Background(), "ada@example.com", "wrong")
	rf, ok := backend.IsRequestFailure(err)
	if !ok {
		t.Fatalf("error = %v, want *RequestFailure", err)
	}
	if rf.Message != "Invalid email or password" {
		t.Errorf("message = %q, want backend message verbatim", rf.Message)
	}
	if rf.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rf.Status)
	}
}

// A 2xx body can still flag failure.
func TestSuccessFalseOnOKIsFailure(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "Invalid or expired OTP",
		})
	})

	err := c.VerifySignupOTP(context.Background(), "ada@example.com", "000000")
	rf, ok := backend.IsRequestFailure(err)
	if !ok || rf.Message != "Invalid or expired OTP" {
		t.Fatalf("error = %v, want request failure with OTP message", err)
	}
}

func TestReviewEligibilityQuery(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hotels/3/review-eligibility" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("userId"); got != "7" {
			t.Errorf("userId = %q, want 7", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"canReview": false,
			"reason":    "COMPLETED_STAY_REQUIRED",
		})
	})

	res, err := c.ReviewEligibility(context.Background(), 3, 7)
	if err != nil {
		t.Fatalf("ReviewEligibility() error = %v", err)
	}
	if res.CanReview || res.Reason != "COMPLETED_STAY_REQUIRED" {
		t.Errorf("result = %+v", res)
	}
}

func TestClaimStatus(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hotels/3/claim-status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]bool{"claimed": true})
	})

	claimed, err := c.ClaimStatus(context.Background(), 3)
	if err != nil {
		t.Fatalf("ClaimStatus() error = %v", err)
	}
	if !claimed {
		t.Error("claimed = false, want true")
	}
}

func TestCreateBookingAndPayment(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bookings":
			var req backend.BookingRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.TotalAmount != 6600 || req.PaymentMethod != "online" {
				t.Errorf("booking request = %+v", req)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"booking": map[string]interface{}{
					"id":               42,
					"bookingReference": "BSF-0042",
					"status":           "CONFIRMED",
				},
			})
		case "/bookings/42/payment":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["razorpayPaymentId"] != "pi_123" {
				t.Errorf("payment body = %v", body)
			}
			json.NewEncoder(w).Encode(map[string]bool{"success": true})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	booking, err := c.CreateBooking(ctx, &backend.BookingRequest{
		HotelID:       3,
		TotalAmount:   6600,
		PaymentMethod: "online",
	})
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if booking.ID != 42 || booking.BookingReference != "BSF-0042" {
		t.Errorf("booking = %+v", booking)
	}

	if err := c.RecordPayment(ctx, booking.ID, "pi_123"); err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}
}

func TestGetBooking(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bookings/42" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":               42,
			"bookingReference": "BSF-0042",
			"status":           "CONFIRMED",
			"paymentStatus":    "PAID",
			"totalAmount":      6600,
		})
	})

	booking, err := c.GetBooking(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetBooking() error = %v", err)
	}
	if booking.ID != 42 || booking.BookingReference != "BSF-0042" || booking.TotalAmount != 6600 {
		t.Errorf("booking = %+v", booking)
	}
}

func TestEmailExists(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/exists/email/ada@example.com" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(true)
	})

	exists, err := c.EmailExists(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("EmailExists() error = %v", err)
	}
	if !exists {
		t.Error("exists = false, want true")
	}
}
