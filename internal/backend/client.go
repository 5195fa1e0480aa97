// Package backend is the REST client for the remote platform API. The wire
// contract is fixed: expected failures arrive as {success:false, message} or a
// non-2xx with a message body, and are returned as *RequestFailure values so
// flows can surface the message verbatim and stay in place for a retry.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/pkg/logger"
	"github.com/google/go-querystring/query"
	"github.com/sony/gobreaker/v2"
)

// RequestFailure is an expected failure reported by the backend (invalid OTP,
// wrong credentials, duplicate email). The message is user-visible.
type RequestFailure struct {
	Status  int
	Message string
}

func (e *RequestFailure) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsRequestFailure reports whether err carries a backend-provided message.
func IsRequestFailure(err error) (*RequestFailure, bool) {
	var rf *RequestFailure
	if err == nil {
		return nil, false
	}
	if f, ok := err.(*RequestFailure); ok {
		rf = f
	}
	return rf, rf != nil
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

func New(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:        "platform-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// statusResponse is the common success/message envelope.
type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type backendUser struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

func (u *backendUser) toSession() *domain.Session {
	return &domain.Session{
		UserID:          u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Phone:           u.Phone,
		IsEmailVerified: u.IsEmailVerified,
	}
}

type userResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *backendUser `json:"user"`
}

// --- Verification operations ---

func (c *Client) InitiateSignup(ctx context.Context, email string) error {
	return c.postStatus(ctx, "/auth/initiate-signup", map[string]string{"email": email})
}

func (c *Client) VerifySignupOTP(ctx context.Context, email, otp string) error {
	return c.postStatus(ctx, "/auth/verify-signup-otp", map[string]string{"email": email, "otp": otp})
}

func (c *Client) SendVerificationOTP(ctx context.Context, email string) error {
	return c.postStatus(ctx, "/auth/send-otp", map[string]string{"email": email})
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	return c.postStatus(ctx, "/auth/verify-otp", map[string]string{"email": email, "otp": otp})
}

func (c *Client) ResendOTP(ctx context.Context, email string) error {
	return c.postStatus(ctx, "/auth/resend-otp", map[string]string{"email": email})
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.postStatus(ctx, "/auth/forgot-password", map[string]string{"email": email})
}

func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	return c.postStatus(ctx, "/auth/reset-password", map[string]string{
		"email":       email,
		"otp":         otp,
		"newPassword": newPassword,
	})
}

// --- Account operations ---

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	OTP       string `json:"otp"`
}

func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*domain.Session, error) {
	var res userResponse
	if err := c.postJSON(ctx, "/auth/signup", req, &res); err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, &RequestFailure{Message: "registration failed"}
	}
	return res.User.toSession(), nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var res userResponse
	if err := c.postJSON(ctx, "/auth/login", map[string]string{"email": email, "password": password}, &res); err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, &RequestFailure{Message: "login failed"}
	}
	return res.User.toSession(), nil
}

func (c *Client) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := c.getJSON(ctx, "/auth/exists/email/"+url.PathEscape(email), &exists); err != nil {
		return false, err
	}
	return exists, nil
}

// --- Hotel operations ---

func (c *Client) ClaimStatus(ctx context.Context, hotelID int64) (bool, error) {
	var res struct {
		Claimed bool `json:"claimed"`
	}
	path := fmt.Sprintf("/hotels/%d/claim-status", hotelID)
	if err := c.getJSON(ctx, path, &res); err != nil {
		return false, err
	}
	return res.Claimed, nil
}

type eligibilityQuery struct {
	UserID int64 `url:"userId"`
}

type EligibilityResult struct {
	CanReview bool   `json:"canReview"`
	Reason    string `json:"reason"`
}

func (c *Client) ReviewEligibility(ctx context.Context, hotelID, userID int64) (*EligibilityResult, error) {
	values, err := query.Values(eligibilityQuery{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode eligibility query: %w", err)
	}

	var res EligibilityResult
	path := fmt.Sprintf("/hotels/%d/review-eligibility?%s", hotelID, values.Encode())
	if err := c.getJSON(ctx, path, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Booking operations ---

type BookingRequest struct {
	UserID          int64  `json:"userId,omitempty"`
	HotelID         int64  `json:"hotelId"`
	RoomID          *int64 `json:"roomId,omitempty"`
	GuestName       string `json:"guestName"`
	GuestEmail      string `json:"guestEmail"`
	GuestPhone      string `json:"guestPhone"`
	CheckInDate     string `json:"checkInDate"`
	CheckOutDate    string `json:"checkOutDate"`
	Guests          int    `json:"guests"`
	Rooms           int    `json:"rooms"`
	PricePerNight   int64  `json:"pricePerNight"`
	TotalNights     int    `json:"totalNights"`
	TotalAmount     int64  `json:"totalAmount"`
	SpecialRequests string `json:"specialRequests,omitempty"`
	PaymentMethod   string `json:"paymentMethod"`
}

type BookingRecord struct {
	ID               int64  `json:"id"`
	BookingReference string `json:"bookingReference"`
	Status           string `json:"status"`
	PaymentStatus    string `json:"paymentStatus"`
	TotalAmount      int64  `json:"totalAmount"`
}

func (c *Client) CreateBooking(ctx context.Context, req *BookingRequest) (*BookingRecord, error) {
	var res struct {
		statusResponse
		Booking *BookingRecord `json:"booking"`
	}
	if err := c.postJSON(ctx, "/bookings", req, &res); err != nil {
		return nil, err
	}
	if res.Booking == nil {
		return nil, &RequestFailure{Message: "booking was not created"}
	}
	return res.Booking, nil
}

func (c *Client) RecordPayment(ctx context.Context, bookingID int64, paymentRef string) error {
	path := "/bookings/" + strconv.FormatInt(bookingID, 10) + "/payment"
	return c.postStatus(ctx, path, map[string]string{"razorpayPaymentId": paymentRef})
}

func (c *Client) GetBooking(ctx context.Context, bookingID int64) (*BookingRecord, error) {
	var res BookingRecord
	if err := c.getJSON(ctx, "/bookings/"+strconv.FormatInt(bookingID, 10), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UserBookings(ctx context.Context, userID int64) ([]BookingRecord, error) {
	var res []BookingRecord
	if err := c.getJSON(ctx, "/bookings/user/"+strconv.FormatInt(userID, 10), &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID int64) error {
	path := "/bookings/" + strconv.FormatInt(bookingID, 10) + "/cancel"

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	return c.do(req, nil)
}

// --- Wallet operations ---

type Wallet struct {
	Balance      int64 `json:"balance"`
	Transactions []struct {
		ID          int64  `json:"id"`
		Amount      int64  `json:"amount"`
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"transactions"`
}

func (c *Client) UserWallet(ctx context.Context, userID int64) (*Wallet, error) {
	var res Wallet
	if err := c.getJSON(ctx, "/wallet/user/"+strconv.FormatInt(userID, 10), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Transport helpers ---

func (c *Client) postStatus(ctx context.Context, path string, body interface{}) error {
	var res statusResponse
	return c.postJSON(ctx, path, body, &res)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var status statusResponse
		_ = json.Unmarshal(raw, &status)
		return &RequestFailure{Status: resp.StatusCode, Message: status.Message}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	// A 2xx with an explicit success:false still carries a failure message.
	var status statusResponse
	if err := json.Unmarshal(raw, &status); err == nil {
		if !status.Success && status.Message != "" {
			return &RequestFailure{Status: resp.StatusCode, Message: status.Message}
		}
	}

	return nil
}
