// Package flow holds the workflow state machines behind the HTTP surface:
// email verification (signup, password reset, verify-existing) and booking
// checkout. Each flow instance is owned by a single client and serialized by
// its own lock; an external call in flight blocks re-entrant submits instead
// of queuing them.
package flow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/brightstay/stayflow/internal/backend"
	"github.com/brightstay/stayflow/internal/clock"
	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/internal/otp"
	"github.com/brightstay/stayflow/internal/validate"
	"github.com/brightstay/stayflow/pkg/events"
	"github.com/brightstay/stayflow/pkg/logger"
)

type VerificationMode string

const (
	// ModeSignup proves a new address before registration.
	ModeSignup VerificationMode = "signup"
	// ModeReset proves ownership before a password reset.
	ModeReset VerificationMode = "reset"
	// ModeEmailVerify proves an existing account's address, typically when
	// checkout demands it.
	ModeEmailVerify VerificationMode = "email_verify"
)

type VerificationState string

const (
	StateCollectingIdentifier  VerificationState = "collecting_identifier"
	StateAwaitingCode          VerificationState = "awaiting_code"
	StateCollectingNewPassword VerificationState = "collecting_new_password"
	StateVerified              VerificationState = "completed"
)

// AccountBackend is the slice of the platform API the verification flow
// drives.
type AccountBackend interface {
	InitiateSignup(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	SendVerificationOTP(ctx context.Context, email string) error
	VerifySignupOTP(ctx context.Context, email, otp string) error
	VerifyOTP(ctx context.Context, email, otp string) error
	ResendOTP(ctx context.Context, email string) error
	Register(ctx context.Context, req *backend.RegisterRequest) (*domain.Session, error)
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

// Verification walks CollectingIdentifier -> AwaitingCode -> (reset only:
// CollectingNewPassword ->) Verified. Every backend failure leaves the state
// where it was; the caller resubmits.
type Verification struct {
	mu        sync.Mutex
	mode      VerificationMode
	state     VerificationState
	backend   AccountBackend
	bus       events.Publisher
	clock     clock.Clock
	wait      time.Duration
	countdown *otp.Countdown
	email     string
	code      string
	inFlight  bool
}

func NewVerification(mode VerificationMode, ab AccountBackend, bus events.Publisher, clk clock.Clock, resendWait time.Duration) *Verification {
	return &Verification{
		mode:    mode,
		state:   StateCollectingIdentifier,
		backend: ab,
		bus:     bus,
		clock:   clk,
		wait:    resendWait,
	}
}

func (v *Verification) Mode() VerificationMode { return v.mode }

// begin reserves the flow for one external call.
func (v *Verification) begin(want ...VerificationState) (VerificationState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.inFlight {
		return v.state, ErrOperationInFlight
	}
	for _, s := range want {
		if v.state == s {
			v.inFlight = true
			return v.state, nil
		}
	}
	return v.state, ErrInvalidTransition
}

func (v *Verification) end() {
	v.mu.Lock()
	v.inFlight = false
	v.mu.Unlock()
}

// SubmitEmail sends the verification code request. On success the flow moves
// to AwaitingCode and the resend countdown starts.
func (v *Verification) SubmitEmail(ctx context.Context, email string) error {
	if _, err := v.begin(StateCollectingIdentifier); err != nil {
		return err
	}
	defer v.end()

	email = validate.NormalizeEmail(email)
	if err := validate.Check("email", validate.Email(email)); err != nil {
		return err
	}

	var err error
	switch v.mode {
	case ModeReset:
		err = v.backend.ForgotPassword(ctx, email)
	case ModeEmailVerify:
		err = v.backend.SendVerificationOTP(ctx, email)
	default:
		err = v.backend.InitiateSignup(ctx, email)
	}
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.email = email
	v.state = StateAwaitingCode
	if v.countdown != nil {
		v.countdown.Stop()
	}
	v.countdown = otp.NewCountdown(v.clock, v.wait)
	v.countdown.Run(context.Background(), nil, func() {
		logger.Debug("Resend unlocked", "email", email)
	})
	v.mu.Unlock()

	if v.mode == ModeSignup {
		_ = v.bus.Publish(ctx, events.SignupStarted, map[string]string{"email": email})
	}
	return nil
}

// SubmitCode verifies the entered code. Reset mode advances to new-password
// collection, the other modes complete.
func (v *Verification) SubmitCode(ctx context.Context, code string) error {
	if _, err := v.begin(StateAwaitingCode); err != nil {
		return err
	}
	defer v.end()

	code = strings.TrimSpace(code)
	if len(code) != domain.OTPLength || !allDigits(code) {
		return ErrInvalidCode
	}

	var err error
	if v.mode == ModeSignup {
		err = v.backend.VerifySignupOTP(ctx, v.email, code)
	} else {
		err = v.backend.VerifyOTP(ctx, v.email, code)
	}
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.code = code
	if v.mode == ModeReset {
		v.state = StateCollectingNewPassword
	} else {
		v.state = StateVerified
	}
	if v.countdown != nil {
		v.countdown.Stop()
	}
	v.mu.Unlock()

	if v.mode == ModeEmailVerify {
		_ = v.bus.Publish(ctx, events.EmailVerified, events.EmailVerifiedEvent{
			Email:      v.email,
			VerifiedAt: v.clock.Now(),
		})
	}
	return nil
}

// Resend requests a fresh code. Only legal once the countdown has elapsed; a
// successful resend restarts it.
func (v *Verification) Resend(ctx context.Context) error {
	if _, err := v.begin(StateAwaitingCode); err != nil {
		return err
	}
	defer v.end()

	if v.countdown == nil || !v.countdown.CanResend() {
		return ErrResendUnavailable
	}

	if err := v.backend.ResendOTP(ctx, v.email); err != nil {
		return err
	}

	v.countdown.Reset()
	return nil
}

// ChangeEmail abandons the pending code and returns to identifier entry.
func (v *Verification) ChangeEmail() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.inFlight {
		return ErrOperationInFlight
	}
	if v.state != StateAwaitingCode {
		return ErrInvalidTransition
	}

	v.state = StateCollectingIdentifier
	v.email = ""
	v.code = ""
	if v.countdown != nil {
		v.countdown.Stop()
		v.countdown = nil
	}
	return nil
}

// SignupProfile is the detail block collected after the address is proven.
type SignupProfile struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// CompleteSignup registers the account with the verified address and code.
func (v *Verification) CompleteSignup(ctx context.Context, profile SignupProfile) (*domain.Session, error) {
	if v.mode != ModeSignup {
		return nil, ErrInvalidTransition
	}
	if _, err := v.begin(StateVerified); err != nil {
		return nil, err
	}
	defer v.end()

	if err := validate.Check("firstName", validate.Field(profile.FirstName)); err != nil {
		return nil, err
	}
	if err := validate.Check("lastName", validate.Field(profile.LastName)); err != nil {
		return nil, err
	}
	if err := validate.Check("phone", validate.Field(profile.Phone)); err != nil {
		return nil, err
	}
	if err := validate.Check("password", validate.Password(profile.Password)); err != nil {
		return nil, err
	}
	if err := validate.Check("confirmPassword", validate.Confirm(profile.Password, profile.ConfirmPassword)); err != nil {
		return nil, err
	}

	sess, err := v.backend.Register(ctx, &backend.RegisterRequest{
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Email:     v.email,
		Phone:     profile.Phone,
		Password:  profile.Password,
		OTP:       v.code,
	})
	if err != nil {
		return nil, err
	}

	_ = v.bus.Publish(ctx, events.SignupCompleted, events.SignupCompletedEvent{
		UserID:      sess.UserID,
		Email:       sess.Email,
		CompletedAt: v.clock.Now(),
	})
	return sess, nil
}

// CompleteReset submits the new password, ending a reset flow.
func (v *Verification) CompleteReset(ctx context.Context, newPassword, confirmPassword string) error {
	if v.mode != ModeReset {
		return ErrInvalidTransition
	}
	if _, err := v.begin(StateCollectingNewPassword); err != nil {
		return err
	}
	defer v.end()

	if err := validate.Check("newPassword", validate.Password(newPassword)); err != nil {
		return err
	}
	if err := validate.Check("confirmPassword", validate.Confirm(newPassword, confirmPassword)); err != nil {
		return err
	}

	if err := v.backend.ResetPassword(ctx, v.email, v.code, newPassword); err != nil {
		return err
	}

	v.mu.Lock()
	v.state = StateVerified
	v.mu.Unlock()

	_ = v.bus.Publish(ctx, events.PasswordResetDone, events.PasswordResetEvent{
		Email:   v.email,
		ResetAt: v.clock.Now(),
	})
	return nil
}

// VerificationSnapshot is what the client renders.
type VerificationSnapshot struct {
	Mode    VerificationMode           `json:"mode"`
	State   VerificationState          `json:"state"`
	Attempt domain.VerificationAttempt `json:"attempt"`
}

func (v *Verification) Snapshot() VerificationSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	attempt := domain.VerificationAttempt{Email: v.email}
	switch v.state {
	case StateAwaitingCode:
		attempt.Step = domain.StepAwaitingInput
	case StateCollectingNewPassword, StateVerified:
		attempt.Step = domain.StepVerified
	default:
		attempt.Step = domain.StepRequestSent
	}
	if v.countdown != nil {
		attempt.ExpiresInSeconds = v.countdown.Remaining()
		attempt.ResendAvailable = v.countdown.CanResend()
	}

	return VerificationSnapshot{Mode: v.mode, State: v.state, Attempt: attempt}
}

func (v *Verification) State() VerificationState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Verification) Email() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.email
}

// Close tears the flow down. The countdown goroutine must not outlive the
// flow instance.
func (v *Verification) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.countdown != nil {
		v.countdown.Stop()
	}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
