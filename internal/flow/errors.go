package flow

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is not legal in the
	// flow's current state. The state is left untouched.
	ErrInvalidTransition = errors.New("operation not allowed in current state")

	// ErrOperationInFlight guards against double submission while an
	// external call is pending.
	ErrOperationInFlight = errors.New("another operation is already in progress")

	// ErrVerificationRequired means the signed-in account has not proven its
	// email yet; checkout stays in place until verification succeeds.
	ErrVerificationRequired = errors.New("email verification required before booking")

	// ErrResendUnavailable is returned while the resend countdown is still
	// running.
	ErrResendUnavailable = errors.New("resend not available until the countdown ends")

	// ErrInvalidCode rejects a code that is not exactly six digits before any
	// network call is made.
	ErrInvalidCode = errors.New("verification code must be 6 digits")

	// ErrPaymentSelected means the other payment branch was already chosen;
	// the guest must go back to editing before switching.
	ErrPaymentSelected = errors.New("a payment method is already selected")

	// ErrNoPaymentPending is returned by the online confirm and fail
	// callbacks when no online payment was started.
	ErrNoPaymentPending = errors.New("no online payment in progress")

	// ErrPaymentMismatch rejects a confirm callback whose reference belongs
	// to a different payment than the one this flow opened.
	ErrPaymentMismatch = errors.New("payment reference does not match the pending payment")
)
