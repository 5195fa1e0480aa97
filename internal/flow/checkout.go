package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/brightstay/stayflow/internal/backend"
	"github.com/brightstay/stayflow/internal/clock"
	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/internal/gateway"
	"github.com/brightstay/stayflow/internal/mailer"
	"github.com/brightstay/stayflow/internal/validate"
	"github.com/brightstay/stayflow/pkg/events"
	"github.com/brightstay/stayflow/pkg/logger"
)

type CheckoutState string

const (
	StateCollectingGuestInfo CheckoutState = "collecting_guest_info"
	StateSelectingPayment    CheckoutState = "selecting_payment"
	StateCompleted           CheckoutState = "completed"
)

// BookingBackend is the slice of the platform API the checkout flow drives.
type BookingBackend interface {
	CreateBooking(ctx context.Context, req *backend.BookingRequest) (*backend.BookingRecord, error)
	RecordPayment(ctx context.Context, bookingID int64, paymentRef string) error
}

// SessionSource resolves the account snapshot for the client that owns the
// flow. The verification gate re-reads it on every guest-info submit so a
// verification completed mid-flow is picked up on resubmission.
type SessionSource interface {
	Current(ctx context.Context, clientID string) (*domain.Session, error)
}

// Checkout walks CollectingGuestInfo -> SelectingPayment -> Completed. The
// draft freezes on advance and becomes immutable once committed.
type Checkout struct {
	mu       sync.Mutex
	id       string
	clientID string
	state    CheckoutState
	draft    domain.BookingDraft
	userID   int64

	backend  BookingBackend
	gateway  gateway.Gateway
	mailer   mailer.Service
	sessions SessionSource
	bus      events.Publisher
	clock    clock.Clock

	inFlight      bool
	intent        *gateway.Intent
	booking       *backend.BookingRecord
	failureDetail string
}

type CheckoutDeps struct {
	Backend  BookingBackend
	Gateway  gateway.Gateway
	Mailer   mailer.Service
	Sessions SessionSource
	Bus      events.Publisher
	Clock    clock.Clock
}

// NewCheckout opens a flow for a stay. The quote is computed here and a
// non-positive night count rejects entry outright.
func NewCheckout(id, clientID string, stay domain.Stay, pricePerNight int64, deps CheckoutDeps) (*Checkout, error) {
	if stay.Guests < 1 {
		return nil, fmt.Errorf("at least one guest is required")
	}
	if stay.Rooms < 1 {
		stay.Rooms = 1
	}

	quote, err := domain.NewQuote(pricePerNight, stay.CheckIn, stay.CheckOut, stay.Rooms)
	if err != nil {
		return nil, err
	}

	return &Checkout{
		id:       id,
		clientID: clientID,
		state:    StateCollectingGuestInfo,
		draft: domain.BookingDraft{
			Stay:  stay,
			Quote: quote,
		},
		backend:  deps.Backend,
		gateway:  deps.Gateway,
		mailer:   deps.Mailer,
		sessions: deps.Sessions,
		bus:      deps.Bus,
		clock:    deps.Clock,
	}, nil
}

func (c *Checkout) ID() string { return c.id }

func (c *Checkout) begin(want CheckoutState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return ErrOperationInFlight
	}
	if c.state != want {
		return ErrInvalidTransition
	}
	c.inFlight = true
	return nil
}

func (c *Checkout) end() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

// SubmitGuestInfo validates and freezes the guest identity block. If the
// signed-in account has not verified its email the flow stays put and the
// caller is told to run verification first.
func (c *Checkout) SubmitGuestInfo(ctx context.Context, info domain.GuestInfo) error {
	if err := c.begin(StateCollectingGuestInfo); err != nil {
		return err
	}
	defer c.end()

	if err := validate.Check("firstName", validate.Field(info.FirstName)); err != nil {
		return err
	}
	if err := validate.Check("lastName", validate.Field(info.LastName)); err != nil {
		return err
	}
	if err := validate.Check("email", validate.Email(info.Email)); err != nil {
		return err
	}
	if err := validate.Check("phone", validate.Field(info.Phone)); err != nil {
		return err
	}

	var userID int64
	if c.sessions != nil && c.clientID != "" {
		sess, err := c.sessions.Current(ctx, c.clientID)
		if err != nil {
			return fmt.Errorf("failed to resolve session: %w", err)
		}
		if sess != nil {
			if !sess.IsEmailVerified {
				return ErrVerificationRequired
			}
			userID = sess.UserID
		}
	}

	c.mu.Lock()
	info.Email = validate.NormalizeEmail(info.Email)
	c.draft.GuestInfo = info
	c.userID = userID
	c.state = StateSelectingPayment
	c.mu.Unlock()
	return nil
}

// SelectPayAtHotel commits the draft directly, with no gateway involvement.
func (c *Checkout) SelectPayAtHotel(ctx context.Context) error {
	if err := c.begin(StateSelectingPayment); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	if c.draft.PaymentMethod != domain.PayUnselected {
		c.mu.Unlock()
		return ErrPaymentSelected
	}
	c.draft.PaymentMethod = domain.PayAtHotel
	c.mu.Unlock()

	if err := c.commit(ctx); err != nil {
		c.mu.Lock()
		c.draft.PaymentMethod = domain.PayUnselected
		c.mu.Unlock()
		return err
	}
	return nil
}

// StartOnline opens a gateway payment for the quoted total and hands the
// intent back for the client to drive. The draft stays uncommitted until the
// success callback arrives.
func (c *Checkout) StartOnline(ctx context.Context) (*gateway.Intent, error) {
	if err := c.begin(StateSelectingPayment); err != nil {
		return nil, err
	}
	defer c.end()

	c.mu.Lock()
	if c.draft.PaymentMethod != domain.PayUnselected {
		c.mu.Unlock()
		return nil, ErrPaymentSelected
	}
	c.draft.PaymentMethod = domain.PayOnline
	c.failureDetail = ""
	email := c.draft.GuestInfo.Email
	total := c.draft.Quote.Total
	c.mu.Unlock()

	intent, err := c.gateway.CreateIntent(total, "usd", email)
	if err != nil {
		c.mu.Lock()
		c.draft.PaymentMethod = domain.PayUnselected
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.intent = intent
	c.mu.Unlock()
	return intent, nil
}

// ConfirmOnline handles the gateway success callback: the payment is
// verified against the gateway and the draft commits with its reference.
// Only the reference StartOnline handed out is accepted; a reference from
// another payment is rejected before any gateway call.
func (c *Checkout) ConfirmOnline(ctx context.Context, paymentRef string) error {
	if err := c.begin(StateSelectingPayment); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	if c.draft.PaymentMethod != domain.PayOnline || c.intent == nil {
		c.mu.Unlock()
		return ErrNoPaymentPending
	}
	if paymentRef == "" {
		paymentRef = c.intent.Reference
	}
	if paymentRef != c.intent.Reference {
		c.mu.Unlock()
		return ErrPaymentMismatch
	}
	c.mu.Unlock()

	if err := c.gateway.ConfirmIntent(paymentRef); err != nil {
		return err
	}

	c.mu.Lock()
	c.draft.PaymentRef = paymentRef
	c.mu.Unlock()

	return c.commit(ctx)
}

// FailOnline handles the gateway failure callback. The draft stays
// uncommitted and the detail is carried for the failure view; the flow
// remains in SelectingPayment.
func (c *Checkout) FailOnline(ctx context.Context, detail string) error {
	if err := c.begin(StateSelectingPayment); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	if c.draft.PaymentMethod != domain.PayOnline {
		c.mu.Unlock()
		return ErrNoPaymentPending
	}
	c.failureDetail = detail
	hotelID := c.draft.Stay.HotelID
	email := c.draft.GuestInfo.Email
	c.mu.Unlock()

	_ = c.bus.Publish(ctx, events.BookingPaymentFailed, events.BookingPaymentFailedEvent{
		FlowID:     c.id,
		HotelID:    hotelID,
		GuestEmail: email,
		Reason:     detail,
		FailedAt:   c.clock.Now(),
	})
	return nil
}

// Back returns to guest-info editing, clearing the payment selection.
func (c *Checkout) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return ErrOperationInFlight
	}
	if c.state != StateSelectingPayment {
		return ErrInvalidTransition
	}

	c.state = StateCollectingGuestInfo
	c.draft.PaymentMethod = domain.PayUnselected
	c.intent = nil
	c.failureDetail = ""
	return nil
}

// commit records the booking with the backend, marks the draft immutable and
// fans out the side effects. Mail delivery is best effort.
func (c *Checkout) commit(ctx context.Context) error {
	ctx = context.WithValue(ctx, logger.FlowIDKey, c.id)

	c.mu.Lock()
	draft := c.draft
	userID := c.userID
	c.mu.Unlock()

	req := &backend.BookingRequest{
		UserID:          userID,
		HotelID:         draft.Stay.HotelID,
		RoomID:          draft.Stay.RoomID,
		GuestName:       draft.GuestInfo.FullName(),
		GuestEmail:      draft.GuestInfo.Email,
		GuestPhone:      draft.GuestInfo.Phone,
		CheckInDate:     draft.Stay.CheckIn.Format("2006-01-02"),
		CheckOutDate:    draft.Stay.CheckOut.Format("2006-01-02"),
		Guests:          draft.Stay.Guests,
		Rooms:           draft.Stay.Rooms,
		PricePerNight:   draft.Quote.PricePerNight,
		TotalNights:     draft.Quote.Nights,
		TotalAmount:     draft.Quote.Total,
		SpecialRequests: draft.GuestInfo.SpecialRequests,
		PaymentMethod:   string(draft.PaymentMethod),
	}

	booking, err := c.backend.CreateBooking(ctx, req)
	if err != nil {
		return err
	}

	if draft.PaymentMethod == domain.PayOnline {
		if err := c.backend.RecordPayment(ctx, booking.ID, draft.PaymentRef); err != nil {
			return err
		}
	}

	now := c.clock.Now()
	c.mu.Lock()
	c.booking = booking
	c.draft.CommittedAt = &now
	c.state = StateCompleted
	committed := c.draft
	c.mu.Unlock()

	logger.InfoContext(ctx, "Booking committed",
		"reference", booking.BookingReference,
		"method", string(committed.PaymentMethod),
		"total", committed.Quote.Total,
	)

	_ = c.bus.Publish(ctx, events.BookingCommitted, events.BookingCommittedEvent{
		FlowID:        c.id,
		HotelID:       committed.Stay.HotelID,
		GuestEmail:    committed.GuestInfo.Email,
		PaymentMethod: string(committed.PaymentMethod),
		PaymentRef:    committed.PaymentRef,
		TotalAmount:   committed.Quote.Total,
		CheckIn:       committed.Stay.CheckIn,
		CheckOut:      committed.Stay.CheckOut,
		CommittedAt:   now,
	})

	if c.mailer != nil {
		if err := c.mailer.SendBookingConfirmation(
			committed.GuestInfo.Email,
			committed.GuestInfo.FullName(),
			booking.BookingReference,
			&committed,
		); err != nil {
			logger.ErrorContext(ctx, "Failed to send booking confirmation", "error", err, "reference", booking.BookingReference)
		}
	}

	return nil
}

// CheckoutSnapshot is what the client renders for the flow.
type CheckoutSnapshot struct {
	ID            string                 `json:"id"`
	State         CheckoutState          `json:"state"`
	Draft         domain.BookingDraft    `json:"draft"`
	Booking       *backend.BookingRecord `json:"booking,omitempty"`
	FailureDetail string                 `json:"failureDetail,omitempty"`
}

func (c *Checkout) Snapshot() CheckoutSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CheckoutSnapshot{
		ID:            c.id,
		State:         c.state,
		Draft:         c.draft,
		Booking:       c.booking,
		FailureDetail: c.failureDetail,
	}
}

func (c *Checkout) State() CheckoutState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close discards the flow. An uncommitted draft leaves no trace beyond an
// abandonment event.
func (c *Checkout) Close() {
	c.mu.Lock()
	state := c.state
	hotelID := c.draft.Stay.HotelID
	c.mu.Unlock()

	if state == StateCompleted {
		return
	}

	_ = c.bus.Publish(context.Background(), events.CheckoutAbandoned, events.CheckoutAbandonedEvent{
		FlowID:      c.id,
		HotelID:     hotelID,
		State:       string(state),
		AbandonedAt: c.clock.Now(),
	})
}
