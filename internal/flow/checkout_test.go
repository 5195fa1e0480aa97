package flow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/brightstay/stayflow/internal/backend"
	"github.com/brightstay/stayflow/internal/clock"
	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/internal/flow"
	"github.com/brightstay/stayflow/internal/gateway"
	"github.com/brightstay/stayflow/internal/validate"
	"github.com/brightstay/stayflow/pkg/events"
)

// ---------- Mocks ----------

type fakeBookings struct {
	created     *backend.BookingRequest
	createErr   error
	paymentID   int64
	paymentRef  string
	paymentErr  error
	nextBooking backend.BookingRecord
}

func (f *fakeBookings) CreateBooking(_ context.Context, req *backend.BookingRequest) (*backend.BookingRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = req
	b := f.nextBooking
	return &b, nil
}

func (f *fakeBookings) RecordPayment(_ context.Context, bookingID int64, ref string) error {
	if f.paymentErr != nil {
		return f.paymentErr
	}
	f.paymentID = bookingID
	f.paymentRef = ref
	return nil
}

type fakeGateway struct {
	created    int
	confirmed  []string
	createErr  error
	confirmErr error
	lastAmount int64
	lastEmail  string
}

func (f *fakeGateway) CreateIntent(amount int64, currency, guestEmail string) (*gateway.Intent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	f.lastAmount = amount
	f.lastEmail = guestEmail
	return &gateway.Intent{
		Reference:    fmt.Sprintf("pi_%d", f.created),
		ClientSecret: "secret",
	}, nil
}

func (f *fakeGateway) ConfirmIntent(ref string) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirmed = append(f.confirmed, ref)
	return nil
}

type fakeMailer struct {
	confirmations []string
	cancellations []string
}

func (f *fakeMailer) SendBookingConfirmation(toEmail, toName, reference string, draft *domain.BookingDraft) error {
	f.confirmations = append(f.confirmations, reference)
	return nil
}

func (f *fakeMailer) SendCancellationNotice(toEmail, toName, reference string) error {
	f.cancellations = append(f.cancellations, reference)
	return nil
}

type fakeSessions struct {
	sessions map[string]*domain.Session
}

func (f *fakeSessions) Current(_ context.Context, clientID string) (*domain.Session, error) {
	return f.sessions[clientID], nil
}

type checkoutEnv struct {
	bookings *fakeBookings
	gateway  *fakeGateway
	mailer   *fakeMailer
	sessions *fakeSessions
	clock    *clock.Manual
}

func newCheckoutEnv() *checkoutEnv {
	return &checkoutEnv{
		bookings: &fakeBookings{
			nextBooking: backend.BookingRecord{
				ID:               42,
				BookingReference: "BSF-0042",
				Status:           "CONFIRMED",
			},
		},
		gateway: &fakeGateway{},
		mailer:  &fakeMailer{},
		sessions: &fakeSessions{sessions: map[string]*domain.Session{
			"verified-client":   {UserID: 7, Email: "ada@example.com", IsEmailVerified: true},
			"unverified-client": {UserID: 8, Email: "bob@example.com", IsEmailVerified: false},
		}},
		clock: clock.NewManual(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)),
	}
}

func (e *checkoutEnv) open(t *testing.T, clientID string) *flow.Checkout {
	t.Helper()
	c, err := flow.NewCheckout("flow-1", clientID, domain.Stay{
		HotelID:  3,
		CheckIn:  time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC),
		Guests:   2,
		Rooms:    2,
	}, 1000, flow.CheckoutDeps{
		Backend:  e.bookings,
		Gateway:  e.gateway,
		Mailer:   e.mailer,
		Sessions: e.sessions,
		Bus:      events.NewNoopEventBus(),
		Clock:    e.clock,
	})
	if err != nil {
		t.Fatalf("NewCheckout() error = %v", err)
	}
	return c
}

var guestInfo = domain.GuestInfo{
	FirstName: "Ada",
	LastName:  "Byron",
	Email:     "ada@example.com",
	Phone:     "555-0101",
}

// ---------- Entry ----------

func TestCheckoutRejectsBadStay(t *testing.T) {
	e := newCheckoutEnv()

	_, err := flow.NewCheckout("f", "", domain.Stay{
		HotelID:  3,
		CheckIn:  time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		Guests:   1,
	}, 1000, flow.CheckoutDeps{
		Backend: e.bookings, Gateway: e.gateway, Bus: events.NewNoopEventBus(), Clock: e.clock,
	})
	if err == nil {
		t.Error("zero-night stay accepted")
	}

	_, err = flow.NewCheckout("f", "", domain.Stay{
		HotelID:  3,
		CheckIn:  time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC),
		Guests:   0,
	}, 1000, flow.CheckoutDeps{
		Backend: e.bookings, Gateway: e.gateway, Bus: events.NewNoopEventBus(), Clock: e.clock,
	})
	if err == nil {
		t.Error("zero guests accepted")
	}
}

func TestCheckoutQuote(t *testing.T) {
	e := newCheckoutEnv()
	c := e.open(t, "")

	quote := c.Snapshot().Draft.Quote
	if quote.Subtotal != 6000 || quote.Taxes != 600 || quote.Total != 6600 {
		t.Errorf("quote = %+v, want 6000/600/6600", quote)
	}
}

// ---------- Guest info ----------

func TestGuestInfoRequiresAllFields(t *testing.T) {
	e := newCheckoutEnv()
	ctx := context.Background()

	missing := []domain.GuestInfo{
		{LastName: "Byron", Email: "a@b.com", Phone: "1"},
		{FirstName: "Ada", Email: "a@b.com", Phone: "1"},
		{FirstName: "Ada", LastName: "Byron", Phone: "1"},
		{FirstName: "Ada", LastName: "Byron", Email: "a@b.com"},
	}

	for i, info := range missing {
		c := e.open(t, "")
		err := c.SubmitGuestInfo(ctx, info)
		var fieldErr *validate.FieldError
		if !errors.As(err, &fieldErr) {
			t.Errorf("case %d: error = %v, want field error", i, err)
		}
		if c.State() != flow.StateCollectingGuestInfo {
			t.Errorf("case %d: state advanced on invalid info", i)
		}
	}
}

func TestGuestInfoFreezesOnAdvance(t *testing.T) {
	e := newCheckoutEnv()
	c := e.open(t, "")
	ctx := context.Background()

	if err := c.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatalf("SubmitGuestInfo() error = %v", err)
	}
	if c.State() != flow.StateSelectingPayment {
		t.Fatalf("state = %v, want selecting_payment", c.State())
	}

	err := c.SubmitGuestInfo(ctx, guestInfo)
	if !errors.Is(err, flow.ErrInvalidTransition) {
		t.Errorf("resubmit after freeze error = %v, want ErrInvalidTransition", err)
	}
}

func TestUnverifiedUserBlockedUntilVerified(t *testing.T) {
	e := newCheckoutEnv()
	c := e.open(t, "unverified-client")
	ctx := context.Background()

	err := c.SubmitGuestInfo(ctx, guestInfo)
	if !errors.Is(err, flow.ErrVerificationRequired) {
		t.Fatalf("SubmitGuestInfo() error = %v, want ErrVerificationRequired", err)
	}
	if c.State() != flow.StateCollectingGuestInfo {
		t.Fatal("state advanced for unverified user")
	}

	// Verification completes out of band; resubmission advances.
	e.sessions.sessions["unverified-client"].IsEmailVerified = true
	if err := c.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatalf("resubmit after verification error = %v", err)
	}
	if c.State() != flow.StateSelectingPayment {
		t.Errorf("state = %v after verification, want selecting_payment", c.State())
	}
}

// ---------- Scenario A: pay at hotel ----------

func TestPayAtHotelCommits(t *testing.T) {
	e := newCheckoutEnv()
	c := e.open(t, "verified-client")
	ctx := context.Background()

	if err := c.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatal(err)
	}
	if err := c.SelectPayAtHotel(ctx); err != nil {
		t.Fatalf("SelectPayAtHotel() error = %v", err)
	}

	if c.State() != flow.StateCompleted {
		t.Fatalf("state = %v, want completed", c.State())
	}
	if e.gateway.created != 0 {
		t.Error("gateway called for pay-at-hotel")
	}

	snap := c.Snapshot()
	if snap.Draft.PaymentMethod != domain.PayAtHotel {
		t.Errorf("payment method = %v", snap.Draft.PaymentMethod)
	}
	if !snap.Draft.Committed() {
		t.Error("draft not committed")
	}
	if e.bookings.created == nil {
		t.Fatal("booking never reached the backend")
	}
	if e.bookings.created.TotalAmount != 6600 {
		t.Errorf("booked total = %d, want 6600", e.bookings.created.TotalAmount)
	}
	if e.bookings.created.UserID != 7 {
		t.Errorf("booked user = %d, want 7", e.bookings.created.UserID)
	}
	if len(e.mailer.confirmations) != 1 || e.mailer.confirmations[0] != "BSF-0042" {
		t.Errorf("confirmations = %v", e.mailer.confirmations)
	}
}

func TestPayAtHotelBackendFailureStays(t *testing.T) {
	e := newCheckoutEnv()
	e.bookings.createErr = &backend.RequestFailure{Message: "Room no longer available"}
	c := e.open(t, "")
	ctx := context.Background()

	if err := c.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatal(err)
	}
	if err := c.SelectPayAtHotel(ctx); err == nil {
		t.Fatal("commit succeeded despite backend failure")
	}

	if c.State() != flow.StateSelectingPayment {
		t.Errorf("state = %v, want selecting_payment for retry", c.State())
	}
	// The branch frees up again for another attempt.
	e.bookings.createErr = nil
	if err := c.SelectPayAtHotel(ctx); err != nil {
		t.Fatalf("retry error = %v", err)
	}
}

// ---------- Scenario B: online payment ----------

func TestOnlinePaymentSuccess(t *testing.T) {
	e := newCheckoutEnv()
	c := e.open(t, "verified-client")
	ctx := context.Background()

	if err := c.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatal(err)
	}

	intent, err := c.StartOnline(ctx)
	if err != nil {
		t.Fatalf("StartOnline() error = %v", err)
	}
	if e.gateway.lastAmount != 6600 {
		t.Errorf("gateway amount = %d, want 6600", e.gateway.lastAmount)
	}
	if e.gateway.lastEmail != "ada@example.com" {
		t.Errorf("gateway prefill email = %q", e.gateway.lastEmail)
	}

	// The other branch is disabled while online is selected.
	if err := c.SelectPayAtHotel(ctx); !errors.Is(err, flow.ErrPaymentSelected) {
		t.Errorf("SelectPayAtHotel() while online error = %v, want ErrPaymentSelected", err)
	}

	if err := c.ConfirmOnline(ctx, intent.Reference); err != nil {
		t.Fatalf("ConfirmOnline() error = %v", err)
	}

	if c.State() != flow.StateCompleted {
		t.Fatalf("state = %v, want completed", c.State())
	}
	snap := c.Snapshot()
	if snap.Draft.PaymentMethod != domain.PayOnline {
		t.Errorf("payment method = %v", snap.Draft.PaymentMethod)
	}
	if snap.Draft.PaymentRef != intent.Reference {
		t.Errorf("payment ref = %q, want %q", snap.Draft.PaymentRef, intent.Reference)
	}
	if e.bookings.paymentID != 42 || e.bookings.paymentRef != intent.Reference {
		t.Errorf("payment not recorded: id=%d ref=%q", e.bookings.paymentID, e.bookings.paymentRef)
	}
}

func TestOnlinePaymentFailureLeavesDraftUncommitted(t *testing.T) {
	e := newCheckoutEnv()
	c := e.open(t, "verified-client")
	ctx := context.Background()

	if err := c.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatal(err)
	}
	if _, err := c.StartOnline(ctx); err != nil {
		t.Fatal(err)
	}

	if err := c.FailOnline(ctx, "Card declined"); err != nil {
		t.Fatalf("FailOnline() error = %v", err)
	}

	if c.State() != flow.StateSelectingPayment {
		t.Errorf("state = %v, want selecting_payment", c.State())
	}
	snap := c.Snapshot()
	if snap.Draft.Committed() {
		t.Error("draft committed despite gateway failure")
	}
	if snap.FailureDetail != "Card declined" {
		t.Errorf("failure detail = %q", snap.FailureDetail)
	}
	if e.bookings.created != nil {
		t.Error("booking reached the backend after gateway failure")
	}
}

func TestBackClearsPaymentSelection(t *testing.T) {
	e := newCheckoutEnv()
	c := e.open(t, "verified-client")
	ctx := context.Background()

	if err := c.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatal(err)
	}
	if _, err := c.StartOnline(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.FailOnline(ctx, "Card declined"); err != nil {
		t.Fatal(err)
	}

	if err := c.Back(); err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	if c.State() != flow.StateCollectingGuestInfo {
		t.Fatalf("state = %v, want collecting_guest_info", c.State())
	}

	snap := c.Snapshot()
	if snap.Draft.PaymentMethod != domain.PayUnselected {
		t.Error("payment selection survived Back")
	}
	if snap.FailureDetail != "" {
		t.Error("failure detail survived Back")
	}

	// The guest can now take the other branch.
	if err := c.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatal(err)
	}
	if err := c.SelectPayAtHotel(ctx); err != nil {
		t.Fatalf("SelectPayAtHotel() after Back error = %v", err)
	}
}

func TestOnlineCallbacksNeedPendingPayment(t *testing.T) {
	e := newCheckoutEnv()
	c := e.open(t, "verified-client")
	ctx := context.Background()

	if err := c.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatal(err)
	}

	if err := c.ConfirmOnline(ctx, "pi_1"); !errors.Is(err, flow.ErrNoPaymentPending) {
		t.Errorf("ConfirmOnline() without start error = %v, want ErrNoPaymentPending", err)
	}
	if err := c.FailOnline(ctx, "x"); !errors.Is(err, flow.ErrNoPaymentPending) {
		t.Errorf("FailOnline() without start error = %v, want ErrNoPaymentPending", err)
	}
}

func TestConfirmOnlineRejectsForeignReference(t *testing.T) {
	e := newCheckoutEnv()
	ctx := context.Background()

	a := e.open(t, "verified-client")
	b := e.open(t, "verified-client")
	if err := a.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatal(err)
	}
	if err := b.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatal(err)
	}

	intentA, err := a.StartOnline(ctx)
	if err != nil {
		t.Fatal(err)
	}
	intentB, err := b.StartOnline(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// A reference from another checkout's payment must not settle this one.
	if err := b.ConfirmOnline(ctx, intentA.Reference); !errors.Is(err, flow.ErrPaymentMismatch) {
		t.Fatalf("ConfirmOnline() with foreign ref error = %v, want ErrPaymentMismatch", err)
	}
	if b.State() != flow.StateSelectingPayment {
		t.Fatalf("state = %v after foreign ref, want selecting_payment", b.State())
	}
	if len(e.gateway.confirmed) != 0 {
		t.Errorf("gateway confirm called for a foreign reference: %v", e.gateway.confirmed)
	}
	if e.bookings.created != nil {
		t.Error("booking committed with a foreign payment reference")
	}

	// Its own reference still goes through.
	if err := b.ConfirmOnline(ctx, intentB.Reference); err != nil {
		t.Fatalf("ConfirmOnline() with own ref error = %v", err)
	}
	if b.State() != flow.StateCompleted {
		t.Errorf("state = %v, want completed", b.State())
	}
}

func TestCompletedFlowIsImmutable(t *testing.T) {
	e := newCheckoutEnv()
	c := e.open(t, "")
	ctx := context.Background()

	if err := c.SubmitGuestInfo(ctx, guestInfo); err != nil {
		t.Fatal(err)
	}
	if err := c.SelectPayAtHotel(ctx); err != nil {
		t.Fatal(err)
	}

	if err := c.SubmitGuestInfo(ctx, guestInfo); !errors.Is(err, flow.ErrInvalidTransition) {
		t.Errorf("SubmitGuestInfo after commit error = %v", err)
	}
	if err := c.Back(); !errors.Is(err, flow.ErrInvalidTransition) {
		t.Errorf("Back after commit error = %v", err)
	}
	if err := c.SelectPayAtHotel(ctx); !errors.Is(err, flow.ErrInvalidTransition) {
		t.Errorf("SelectPayAtHotel after commit error = %v", err)
	}
}

// ---------- Registry ----------

func TestRegistryEvictsAndCloses(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	r := flow.NewRegistry[*closeRecorder](clk, 30*time.Minute)

	a := &closeRecorder{}
	b := &closeRecorder{}
	r.Put("a", a)
	r.Put("b", b)

	if _, ok := r.Get("a"); !ok {
		t.Fatal("fresh entry missing")
	}

	clk.Advance(31 * time.Minute)
	if n := r.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
	if !a.closed || !b.closed {
		t.Error("eviction did not close flows")
	}
	if _, ok := r.Get("a"); ok {
		t.Error("evicted entry still retrievable")
	}
}

func TestRegistryGetExtendsLease(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	r := flow.NewRegistry[*closeRecorder](clk, 30*time.Minute)
	r.Put("a", &closeRecorder{})

	clk.Advance(20 * time.Minute)
	if _, ok := r.Get("a"); !ok {
		t.Fatal("entry expired early")
	}

	// The access pushed the deadline out.
	clk.Advance(20 * time.Minute)
	if _, ok := r.Get("a"); !ok {
		t.Error("lease was not extended on access")
	}
}

func TestRegistryRemoveCloses(t *testing.T) {
	clk := clock.NewManual(time.Now())
	r := flow.NewRegistry[*closeRecorder](clk, time.Minute)

	a := &closeRecorder{}
	r.Put("a", a)
	if !r.Remove("a") {
		t.Fatal("Remove() = false for live entry")
	}
	if !a.closed {
		t.Error("Remove did not close the flow")
	}
	if r.Remove("a") {
		t.Error("Remove() = true for missing entry")
	}
}

type closeRecorder struct{ closed bool }

func (c *closeRecorder) Close() { c.closed = true }
