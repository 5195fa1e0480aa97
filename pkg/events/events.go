package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brightstay/stayflow/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopEventBus is used when no broker is configured; publishes are dropped.
type NoopEventBus struct{}

func NewNoopEventBus() *NoopEventBus { return &NoopEventBus{} }

func (n *NoopEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event bus disabled, dropping event", "subject", subject)
	return nil
}

func (n *NoopEventBus) Subscribe(string, func(msg *Message)) error { return nil }

func (n *NoopEventBus) Close() error { return nil }

// Event subjects
const (
	SignupStarted        = "signup.started"
	SignupCompleted      = "signup.completed"
	EmailVerified        = "email.verified"
	PasswordResetDone    = "password.reset.completed"
	BookingCommitted     = "booking.committed"
	BookingPaymentFailed = "booking.payment.failed"
	CheckoutAbandoned    = "checkout.abandoned"
)

// Event payloads
type SignupCompletedEvent struct {
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	CompletedAt time.Time `json:"completed_at"`
}

type EmailVerifiedEvent struct {
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}

type PasswordResetEvent struct {
	Email   string    `json:"email"`
	ResetAt time.Time `json:"reset_at"`
}

type BookingCommittedEvent struct {
	FlowID        string    `json:"flow_id"`
	HotelID       int64     `json:"hotel_id"`
	GuestEmail    string    `json:"guest_email"`
	PaymentMethod string    `json:"payment_method"`
	PaymentRef    string    `json:"payment_ref,omitempty"`
	TotalAmount   int64     `json:"total_amount"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	CommittedAt   time.Time `json:"committed_at"`
}

type BookingPaymentFailedEvent struct {
	FlowID     string    `json:"flow_id"`
	HotelID    int64     `json:"hotel_id"`
	GuestEmail string    `json:"guest_email"`
	Reason     string    `json:"reason"`
	FailedAt   time.Time `json:"failed_at"`
}

type CheckoutAbandonedEvent struct {
	FlowID      string    `json:"flow_id"`
	HotelID     int64     `json:"hotel_id"`
	State       string    `json:"state"`
	AbandonedAt time.Time `json:"abandoned_at"`
}
