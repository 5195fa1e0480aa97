package domain

import (
	"fmt"
	"time"
)

type PaymentMethod string

const (
	PayUnselected PaymentMethod = ""
	PayAtHotel    PaymentMethod = "pay_at_hotel"
	PayOnline     PaymentMethod = "online"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PayAtHotel, PayOnline:
		return PaymentMethod(s), true
	default:
		return PayUnselected, false
	}
}

// GuestInfo is the identity block captured during checkout. All four identity
// fields must be non-empty before the draft may proceed to payment.
type GuestInfo struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

func (g *GuestInfo) FullName() string {
	return g.FirstName + " " + g.LastName
}

// Stay describes what is being booked: the hotel, optional room, dates and
// party size. It is fixed at checkout entry.
type Stay struct {
	HotelID  int64     `json:"hotelId"`
	RoomID   *int64    `json:"roomId,omitempty"`
	CheckIn  time.Time `json:"checkIn"`
	CheckOut time.Time `json:"checkOut"`
	Guests   int       `json:"guests"`
	Rooms    int       `json:"rooms"`
}

// BookingDraft is the in-progress, uncommitted booking. Once committed it is
// immutable; an abandoned draft is discarded with no side effects.
type BookingDraft struct {
	Stay          Stay          `json:"stay"`
	GuestInfo     GuestInfo     `json:"guestInfo"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentRef    string        `json:"paymentRef,omitempty"`
	Quote         Quote         `json:"quote"`
	CommittedAt   *time.Time    `json:"committedAt,omitempty"`
}

func (d *BookingDraft) Committed() bool {
	return d.CommittedAt != nil
}

// Quote is the price breakdown shown in the booking summary. Amounts are in
// whole currency units.
type Quote struct {
	PricePerNight int64 `json:"pricePerNight"`
	Nights        int   `json:"nights"`
	Rooms         int   `json:"rooms"`
	Subtotal      int64 `json:"subtotal"`
	Taxes         int64 `json:"taxes"`
	Total         int64 `json:"total"`
}

// TaxRatePct is the platform fee applied on top of the room subtotal.
const TaxRatePct = 10

// Nights returns the integer day difference between the date components of
// checkOut and checkIn. Time-of-day is ignored.
func Nights(checkIn, checkOut time.Time) int {
	in := time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(checkOut.Year(), checkOut.Month(), checkOut.Day(), 0, 0, 0, 0, time.UTC)
	return int(out.Sub(in) / (24 * time.Hour))
}

// NewQuote computes subtotal, taxes and total for a stay. Taxes are rounded
// half-up to a whole unit. A non-positive night count is invalid.
func NewQuote(pricePerNight int64, checkIn, checkOut time.Time, rooms int) (Quote, error) {
	if pricePerNight <= 0 {
		return Quote{}, fmt.Errorf("price per night must be positive")
	}
	if rooms < 1 {
		rooms = 1
	}

	nights := Nights(checkIn, checkOut)
	if nights <= 0 {
		return Quote{}, fmt.Errorf("check-out must be after check-in")
	}

	subtotal := pricePerNight * int64(nights) * int64(rooms)
	taxes := (subtotal*TaxRatePct + 50) / 100
	return Quote{
		PricePerNight: pricePerNight,
		Nights:        nights,
		Rooms:         rooms,
		Subtotal:      subtotal,
		Taxes:         taxes,
		Total:         subtotal + taxes,
	}, nil
}
