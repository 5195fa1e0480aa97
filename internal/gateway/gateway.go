// Package gateway handles the online payment leg of checkout. A committed
// online booking carries a payment reference issued here; pay-at-hotel
// bookings never touch the gateway.
package gateway

type Gateway interface {
	// CreateIntent opens a payment for the given amount (minor units) and
	// returns the gateway reference plus the client secret the caller needs
	// to confirm the payment.
	CreateIntent(amount int64, currency, guestEmail string) (*Intent, error)
	// ConfirmIntent checks that the referenced payment actually succeeded.
	ConfirmIntent(ref string) error
}

type Intent struct {
	Reference    string `json:"reference"`
	ClientSecret string `json:"clientSecret"`
}
