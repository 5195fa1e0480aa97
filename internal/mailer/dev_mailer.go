package mailer

import (
	"fmt"

	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/pkg/logger"
)

type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendBookingConfirmation(toEmail, toName, reference string, draft *domain.BookingDraft) error {
	logger.Info("📧 [DEV MAIL] Booking Confirmation",
		"to", toEmail,
		"name", toName,
		"reference", reference,
		"total", draft.Quote.Total,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 BOOKING CONFIRMATION (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Reference: %s\n"+
		"Check-in: %s  Check-out: %s\n"+
		"Total: %s (%s)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName, reference,
		draft.Stay.CheckIn.Format("2006-01-02"), draft.Stay.CheckOut.Format("2006-01-02"),
		formatAmount(draft.Quote.Total), paymentLabel(draft.PaymentMethod))

	return nil
}

func (d *DevMailer) SendCancellationNotice(toEmail, toName, reference string) error {
	logger.Info("📧 [DEV MAIL] Cancellation Notice",
		"to", toEmail,
		"name", toName,
		"reference", reference,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 CANCELLATION NOTICE (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Reference: %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName, reference)

	return nil
}
