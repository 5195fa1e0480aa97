package mailer

import "github.com/brightstay/stayflow/internal/domain"

type Service interface {
	SendBookingConfirmation(toEmail, toName, reference string, draft *domain.BookingDraft) error
	SendCancellationNotice(toEmail, toName, reference string) error
}
