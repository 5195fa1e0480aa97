package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brightstay/stayflow/internal/domain"
	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendBookingConfirmation(toEmail, toName, reference string, draft *domain.BookingDraft) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := fmt.Sprintf("Booking confirmed: %s", reference)
	nights := "night"
	if draft.Quote.Nights != 1 {
		nights = "nights"
	}

	html := fmt.Sprintf(`
		<h2>Your booking is confirmed!</h2>
		<p>Hi %s,</p>
		<p>Your reservation <strong>%s</strong> is confirmed.</p>
		<ul>
			<li>Check-in: %s</li>
			<li>Check-out: %s</li>
			<li>%d %s, %d room(s), %d guest(s)</li>
			<li>Total: %s</li>
		</ul>
		<p>Payment method: %s</p>
		<p>We look forward to hosting you.</p>
	`, toName, reference,
		draft.Stay.CheckIn.Format("Mon, 02 Jan 2006"),
		draft.Stay.CheckOut.Format("Mon, 02 Jan 2006"),
		draft.Quote.Nights, nights, draft.Stay.Rooms, draft.Stay.Guests,
		formatAmount(draft.Quote.Total),
		paymentLabel(draft.PaymentMethod))

	text := fmt.Sprintf("Your booking %s is confirmed.\nCheck-in: %s\nCheck-out: %s\nTotal: %s",
		reference,
		draft.Stay.CheckIn.Format("2006-01-02"),
		draft.Stay.CheckOut.Format("2006-01-02"),
		formatAmount(draft.Quote.Total))

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendCancellationNotice(toEmail, toName, reference string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := fmt.Sprintf("Booking cancelled: %s", reference)
	html := fmt.Sprintf(`
		<h2>Booking cancelled</h2>
		<p>Hi %s,</p>
		<p>Your reservation <strong>%s</strong> has been cancelled.</p>
		<p>If this wasn't you, please contact support.</p>
	`, toName, reference)

	text := fmt.Sprintf("Your booking %s has been cancelled.", reference)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}

func formatAmount(minor int64) string {
	return fmt.Sprintf("$%d.%02d", minor/100, minor%100)
}

func paymentLabel(method domain.PaymentMethod) string {
	if method == domain.PayOnline {
		return "Paid online"
	}
	return "Pay at hotel"
}
