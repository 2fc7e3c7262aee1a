package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/velvethours/partyline/internal/logging"
	"github.com/velvethours/partyline/internal/models"
)

// EmailSender delivers a single message. Implementations: resend for
// production, console for local development.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("sending email via resend: %w", err)
	}
	return nil
}

// ConsoleSender logs messages instead of delivering them.
type ConsoleSender struct{}

func (ConsoleSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	logging.Info("Email (console provider)", map[string]interface{}{
		"to":      to,
		"subject": subject,
		"bytes":   len(htmlBody),
	})
	return nil
}

// EmailService builds and sends registration emails. Satisfies
// RegistrationMailer.
type EmailService struct {
	sender    EmailSender
	partyName string
	baseURL   string
}

func NewEmailService(sender EmailSender, partyName, baseURL string) *EmailService {
	return &EmailService{sender: sender, partyName: partyName, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *EmailService) SendConfirmation(ctx context.Context, reg *models.Registration, tier *models.Tier, ticket *models.Ticket) error {
	subject := fmt.Sprintf("You're in! %s", s.partyName)

	var b strings.Builder
	b.WriteString(`<div style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">`)
	fmt.Fprintf(&b, `<h1>See you at %s</h1>`, html.EscapeString(s.partyName))
	fmt.Fprintf(&b, `<p>Hi %s, your spot is confirmed.</p>`, html.EscapeString(reg.DisplayName))
	fmt.Fprintf(&b, `<p><strong>Tier:</strong> %s (%s)</p>`, html.EscapeString(tier.Name), html.EscapeString(tier.PriceLabel()))
	if ticket != nil {
		fmt.Fprintf(&b, `<p>Show this pass at the door:</p>`)
		fmt.Fprintf(&b, `<p><a href="%s/ticket/%s">%s/ticket/%s</a></p>`,
			s.baseURL, ticket.Token, s.baseURL, ticket.Token)
		fmt.Fprintf(&b, `<p><img src="%s/t/img/%s" alt="Door pass" width="360"></p>`,
			s.baseURL, ticket.Token)
	}
	b.WriteString(`<p>Your match reveal unlocks during the party. Keep your pass handy.</p>`)
	b.WriteString(`</div>`)

	return s.sender.Send(ctx, reg.Email, subject, b.String())
}

func (s *EmailService) SendWaitlisted(ctx context.Context, reg *models.Registration, tier *models.Tier) error {
	subject := fmt.Sprintf("You're on the waitlist for %s", s.partyName)

	var b strings.Builder
	b.WriteString(`<div style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">`)
	fmt.Fprintf(&b, `<h1>Almost there</h1>`)
	fmt.Fprintf(&b, `<p>Hi %s, the %s tier is currently full.</p>`,
		html.EscapeString(reg.DisplayName), html.EscapeString(tier.Name))
	if reg.WaitlistPos != nil {
		fmt.Fprintf(&b, `<p>You're number %d on the waitlist. We'll email you the moment a spot opens.</p>`, *reg.WaitlistPos)
	} else {
		b.WriteString(`<p>You're on the waitlist. We'll email you the moment a spot opens.</p>`)
	}
	b.WriteString(`</div>`)

	return s.sender.Send(ctx, reg.Email, subject, b.String())
}
