package services

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/deedflowhq/deedflow/internal/config"
	"github.com/deedflowhq/deedflow/internal/logging"
)

// Email represents an email to be sent.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// EmailProvider is the interface for sending emails.
type EmailProvider interface {
	Send(ctx context.Context, from string, email *Email) error
}

// Notifier renders and sends share-workflow email. It implements
// ShareNotifier; the approval link embeds the plaintext token.
type Notifier struct {
	provider    EmailProvider
	fromAddress string
	fromName    string
	baseURL     string
}

// NewNotifier selects the email provider from configuration.
func NewNotifier(cfg *config.EmailConfig) *Notifier {
	var provider EmailProvider

	switch cfg.Provider {
	case "resend":
		provider = NewResendProvider(cfg.ResendAPIKey)
	case "smtp":
		provider = NewSMTPProvider(cfg.SMTPHost, cfg.SMTPPort)
	default:
		provider = NewConsoleProvider()
	}

	return &Notifier{
		provider:    provider,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (n *Notifier) from() string {
	return fmt.Sprintf("%s <%s>", n.fromName, n.fromAddress)
}

// SendShareRequest emails the recipient a review link for one shared deed.
func (n *Notifier) SendShareRequest(ctx context.Context, req ShareRequestEmail) error {
	approveURL := fmt.Sprintf("%s/approve/%s", n.baseURL, req.Token)
	expires := req.ExpiresAt.UTC().Format("January 2, 2006")

	note := ""
	if req.Message != nil && *req.Message != "" {
		note = fmt.Sprintf(`<p style="color: #444; border-left: 3px solid #ddd; padding-left: 12px;">%s</p>`,
			htmlEscape(*req.Message))
	}

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #333; font-size: 24px;">Deed review requested</h1>

  <p>Hi %s,</p>
  <p>%s has asked you (as %s) to review the deed for <strong>%s</strong>.</p>
  %s
  <a href="%s"
     style="display: inline-block; background: #1D4ED8; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin: 20px 0;">
    Review Deed
  </a>

  <p style="color: #666; font-size: 14px;">
    This link expires on %s. Anyone with the link can view this deed, so please don't forward it.
  </p>

  <p style="color: #666; font-size: 14px;">
    Or copy this link: %s
  </p>

  <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
  <p style="color: #999; font-size: 12px;">%s</p>
</body>
</html>`,
		htmlEscape(req.RecipientName),
		htmlEscape(req.OwnerName),
		htmlEscape(req.RecipientRole),
		htmlEscape(req.PropertyAddress),
		note,
		approveURL,
		expires,
		approveURL,
		n.fromName,
	)

	textNote := ""
	if req.Message != nil && *req.Message != "" {
		textNote = fmt.Sprintf("\nNote from %s:\n%s\n", req.OwnerName, *req.Message)
	}
	text := fmt.Sprintf(`Hi %s,

%s has asked you (as %s) to review the deed for %s.
%s
Review it here:
%s

This link expires on %s. Anyone with the link can view this deed, so please don't forward it.

--
%s`,
		req.RecipientName, req.OwnerName, req.RecipientRole, req.PropertyAddress,
		textNote, approveURL, expires, n.fromName,
	)

	return n.provider.Send(ctx, n.from(), &Email{
		To:      req.RecipientEmail,
		Subject: fmt.Sprintf("%s asked you to review a deed", req.OwnerName),
		HTML:    html,
		Text:    text,
	})
}

// SendShareDecision tells the owner how the recipient responded.
func (n *Notifier) SendShareDecision(ctx context.Context, dec ShareDecisionEmail) error {
	verdict := "rejected"
	if dec.Approved {
		verdict = "approved"
	}

	comments := ""
	if dec.Comments != nil && *dec.Comments != "" {
		comments = fmt.Sprintf(`<p style="color: #444; border-left: 3px solid #ddd; padding-left: 12px;">%s</p>`,
			htmlEscape(*dec.Comments))
	}

	sharesURL := fmt.Sprintf("%s/shared-deeds", n.baseURL)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #333; font-size: 24px;">Deed %s</h1>

  <p>Hi %s,</p>
  <p>%s has %s the deed for <strong>%s</strong>.</p>
  %s
  <a href="%s"
     style="display: inline-block; background: #1D4ED8; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin: 20px 0;">
    View Shared Deeds
  </a>

  <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
  <p style="color: #999; font-size: 12px;">%s</p>
</body>
</html>`,
		verdict,
		htmlEscape(dec.OwnerName),
		htmlEscape(dec.RecipientName),
		verdict,
		htmlEscape(dec.PropertyAddress),
		comments,
		sharesURL,
		n.fromName,
	)

	textComments := ""
	if dec.Comments != nil && *dec.Comments != "" {
		textComments = fmt.Sprintf("\nComments:\n%s\n", *dec.Comments)
	}
	text := fmt.Sprintf(`Hi %s,

%s has %s the deed for %s.
%s
View your shared deeds: %s

--
%s`,
		dec.OwnerName, dec.RecipientName, verdict, dec.PropertyAddress, textComments, sharesURL, n.fromName,
	)

	return n.provider.Send(ctx, n.from(), &Email{
		To:      dec.OwnerEmail,
		Subject: fmt.Sprintf("%s %s your deed", dec.RecipientName, verdict),
		HTML:    html,
		Text:    text,
	})
}

func htmlEscape(value string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(value)
}

// ResendProvider sends emails using the Resend API.
type ResendProvider struct {
	client *resend.Client
}

func NewResendProvider(apiKey string) *ResendProvider {
	return &ResendProvider{
		client: resend.NewClient(apiKey),
	}
}

func (p *ResendProvider) Send(ctx context.Context, from string, email *Email) error {
	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}

	_, err := p.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("sending email via Resend: %w", err)
	}

	logging.Info("Email sent via Resend", map[string]interface{}{"to": email.To, "subject": email.Subject})
	return nil
}

// SMTPProvider sends emails via SMTP (for Mailpit in local dev).
type SMTPProvider struct {
	host string
	port int
}

func NewSMTPProvider(host string, port int) *SMTPProvider {
	return &SMTPProvider{host: host, port: port}
}

func (p *SMTPProvider) Send(ctx context.Context, from string, email *Email) error {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.HTML)

	sender := from
	if start := strings.Index(from, "<"); start != -1 {
		sender = strings.TrimRight(from[start+1:], ">")
	}

	if err := smtp.SendMail(addr, nil, sender, []string{email.To}, buf.Bytes()); err != nil {
		return fmt.Errorf("sending email via SMTP: %w", err)
	}

	logging.Info("Email sent via SMTP", map[string]interface{}{"to": email.To, "subject": email.Subject})
	return nil
}

// ConsoleProvider logs emails instead of sending them (for development).
type ConsoleProvider struct{}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) Send(ctx context.Context, from string, email *Email) error {
	logging.Info("=== EMAIL (Console Provider) ===", map[string]interface{}{
		"from":    from,
		"to":      email.To,
		"subject": email.Subject,
		"text":    email.Text,
	})
	return nil
}
