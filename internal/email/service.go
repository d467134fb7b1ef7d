package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/care-booking/config"
	"github.com/jwalitptl/care-booking/internal/model"
)

type Service interface {
	// SendProviderApplication tells admins a new provider application awaits review.
	SendProviderApplication(ctx context.Context, to []string, app *model.ProviderOnboardedPayload) error
	SendCustom(ctx context.Context, to []string, subject string, content string) error
}

type smtpService struct {
	from   string
	sender gomail.Sender
	dialer *gomail.Dialer
}

// NewService returns an SMTP-backed service, or a no-op one when SMTP is disabled.
func NewService(cfg config.SMTPConfig) Service {
	if !cfg.Enabled {
		return noopService{}
	}
	return &smtpService{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// NewServiceWithSender sends through s instead of dialing SMTP.
func NewServiceWithSender(from string, s gomail.Sender) Service {
	return &smtpService{from: from, sender: s}
}

func (s *smtpService) SendProviderApplication(ctx context.Context, to []string, app *model.ProviderOnboardedPayload) error {
	var body strings.Builder
	fmt.Fprintf(&body, "A new provider application was submitted.\n\n")
	fmt.Fprintf(&body, "Applicant: %s\n", app.ApplicantName)
	if app.ApplicantEmail != "" {
		fmt.Fprintf(&body, "Email: %s\n", app.ApplicantEmail)
	}
	fmt.Fprintf(&body, "Clinic: %s\n", app.ClinicName)
	fmt.Fprintf(&body, "Provider ID: %s\n", app.ProviderID)
	if app.CompanyID != "" {
		fmt.Fprintf(&body, "Scheduling company: %s\n", app.CompanyID)
	}

	subject := fmt.Sprintf("New provider application: %s", app.ApplicantName)
	return s.SendCustom(ctx, to, subject, body.String())
}

func (s *smtpService) SendCustom(ctx context.Context, to []string, subject string, content string) error {
	if len(to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	var err error
	if s.sender != nil {
		err = gomail.Send(s.sender, m)
	} else {
		err = s.dialer.DialAndSend(m)
	}
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type noopService struct{}

func (noopService) SendProviderApplication(context.Context, []string, *model.ProviderOnboardedPayload) error {
	return nil
}

func (noopService) SendCustom(context.Context, []string, string, string) error {
	return nil
}
