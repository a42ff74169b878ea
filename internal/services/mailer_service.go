package services

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

// MailerService delivers transactional email over SMTP. Delivery is
// best-effort: callers on best-effort paths log and swallow the error.
type MailerService struct {
	host        string
	port        int
	username    string
	password    string
	fromName    string
	fromAddress string
}

// NewMailerService creates a MailerService.
func NewMailerService(host string, port int, username, password, fromName, fromAddress string) *MailerService {
	return &MailerService{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		fromName:    fromName,
		fromAddress: fromAddress,
	}
}

// Send delivers a single HTML email.
func (s *MailerService) Send(to, subject, html string) error {
	if s.username == "" || s.password == "" {
		log.Println("[Mailer] SMTP credentials not configured")
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.fromAddress, s.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	dialer := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := dialer.DialAndSend(msg); err != nil {
		log.Printf("[Mailer] Failed to send to %s: %v", to, err)
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}

// SendVerificationCode emails a one-time code to the given address.
func (s *MailerService) SendVerificationCode(to, code string) error {
	html := fmt.Sprintf(`
		<div style="font-family: system-ui, -apple-system, 'Segoe UI', Roboto;">
			<h3>Verify your email</h3>
			<p>Your verification code is:</p>
			<p style="font-size:20px; font-weight:700; letter-spacing:4px;">%s</p>
			<p>This code will expire in 15 minutes.</p>
		</div>
	`, code)

	return s.Send(to, "Your verification code", html)
}
