package smtp

import (
	"fmt"
	"net/smtp"

	"github.com/go-accounts-api/internal/config"
)

// Mailer is the notification gateway for one-time codes. Implementations
// report delivery success or failure; the caller decides what to do when
// delivery fails after the code is already persisted.
type Mailer interface {
	SendVerificationCode(to, code string) error
	SendPasswordResetCode(to, code string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendVerificationCode(to, code string) error {
	body := fmt.Sprintf(`<html><body>
<h2>Email Verification</h2>
<p>Thank you for signing up! Please use the following verification code to complete your registration:</p>
<h1 style="font-size: 24px; background-color: #f0f0f0; padding: 10px; text-align: center;">%s</h1>
<p>This code will expire in 10 minutes.</p>
<p>If you didn't request this verification, please ignore this email.</p>
</body></html>`, code)
	return m.send(to, "Verify Your Email Address", body)
}

func (m *mailer) SendPasswordResetCode(to, code string) error {
	body := fmt.Sprintf(`<html><body>
<h2>Password Reset Request</h2>
<p>We received a request to reset your password. Please use the following verification code to reset your password:</p>
<h1 style="font-size: 24px; background-color: #f0f0f0; padding: 10px; text-align: center;">%s</h1>
<p>This code will expire in 10 minutes.</p>
<p><strong>If you didn't request this password reset, please ignore this email and your password will remain unchanged.</strong></p>
<p>For security reasons, this code can only be used once.</p>
</body></html>`, code)
	return m.send(to, "Reset Your Password", body)
}

func (m *mailer) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}
