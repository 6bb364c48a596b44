package email

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"

	"tourbook/internal/config"
)

// Mailer sends transactional email over SMTP. With no host configured, mail
// is logged and dropped so local development works without a transport.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewMailer(cfg config.Config) *Mailer {
	return &Mailer{
		host:     cfg.EmailHost,
		port:     cfg.EmailPort,
		username: cfg.EmailUser,
		password: cfg.EmailPass,
		from:     cfg.EmailFrom,
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		log.Printf("[EMAIL] [INFO] no transport configured, dropping mail to=%s subject=%q", to, subject)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.host, m.port, m.username, m.password)
	return dialer.DialAndSend(msg)
}

func (m *Mailer) SendWelcome(to, name, accountURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to Tourbook! Manage your account here: %s\n", name, accountURL)
	return m.Send(to, "Welcome to Tourbook!", body)
}

func (m *Mailer) SendPasswordReset(to, resetURL string) error {
	body := fmt.Sprintf(
		"Forgot your password? Submit a PATCH request with your new password to %s\n"+
			"If you didn't forget your password, please ignore this email. "+
			"The link is valid for 10 minutes.\n", resetURL)
	return m.Send(to, "Your password reset token (valid for 10 minutes)", body)
}
