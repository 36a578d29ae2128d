package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/hearthshare/hearth-api/internal/config"
)

// InviteMailer is responsible for delivering workspace invitation emails.
type InviteMailer interface {
	SendInvite(recipientEmail, orgName, inviteURL, personalMessage string) error
}

// CodeMailer delivers one-time verification codes.
type CodeMailer interface {
	SendVerificationCode(recipientEmail, code string) error
}

// SMTPMailer sends invitation and verification emails using an SMTP server.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer constructs a new SMTPMailer from config.
func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}

	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}, nil
}

// SendInvite dispatches an invitation email to a prospective member.
func (m *SMTPMailer) SendInvite(recipientEmail, orgName, inviteURL, personalMessage string) error {
	if strings.TrimSpace(orgName) == "" {
		orgName = "Hearth"
	}
	subject := fmt.Sprintf("You have been invited to join %s", orgName)

	body := strings.Builder{}
	body.WriteString("Hello,\n\n")
	body.WriteString(fmt.Sprintf("You've been invited to join the %s workspace on Hearth.\n", orgName))
	if strings.TrimSpace(personalMessage) != "" {
		body.WriteString("\n" + personalMessage + "\n\n")
	}
	body.WriteString("Click the link below to accept the invitation and create your account:\n\n")
	body.WriteString(inviteURL + "\n\n")
	body.WriteString("This invite is valid for a limited time. If you did not expect this email, you can ignore it.\n\n")
	body.WriteString("Thanks,\nThe Hearth Team\n")

	return m.send(recipientEmail, subject, body.String())
}

// SendVerificationCode dispatches a one-time verification code.
func (m *SMTPMailer) SendVerificationCode(recipientEmail, code string) error {
	subject := "Your Hearth verification code"

	body := strings.Builder{}
	body.WriteString("Hello,\n\n")
	body.WriteString(fmt.Sprintf("Your verification code is: %s\n\n", code))
	body.WriteString("The code expires in 10 minutes. If you did not request it, you can ignore this email.\n\n")
	body.WriteString("Thanks,\nThe Hearth Team\n")

	return m.send(recipientEmail, subject, body.String())
}

func (m *SMTPMailer) send(recipientEmail, subject, body string) error {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		m.from, recipientEmail, subject)

	message := []byte(headers + body)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if strings.TrimSpace(m.username) != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{recipientEmail}, message)
}
