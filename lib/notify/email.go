package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	To           string `json:"to"`
}

// EmailNotifier sends the summary over smtp.
type EmailNotifier struct {
	config SmtpConfig
}

func NewEmailNotifier(config SmtpConfig) EmailNotifier {
	return EmailNotifier{config: config}
}

func (n EmailNotifier) Send(ctx context.Context, subject, body string) error {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Invoiceflow <%s>", n.config.EmailAddress)
	mail.To = []string{n.config.To}
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		return mail.Send(addr, nil)
	}
	return err
}
