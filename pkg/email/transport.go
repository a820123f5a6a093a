package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"
)

// Transport delivers notifications over SMTP. It serves as the delivery
// backend for environments without a push gateway (local development,
// staging), mapping recipient IDs to addresses at the directory's domain.
type Transport struct {
	sender   string
	password string
	host     string
	port     string
	domain   string
}

func NewTransport(sender, password, host, port, domain string) *Transport {
	return &Transport{
		sender:   sender,
		password: password,
		host:     host,
		port:     port,
		domain:   domain,
	}
}

// Deliver sends the rendered notification as a plain text email.
func (t *Transport) Deliver(ctx context.Context, recipientID, title, body string, payload map[string]string) (bool, error) {
	to := fmt.Sprintf("%s@%s", recipientID, t.domain)

	msg := []byte("To: " + to + "\r\n" +
		"Subject: " + title + "\r\n" +
		"\r\n" + body + "\r\n")

	auth := smtp.PlainAuth("", t.sender, t.password, t.host)
	address := t.host + ":" + t.port

	if err := smtp.SendMail(address, auth, t.sender, []string{to}, msg); err != nil {
		return false, fmt.Errorf("failed to send email: %v", err)
	}

	logrus.WithField("recipient", recipientID).Debug("Delivered notification via email")
	return true, nil
}
