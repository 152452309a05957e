package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/cadencehq/cadence/internal/usecase"
)

type SMTPMailer struct {
	Host     string
	Port     int
	User     string
	Password string
}

func NewSMTPMailer(host string, port int, user, password string) *SMTPMailer {
	return &SMTPMailer{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, req usecase.SendRequest) usecase.SendResult {
	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(req.FromEmail, req.FromName))
	msg.SetHeader("To", req.To)
	msg.SetHeader("Subject", req.Subject)
	msg.SetBody("text/html", req.BodyHTML)

	d := gomail.NewDialer(m.Host, m.Port, m.User, m.Password)

	if err := d.DialAndSend(msg); err != nil {
		return usecase.SendResult{
			Success:   false,
			Error:     fmt.Sprintf("smtp send: %v", err),
			Retryable: isTransient(err),
		}
	}

	return usecase.SendResult{
		Success:   true,
		MessageID: "smtp-" + uuid.New().String(),
	}
}

// isTransient classifies connection-level failures and 4xx SMTP responses as
// retryable. Hard rejections (bad recipient, policy) are permanent.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "421") ||
		strings.Contains(msg, "450") ||
		strings.Contains(msg, "451") ||
		strings.Contains(msg, "452")
}
