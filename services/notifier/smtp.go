package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	apperrors "pricetracker/pkg/errors"
)

// SMTPNotifier implements Notifier over plain SMTP with AUTH
type SMTPNotifier struct {
	host string
	port int
	user string
	pass string
	from string

	// send is swappable for tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates an SMTP notifier. from falls back to user
// when empty.
func NewSMTPNotifier(host string, port int, user, pass, from string) *SMTPNotifier {
	if from == "" {
		from = user
	}
	return &SMTPNotifier{
		host: host,
		port: port,
		user: user,
		pass: pass,
		from: from,
		send: smtp.SendMail,
	}
}

// Send delivers a single HTML email. The SMTP dialog itself is not
// cancellable mid-flight, so the context is only checked up front.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewNotification("email send cancelled", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.user, n.pass, n.host)

	if err := n.send(addr, auth, n.from, []string{to}, []byte(msg.String())); err != nil {
		return apperrors.NewNotification(fmt.Sprintf("failed to send email to %s", to), err)
	}
	return nil
}
