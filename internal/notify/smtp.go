package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/model"
)

// SMTPNotifier sends HTML e-mail through a relay.
type SMTPNotifier struct {
	addr string
	host string
	from string
	auth smtp.Auth
	now  func() time.Time
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier returns a notifier for the relay at host:port. Credentials
// are optional; PLAIN auth is used when a username is set.
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	n := &SMTPNotifier{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		host: host,
		from: from,
		now:  time.Now,
		send: smtp.SendMail,
	}
	if username != "" {
		n.auth = smtp.PlainAuth("", username, password, host)
	}
	return n
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, html string) error {
	if model.SkipNotify(to) {
		return nil
	}

	msg := n.compose(to, subject, html)
	done := make(chan error, 1)
	go func() {
		done <- n.send(n.addr, n.auth, n.from, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sending mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sending mail to %s: %w", to, ctx.Err())
	}
}

func (n *SMTPNotifier) compose(to, subject, html string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), n.host)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return b.Bytes()
}
