// Package email sends flag summaries over SMTP with the PDF report attached.
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"

	"quickfi/internal/notify"
	"quickfi/internal/notify/report"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Recipient string
}

// Notifier implements notify.Notifier for SMTP.
type Notifier struct {
	cfg  Config
	send SendFunc
}

type Option func(*Notifier)

// WithSender replaces smtp.SendMail.
func WithSender(fn SendFunc) Option {
	return func(n *Notifier) { n.send = fn }
}

func New(cfg Config, opts ...Option) *Notifier {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	n := &Notifier{cfg: cfg, send: smtp.SendMail}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Notify(ctx context.Context, s notify.Summary) error {
	to := s.Recipient
	if to == "" {
		to = n.cfg.Recipient
	}
	if to == "" {
		return notify.ErrNoRecipient
	}
	if n.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	attachment, err := report.PDF(s)
	if err != nil {
		return err
	}
	msg, err := Compose(n.cfg.From, to, report.Subject(s.VendorName), report.Text(s), attachmentName(s.VendorName), attachment)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	if err := n.send(addr, auth, n.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send flag email: %w", err)
	}
	return nil
}

// Compose builds a multipart/mixed message with a text body and a PDF part.
func Compose(from, to, subject, body, filename string, pdf []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", w.Boundary())

	text, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, fmt.Errorf("create text part: %w", err)
	}
	if _, err := text.Write([]byte(strings.ReplaceAll(body, "\n", "\r\n"))); err != nil {
		return nil, fmt.Errorf("write text part: %w", err)
	}

	if len(pdf) > 0 {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/pdf"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filename)},
		})
		if err != nil {
			return nil, fmt.Errorf("create attachment part: %w", err)
		}
		if _, err := part.Write(wrap76(base64.StdEncoding.EncodeToString(pdf))); err != nil {
			return nil, fmt.Errorf("write attachment part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

func attachmentName(vendorName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, vendorName)
	if name == "" {
		name = "vendor"
	}
	return name + "_flags.pdf"
}

// wrap76 splits base64 into RFC 2045 lines.
func wrap76(s string) []byte {
	var b bytes.Buffer
	for len(s) > 76 {
		b.WriteString(s[:76])
		b.WriteString("\r\n")
		s = s[76:]
	}
	b.WriteString(s)
	return b.Bytes()
}
