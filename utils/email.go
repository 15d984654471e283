package utils

import (
	"crypto/tls"
	"errors"
	"fmt"
	"html"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
)

var ErrSMTPNotConfigured = errors.New("smtp config missing")

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	TLS      bool
	StartTLS bool
}

// Mailer sends share notifications over SMTP.
type Mailer struct {
	cfg  SMTPConfig
	send func(e *email.Email) error
}

// NewMailer returns a mailer. Send fails with ErrSMTPNotConfigured until
// host and sender are set.
func NewMailer(cfg SMTPConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	m.send = m.deliver
	return m
}

// ShareMessage is a rendered share-link mail.
type ShareMessage struct {
	To        string
	FileName  string
	ShortURL  string
	Size      int64
	ExpiresAt string
	Protected bool
}

// SendShareLink mails a short link to a recipient.
func (m *Mailer) SendShareLink(msg ShareMessage) error {
	if m.cfg.Host == "" || m.cfg.From == "" {
		return ErrSMTPNotConfigured
	}
	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{msg.To}
	e.Subject = "A file was shared with you: " + msg.FileName
	e.HTML = []byte(renderShareHTML(msg))
	return m.send(e)
}

func renderShareHTML(msg ShareMessage) string {
	body := fmt.Sprintf(`
		<h2>%s</h2>
		<p>Someone shared a file with you:</p>
		<a href="%s">%s</a>
		<p>Size: %s</p>`,
		html.EscapeString(msg.FileName), html.EscapeString(msg.ShortURL), html.EscapeString(msg.ShortURL), FormatSize(msg.Size))
	if msg.ExpiresAt != "" {
		body += fmt.Sprintf("\n\t\t<p>The link is valid until %s.</p>", html.EscapeString(msg.ExpiresAt))
	}
	if msg.Protected {
		body += "\n\t\t<p>The file is password protected. Ask the sender for the password.</p>"
	}
	return body
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func (m *Mailer) deliver(e *email.Email) error {
	port := m.cfg.Port
	if port == 0 {
		port = 25
	}
	addr := m.cfg.Host + ":" + strconv.Itoa(port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	tlsConfig := &tls.Config{ServerName: m.cfg.Host}

	if m.cfg.TLS || port == 465 {
		return e.SendWithTLS(addr, auth, tlsConfig)
	}
	if m.cfg.StartTLS {
		return e.SendWithStartTLS(addr, auth, tlsConfig)
	}
	return e.Send(addr, auth)
}
