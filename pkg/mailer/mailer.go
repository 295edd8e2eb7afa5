package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a rendered HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered emails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Render executes one of the embedded templates with the provided data.
func Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender sends mail through an SMTP relay using STARTTLS when offered.
type SMTPSender struct {
	cfg    SMTPConfig
	logger zerolog.Logger
}

// NewSMTPSender constructs an SMTP sender.
func NewSMTPSender(cfg SMTPConfig, logger zerolog.Logger) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host must be provided")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPSender{
		cfg:    cfg,
		logger: logger.With().Str("component", "smtp_mailer").Logger(),
	}, nil
}

// Send delivers the message, honouring the context deadline when it is sooner than the configured timeout.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient is required")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	deadline := time.Now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = client.Quit() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(envelopeAddress(s.cfg.From)); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMIME(s.cfg.From, msg)); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	s.logger.Info().Str("to", MaskEmail(msg.To)).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

func buildMIME(from string, msg Message) []byte {
	return []byte(strings.Join([]string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", msg.To),
		fmt.Sprintf("Subject: %s", msg.Subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		msg.HTML,
	}, "\r\n"))
}

// envelopeAddress extracts the bare mailbox from "Name <addr>".
func envelopeAddress(from string) string {
	if start := strings.LastIndex(from, "<"); start >= 0 {
		if end := strings.LastIndex(from, ">"); end > start {
			return strings.TrimSpace(from[start+1 : end])
		}
	}
	return strings.TrimSpace(from)
}

// LogSender writes emails to the log instead of sending them.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender constructs a log-only sender used when no relay is configured.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "log_mailer").Logger()}
}

// Send logs the message and reports success.
func (l *LogSender) Send(_ context.Context, msg Message) error {
	l.logger.Info().Str("to", MaskEmail(msg.To)).Str("subject", msg.Subject).Msg("email delivery skipped, no smtp relay configured")
	return nil
}

// MaskEmail hides most of the local part of an address for logging.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	local := email[:at]
	keep := 1
	if len(local) > 4 {
		keep = 2
	}
	return local[:keep] + strings.Repeat("*", len(local)-keep) + email[at:]
}
