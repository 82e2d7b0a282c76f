package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leasewise/leasewise-backend/pkg/config"
	"github.com/leasewise/leasewise-backend/pkg/logger"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned when SMTP host or sender address are missing.
var ErrNotConfigured = errors.New("email gateway not configured")

// Attachment is an in-memory file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is the transport-neutral email payload.
type Message struct {
	Subject     string
	Body        string
	HTML        bool
	Attachments []Attachment
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Client delivers messages over SMTP.
type Client struct {
	from   string
	dialer sender
	logg   *logger.Logger
}

// New builds an SMTP client. A missing host or sender yields a client whose
// Send logs a warning and returns ErrNotConfigured.
func New(cfg config.SMTPConfig, logg *logger.Logger) *Client {
	c := &Client{from: strings.TrimSpace(cfg.From), logg: logg}
	if strings.TrimSpace(cfg.Host) == "" || c.from == "" {
		return c
	}
	c.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return c
}

// Configured reports whether Send can reach a transport.
func (c *Client) Configured() bool {
	return c != nil && c.dialer != nil
}

// Send delivers msg to a single address. The SMTP dialog itself is not
// interruptible, so a cancelled ctx abandons the wait rather than the dial.
func (c *Client) Send(ctx context.Context, to string, msg Message) error {
	if !c.Configured() {
		if c != nil && c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "recipient", to), "email gateway not configured; dropping message")
		}
		return ErrNotConfigured
	}

	m := c.build(to, msg)

	done := make(chan error, 1)
	go func() {
		done <- c.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}
}

func (c *Client) build(to string, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)
	if msg.HTML {
		m.SetBody("text/html", msg.Body)
	} else {
		m.SetBody("text/plain", msg.Body)
	}

	for _, att := range msg.Attachments {
		data := att.Data
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		m.Attach(att.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {contentType}}),
		)
	}
	return m
}
