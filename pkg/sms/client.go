package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/leasewise/leasewise-backend/pkg/config"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

// ErrNotConfigured is returned when account credentials or the sender number are missing.
var ErrNotConfigured = errors.New("sms gateway not configured")

const defaultHTTPTimeout = 15 * time.Second

// Client sends text messages through the Twilio Messages API.
type Client struct {
	cfg  config.SMSConfig
	rest *twilio.RestClient
	logg *logger.Logger
}

// New builds a client. httpClient may be nil; it is handed to the Twilio SDK
// as its transport.
func New(cfg config.SMSConfig, httpClient *http.Client, logg *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	c := &Client{cfg: cfg, logg: logg}
	if c.Configured() {
		base := &twilioclient.Client{
			Credentials: twilioclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
			HTTPClient:  httpClient,
		}
		base.SetAccountSid(cfg.AccountSID)
		c.rest = twilio.NewRestClientWithParams(twilio.ClientParams{Client: base})
	}
	return c
}

// Configured reports whether credentials and a sender number are present.
func (c *Client) Configured() bool {
	return c != nil &&
		strings.TrimSpace(c.cfg.AccountSID) != "" &&
		strings.TrimSpace(c.cfg.AuthToken) != "" &&
		strings.TrimSpace(c.cfg.FromNumber) != ""
}

// Send delivers body to an E.164 phone number. Provider rejections unwrap to
// *twilioclient.TwilioRestError.
//
// The SDK takes no context, so the call runs aside and Send returns as soon
// as ctx ends; the request itself is bounded by the HTTP client timeout.
func (c *Client) Send(ctx context.Context, to, body string) error {
	if !c.Configured() {
		if c != nil && c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "recipient", to), "sms gateway not configured; dropping message")
		}
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.cfg.FromNumber)
	params.SetBody(body)

	done := make(chan error, 1)
	go func() {
		_, err := c.rest.Api.CreateMessage(params)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send sms: %w", err)
		}
		return nil
	}
}
