// Package dispatch sends rendered notifications through the email and SMS
// gateways, one at a time and spaced by a shared rate limiter.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/leasewise/leasewise-backend/pkg/email"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	"github.com/leasewise/leasewise-backend/pkg/logger"
	"github.com/leasewise/leasewise-backend/pkg/metrics"
)

// EmailSender is satisfied by *email.Client.
type EmailSender interface {
	Send(ctx context.Context, to string, msg email.Message) error
}

// SMSSender is satisfied by *sms.Client.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// Item is one message for one target.
type Item struct {
	Channel     enums.Channel
	Target      string
	Subject     string
	Body        string
	Attachments []email.Attachment
}

// Result is the outcome of one Item. Target holds the normalised address the
// gateway actually received.
type Result struct {
	Item    Item
	Target  string
	Err     error
	Skipped bool
	SentAt  time.Time
}

func (r Result) OK() bool { return r.Err == nil }

// Params configures a Dispatcher.
type Params struct {
	Email              EmailSender
	SMS                SMSSender
	Delay              time.Duration
	SendTimeout        time.Duration
	DefaultCountryCode string
	Metrics            *metrics.DispatchMetrics
	Logger             *logger.Logger
	Now                func() time.Time
}

// Dispatcher is safe for concurrent use; all callers share the same pacing.
type Dispatcher struct {
	email       EmailSender
	sms         SMSSender
	limiter     *rate.Limiter
	sendTimeout time.Duration
	countryCode string
	metrics     *metrics.DispatchMetrics
	logg        *logger.Logger
	now         func() time.Time
}

func New(params Params) (*Dispatcher, error) {
	if params.Email == nil {
		return nil, errors.New("email sender required")
	}
	if params.SMS == nil {
		return nil, errors.New("sms sender required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(params.DefaultCountryCode) == "" {
		return nil, errors.New("default country code required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	limit := rate.Inf
	if params.Delay > 0 {
		limit = rate.Every(params.Delay)
	}
	return &Dispatcher{
		email:       params.Email,
		sms:         params.SMS,
		limiter:     rate.NewLimiter(limit, 1),
		sendTimeout: params.SendTimeout,
		countryCode: params.DefaultCountryCode,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Dispatch sends items sequentially and returns one Result per item, in order.
// Individual failures never stop the batch; a cancelled ctx fails the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, items []Item) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, d.send(ctx, item))
	}
	return results
}

// SendBulk dispatches items and returns how many were accepted by a gateway.
func (d *Dispatcher) SendBulk(ctx context.Context, items []Item) int {
	sent := 0
	for _, res := range d.Dispatch(ctx, items) {
		if res.OK() {
			sent++
		}
	}
	return sent
}

func (d *Dispatcher) send(ctx context.Context, item Item) Result {
	res := Result{Item: item}

	target, err := d.normalise(item)
	res.Target = target
	if err != nil {
		res.Err = err
		res.Skipped = true
		d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
			"channel": item.Channel.String(),
			"target":  item.Target,
		}), "skipping invalid recipient")
		d.metrics.ObserveAttempt(item.Channel.String(), metrics.OutcomeSkipped)
		return res
	}

	if err := d.limiter.Wait(ctx); err != nil {
		res.Err = fmt.Errorf("wait for send slot: %w", err)
		d.metrics.ObserveAttempt(item.Channel.String(), metrics.OutcomeFailed)
		return res
	}

	sendCtx := ctx
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	switch item.Channel {
	case enums.ChannelEmail:
		err = d.email.Send(sendCtx, target, email.Message{
			Subject:     item.Subject,
			Body:        item.Body,
			Attachments: item.Attachments,
		})
	case enums.ChannelSMS:
		err = d.sms.Send(sendCtx, target, TruncateSMS(item.Body))
	}

	if err != nil {
		res.Err = &TransportError{Channel: item.Channel, Err: err}
		d.logg.Error(d.logg.WithFields(ctx, map[string]any{
			"channel": item.Channel.String(),
			"target":  target,
		}), "dispatch failed", err)
		d.metrics.ObserveAttempt(item.Channel.String(), metrics.OutcomeFailed)
		return res
	}

	res.SentAt = d.now().UTC()
	d.metrics.ObserveAttempt(item.Channel.String(), metrics.OutcomeSent)
	return res
}

func (d *Dispatcher) normalise(item Item) (string, error) {
	switch item.Channel {
	case enums.ChannelEmail:
		target := strings.TrimSpace(item.Target)
		if !IsValidEmail(target) {
			return target, invalid(item.Target, "not an email address")
		}
		return target, nil
	case enums.ChannelSMS:
		target := FormatPhoneNumber(item.Target, d.countryCode)
		if !IsValidPhone(target) {
			return target, invalid(item.Target, "not an international phone number")
		}
		return target, nil
	default:
		return item.Target, invalid(item.Target, fmt.Sprintf("unsupported channel %q", item.Channel))
	}
}
