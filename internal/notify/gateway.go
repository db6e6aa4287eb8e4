package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/model"
	"github.com/jmehdipour/optica-notifier/internal/util"
)

var (
	ErrNoAddress       = errors.New("recipient has no address for channel")
	ErrChannelDisabled = errors.New("channel disabled")
)

// Email is a rendered message ready for an EmailSender.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type EmailSender interface {
	SendEmail(ctx context.Context, e Email) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, text string) error
}

// Request asks the gateway to deliver one message on the listed channels.
// Blank Email/Phone mean the recipient cannot be reached on that channel.
type Request struct {
	Email    string
	Phone    string
	Subject  string
	Message  string
	Channels []model.Channel
}

type ChannelResult struct {
	Channel   model.Channel
	Delivered bool
	Err       error
}

// Result has one entry per requested channel, in request order.
type Result struct {
	Channels []ChannelResult
}

// Any reports whether at least one channel delivered.
func (r Result) Any() bool {
	for _, c := range r.Channels {
		if c.Delivered {
			return true
		}
	}
	return false
}

func (r Result) Delivered(ch model.Channel) bool {
	for _, c := range r.Channels {
		if c.Channel == ch {
			return c.Delivered
		}
	}
	return false
}

// Err joins the per-channel failures, or nil.
func (r Result) Err() error {
	var errs []error
	for _, c := range r.Channels {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Channel, c.Err))
		}
	}
	return errors.Join(errs...)
}

// Gateway delivers on each requested channel independently. A nil sender
// disables its channel.
type Gateway struct {
	email    EmailSender
	sms      SMSSender
	renderer *Renderer
	log      *zap.Logger
	now      func() time.Time
}

func NewGateway(email EmailSender, sms SMSSender, renderer *Renderer, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{email: email, sms: sms, renderer: renderer, log: log.Named("gateway"), now: time.Now}
}

// Send never returns early: a failing channel does not stop the next one.
func (g *Gateway) Send(ctx context.Context, req Request) Result {
	res := Result{Channels: make([]ChannelResult, 0, len(req.Channels))}
	seen := make(map[model.Channel]bool, len(req.Channels))

	for _, ch := range req.Channels {
		if seen[ch] {
			continue
		}
		seen[ch] = true

		var err error
		switch ch {
		case model.ChannelEmail:
			err = g.sendEmail(ctx, req)
		case model.ChannelSMS:
			err = g.sendSMS(ctx, req)
		default:
			err = fmt.Errorf("unknown channel %q", ch)
		}
		if err != nil {
			g.log.Warn("channel delivery failed", zap.String("channel", ch.String()), zap.Error(err))
		}
		res.Channels = append(res.Channels, ChannelResult{Channel: ch, Delivered: err == nil, Err: err})
	}
	return res
}

func (g *Gateway) sendEmail(ctx context.Context, req Request) error {
	to := strings.TrimSpace(req.Email)
	if to == "" {
		return ErrNoAddress
	}
	if g.email == nil {
		return ErrChannelDisabled
	}
	html, err := g.renderer.EmailHTML(req.Subject, req.Message, g.now())
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return g.email.SendEmail(ctx, Email{To: to, Subject: req.Subject, Text: req.Message, HTML: html})
}

func (g *Gateway) sendSMS(ctx context.Context, req Request) error {
	to := util.NormalizePhone(req.Phone)
	if to == "" {
		return ErrNoAddress
	}
	if g.sms == nil {
		return ErrChannelDisabled
	}
	return g.sms.SendSMS(ctx, to, SMSText(req.Subject, req.Message))
}
