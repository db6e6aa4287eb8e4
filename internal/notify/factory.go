package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/config"
	"github.com/jmehdipour/optica-notifier/internal/dispatcher"
)

// NewFromConfig wires the configured email and SMS drivers into a Gateway.
// Driver "none" leaves the channel disabled.
func NewFromConfig(ctx context.Context, cfg config.Config, log *zap.Logger) (*Gateway, error) {
	if log == nil {
		log = zap.NewNop()
	}
	renderer := NewRenderer(cfg.Alerts.Brand, cfg.Alerts.Address, cfg.Alerts.Location())

	var email EmailSender
	ec := cfg.Notify.Email
	switch ec.Driver {
	case "smtp":
		email = NewSMTPSender(ec.SMTP, ec.From, cfg.Alerts.Brand, log)
	case "ses":
		s, err := NewSESSender(ctx, ec.SES.Region, ec.From, cfg.Alerts.Brand)
		if err != nil {
			return nil, err
		}
		email = s
	case "log":
		email = NewLogSender(log)
	case "none":
	default:
		return nil, fmt.Errorf("unknown email driver %q", ec.Driver)
	}

	var sms SMSSender
	sc := cfg.Notify.SMS
	switch sc.Driver {
	case "http":
		pool, err := dispatcher.NewFromConfig(sc)
		if err != nil {
			return nil, fmt.Errorf("sms providers: %w", err)
		}
		sms = NewHTTPSMSSender(pool, sc.SenderID)
	case "sns":
		s, err := NewSNSSender(ctx, sc.SNS.Region, sc.SenderID)
		if err != nil {
			return nil, err
		}
		sms = s
	case "log":
		sms = NewLogSender(log)
	case "none":
	default:
		return nil, fmt.Errorf("unknown sms driver %q", sc.Driver)
	}

	log.Info("notification gateway ready",
		zap.String("email_driver", ec.Driver),
		zap.String("sms_driver", sc.Driver),
	)
	return NewGateway(email, sms, renderer, log), nil
}
