package notify

import (
	"context"

	"github.com/jmehdipour/optica-notifier/internal/dispatcher"
)

type smsDispatcher interface {
	Send(ctx context.Context, sms dispatcher.SMS) error
}

// HTTPSMSSender sends through the HTTP provider pool.
type HTTPSMSSender struct {
	pool     smsDispatcher
	senderID string
}

func NewHTTPSMSSender(pool smsDispatcher, senderID string) *HTTPSMSSender {
	return &HTTPSMSSender{pool: pool, senderID: senderID}
}

func (s *HTTPSMSSender) SendSMS(ctx context.Context, to, text string) error {
	return s.pool.Send(ctx, dispatcher.SMS{To: to, Text: text, SenderID: s.senderID})
}
