package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender only logs. It stands in for a real provider in development and
// always reports success.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{log: log.Named("simulated")}
}

func (s *LogSender) SendEmail(_ context.Context, e Email) error {
	s.log.Info("email (simulated)", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}

func (s *LogSender) SendSMS(_ context.Context, to, text string) error {
	s.log.Info("sms (simulated)", zap.String("to", to), zap.Int("len", len([]rune(text))))
	return nil
}
