package email

import (
	"context"

	"github.com/jwalitptl/booking-api/pkg/logger"
)

// LogSender logs messages instead of delivering them.
type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(l *logger.Logger) *LogSender {
	return &LogSender{logger: l}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email not delivered, log driver", "to", msg.To, "subject", msg.Subject)
	return nil
}
