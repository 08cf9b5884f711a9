package email

import (
	"fmt"

	"github.com/jwalitptl/booking-api/pkg/logger"
)

// Config selects and configures the delivery driver.
type Config struct {
	Driver   string
	SMTP     SMTPConfig
	SendGrid SendGridConfig
	Breaker  BreakerConfig
}

// NewSender builds the configured driver. Network drivers are wrapped in a
// circuit breaker.
func NewSender(cfg Config, l *logger.Logger) (Sender, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogSender(l), nil
	case "smtp":
		return NewBreakerSender(NewSMTPSender(cfg.SMTP), cfg.Breaker, l), nil
	case "sendgrid":
		sg, err := NewSendGridSender(cfg.SendGrid)
		if err != nil {
			return nil, err
		}
		return NewBreakerSender(sg, cfg.Breaker, l), nil
	default:
		return nil, fmt.Errorf("unknown email driver %q", cfg.Driver)
	}
}
