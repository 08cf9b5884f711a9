package email

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jwalitptl/booking-api/pkg/logger"
)

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerSender stops calling next after FailureThreshold consecutive
// failures until Timeout elapses.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, cfg BreakerConfig, l *logger.Logger) *BreakerSender {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return &BreakerSender{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "email-sender",
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				l.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

func (s *BreakerSender) Send(ctx context.Context, msg Message) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Send(ctx, msg)
	})
	return err
}

// State reports the breaker state, e.g. for readiness output.
func (s *BreakerSender) State() string {
	return s.cb.State().String()
}
