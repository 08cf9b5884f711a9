package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
	// Host overrides the API host, mostly for tests.
	Host string
}

// SendGridSender sends emails via the SendGrid API.
type SendGridSender struct {
	apiKey   string
	host     string
	from     string
	fromName string
}

func NewSendGridSender(cfg SendGridConfig) (*SendGridSender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	host := cfg.Host
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	return &SendGridSender{
		apiKey:   cfg.APIKey,
		host:     host,
		from:     cfg.From,
		fromName: cfg.FromName,
	}, nil
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail(msg.ToName, msg.To)

	text := msg.Text
	if text == "" {
		text = msg.HTML
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, text, msg.HTML)

	request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
