package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/booking-api/internal/model"
)

// MailHandler delivers "mail.send" outbox events.
type MailHandler struct {
	renderer *Renderer
	sender   Sender
}

func NewMailHandler(renderer *Renderer, sender Sender) *MailHandler {
	return &MailHandler{renderer: renderer, sender: sender}
}

func (h *MailHandler) Handle(ctx context.Context, event *model.OutboxEvent) error {
	var m model.Mail
	if err := json.Unmarshal(event.Payload, &m); err != nil {
		return fmt.Errorf("failed to decode mail: %w", err)
	}

	name, address, err := ParseRecipient(m.To)
	if err != nil {
		return err
	}

	html, err := h.renderer.Render(m.Template, m.Context)
	if err != nil {
		return err
	}

	return h.sender.Send(ctx, Message{
		To:      address,
		ToName:  name,
		Subject: m.Subject,
		HTML:    html,
	})
}
