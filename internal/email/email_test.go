package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/pkg/logger"
)

func TestRendererPicksLocaleTemplate(t *testing.T) {
	data := map[string]interface{}{"provider": "Dr. Bob", "user": "Alice", "date": "dia 01 de maio, às 10:00h"}

	pt, err := NewRenderer("pt_BR")
	require.NoError(t, err)
	out, err := pt.Render("cancellation", data)
	require.NoError(t, err)
	assert.Contains(t, out, "Olá, Dr. Bob")
	assert.Contains(t, out, "Alice")

	en, err := NewRenderer("en")
	require.NoError(t, err)
	out, err = en.Render("cancellation", data)
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, Dr. Bob")
}

func TestRendererEscapesAndRejectsUnknown(t *testing.T) {
	r, err := NewRenderer("en")
	require.NoError(t, err)

	out, err := r.Render("cancellation", map[string]interface{}{"provider": "<b>x</b>"})
	require.NoError(t, err)
	assert.NotContains(t, out, "<b>x</b>")
	assert.Contains(t, out, "&lt;b&gt;x&lt;/b&gt;")

	_, err = r.Render("welcome", nil)
	assert.Error(t, err)
}

func TestParseRecipient(t *testing.T) {
	name, addr, err := ParseRecipient("Dr. Bob <bob@example.com>")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Bob", name)
	assert.Equal(t, "bob@example.com", addr)

	name, addr, err = ParseRecipient("bob@example.com")
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Equal(t, "bob@example.com", addr)

	_, _, err = ParseRecipient("not an address")
	assert.Error(t, err)
}

func TestSMTPMessageHeaders(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 2525, From: "noreply@booking.local", FromName: "Booking"})

	var buf bytes.Buffer
	_, err := s.message(Message{
		To:      "bob@example.com",
		ToName:  "Bob",
		Subject: "Appointment canceled",
		HTML:    "<p>hi</p>",
	}).WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "Subject: Appointment canceled")
	assert.Contains(t, raw, "bob@example.com")
	assert.Contains(t, raw, "noreply@booking.local")
	assert.Contains(t, raw, "text/html")
}

func TestSMTPSenderHonoursCanceledContext(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "bob@example.com"}), context.Canceled)
}

func TestSendGridSender(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s, err := NewSendGridSender(SendGridConfig{APIKey: "key", From: "noreply@booking.local", Host: srv.URL})
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{To: "bob@example.com", ToName: "Bob", Subject: "Appointment canceled", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "/v3/mail/send", gotPath)
	assert.Equal(t, "Bearer key", gotAuth)
	assert.Contains(t, gotBody, "Appointment canceled")
	assert.Contains(t, gotBody, "bob@example.com")
}

func TestSendGridSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s, err := NewSendGridSender(SendGridConfig{APIKey: "key", Host: srv.URL})
	require.NoError(t, err)
	assert.Error(t, s.Send(context.Background(), Message{To: "bob@example.com"}))

	_, err = NewSendGridSender(SendGridConfig{})
	assert.Error(t, err)
}

type failingSender struct{ calls int }

func (f *failingSender) Send(context.Context, Message) error {
	f.calls++
	return errors.New("relay down")
}

func TestBreakerSenderOpensAfterThreshold(t *testing.T) {
	next := &failingSender{}
	s := NewBreakerSender(next, BreakerConfig{FailureThreshold: 2, Timeout: time.Minute}, logger.Nop())

	for i := 0; i < 4; i++ {
		assert.Error(t, s.Send(context.Background(), Message{}))
	}
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, "open", s.State())
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(Config{Driver: "log"}, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)
	assert.NoError(t, s.Send(context.Background(), Message{To: "bob@example.com"}))

	s, err = NewSender(Config{Driver: "smtp", SMTP: SMTPConfig{Host: "localhost", Port: 25}}, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &BreakerSender{}, s)

	_, err = NewSender(Config{Driver: "sendgrid"}, logger.Nop())
	assert.Error(t, err)

	_, err = NewSender(Config{Driver: "fax"}, logger.Nop())
	assert.Error(t, err)
}
