// Package locale renders slots and notification texts in the configured
// language.
package locale

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/pt_BR"
)

// Bundle is the set of texts for one language. Templates use text/template
// syntax.
type Bundle struct {
	Translator locales.Translator
	// DateFormat receives .Day (two digits), .Month (wide month name),
	// .Year, .Hour (no padding) and .Minute (two digits).
	DateFormat string
	// NewAppointment receives .User and .Date.
	NewAppointment      string
	CancellationSubject string
}

// DefaultName is used when no locale is configured.
const DefaultName = "en"

var bundles = map[string]Bundle{
	"pt_BR": {
		Translator:          pt_BR.New(),
		DateFormat:          "dia {{.Day}} de {{.Month}}, às {{.Hour}}:{{.Minute}}h",
		NewAppointment:      "Novo agendamento de {{.User}} para o {{.Date}}",
		CancellationSubject: "Agendamento cancelado",
	},
	"en": {
		Translator:          en.New(),
		DateFormat:          "day {{.Day}} of {{.Month}}, at {{.Hour}}:{{.Minute}}h",
		NewAppointment:      "New appointment from {{.User}} for {{.Date}}",
		CancellationSubject: "Appointment canceled",
	},
}

// Config selects a bundle and optionally overrides its texts.
type Config struct {
	Name                string
	Timezone            string
	DateFormat          string
	NewAppointment      string
	CancellationSubject string
}

// Formatter formats slots and messages for one locale.
type Formatter struct {
	tr      locales.Translator
	loc     *time.Location
	date    *template.Template
	created *template.Template
	subject string
}

type dateParts struct {
	Day    string
	Month  string
	Year   int
	Hour   int
	Minute string
}

// New builds a Formatter. Unknown locale names and timezones are errors.
func New(cfg Config) (*Formatter, error) {
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	b, ok := bundles[name]
	if !ok {
		return nil, fmt.Errorf("unsupported locale %q", name)
	}
	if cfg.DateFormat != "" {
		b.DateFormat = cfg.DateFormat
	}
	if cfg.NewAppointment != "" {
		b.NewAppointment = cfg.NewAppointment
	}
	if cfg.CancellationSubject != "" {
		b.CancellationSubject = cfg.CancellationSubject
	}

	loc := time.UTC
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		loc = l
	}

	date, err := template.New("date").Parse(b.DateFormat)
	if err != nil {
		return nil, fmt.Errorf("parse date format: %w", err)
	}
	created, err := template.New("new_appointment").Parse(b.NewAppointment)
	if err != nil {
		return nil, fmt.Errorf("parse new appointment text: %w", err)
	}

	return &Formatter{
		tr:      b.Translator,
		loc:     loc,
		date:    date,
		created: created,
		subject: b.CancellationSubject,
	}, nil
}

// MustNew is New for static configurations, mostly tests.
func MustNew(cfg Config) *Formatter {
	f, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return f
}

// Location is the zone used for display and for zone-less input dates.
func (f *Formatter) Location() *time.Location {
	return f.loc
}

// FormatSlot renders t, e.g. "dia 01 de maio, às 10:00h".
func (f *Formatter) FormatSlot(t time.Time) (string, error) {
	t = t.In(f.loc)
	var buf bytes.Buffer
	err := f.date.Execute(&buf, dateParts{
		Day:    fmt.Sprintf("%02d", t.Day()),
		Month:  f.tr.MonthWide(t.Month()),
		Year:   t.Year(),
		Hour:   t.Hour(),
		Minute: fmt.Sprintf("%02d", t.Minute()),
	})
	if err != nil {
		return "", fmt.Errorf("format slot: %w", err)
	}
	return buf.String(), nil
}

// NewAppointmentMessage is the in-app notice sent to a provider on booking.
func (f *Formatter) NewAppointmentMessage(userName string, slot time.Time) (string, error) {
	date, err := f.FormatSlot(slot)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := f.created.Execute(&buf, map[string]string{"User": userName, "Date": date}); err != nil {
		return "", fmt.Errorf("format new appointment message: %w", err)
	}
	return buf.String(), nil
}

// CancellationSubject is the subject of the cancellation e-mail.
func (f *Formatter) CancellationSubject() string {
	return f.subject
}
