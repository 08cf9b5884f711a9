package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded HTML templates. A template named
// "<name>.<locale>.html" wins over the generic "<name>.html".
type Renderer struct {
	tmpl   *template.Template
	locale string
}

func NewRenderer(locale string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, locale: locale}, nil
}

func (r *Renderer) Render(name string, data map[string]interface{}) (string, error) {
	t := r.tmpl.Lookup(name + "." + r.locale + ".html")
	if t == nil {
		t = r.tmpl.Lookup(name + ".html")
	}
	if t == nil {
		return "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", name, err)
	}
	return buf.String(), nil
}
