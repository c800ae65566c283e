// Package mail renders and delivers transactional email such as the welcome message.
package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// TemplateWelcome is the template sent after registration.
const TemplateWelcome = "welcome"

// ErrUnknownTemplate is returned when no template with the requested name is embedded.
var ErrUnknownTemplate = errors.New("mail: unknown template")

// Mailer sends a templated message. data is the template context.
type Mailer interface {
	Send(ctx context.Context, subject, to, template string, data any) error
}

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Templates holds the parsed HTML and plain-text bodies, keyed by template name.
type Templates struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// LoadTemplates parses the embedded templates. Each name has a .html and a .txt variant.
func LoadTemplates() (*Templates, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("mail: parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("mail: parse text templates: %w", err)
	}
	return &Templates{html: html, text: text}, nil
}

// Message is a rendered email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Render executes the named template with data into a message for to.
func (t *Templates) Render(subject, to, name string, data any) (Message, error) {
	ht := t.html.Lookup(name + ".html")
	tt := t.text.Lookup(name + ".txt")
	if ht == nil || tt == nil {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	var hb, tb bytes.Buffer
	if err := ht.Execute(&hb, data); err != nil {
		return Message{}, fmt.Errorf("mail: render %s.html: %w", name, err)
	}
	if err := tt.Execute(&tb, data); err != nil {
		return Message{}, fmt.Errorf("mail: render %s.txt: %w", name, err)
	}
	return Message{
		To:      to,
		Subject: subject,
		HTML:    strings.TrimSpace(hb.String()),
		Text:    strings.TrimSpace(tb.String()),
	}, nil
}
