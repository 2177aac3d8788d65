package paging

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"strings"
	"text/template"
	"time"

	"github.com/medops/opsdesk/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var channelTypes = []domain.ChannelType{domain.ChannelTypeMattermost, domain.ChannelTypeTelegram}

// Renderer renders pages from embedded templates, one per channel type.
type Renderer struct {
	templates map[domain.ChannelType]*template.Template
}

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":         titleCase,
		"upper":         strings.ToUpper,
		"formatTime":    formatTime,
		"severityEmoji": severityEmoji,
		"escapeHTML":    html.EscapeString,
	}

	r := &Renderer{templates: make(map[domain.ChannelType]*template.Template, len(channelTypes))}

	for _, channel := range channelTypes {
		filename := fmt.Sprintf("templates/%s.tmpl", channel)

		content, err := templatesFS.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", filename, err)
		}

		tmpl, err := template.New(string(channel)).Funcs(funcMap).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", channel, err)
		}

		r.templates[channel] = tmpl
	}

	return r, nil
}

// Render renders a payload for the channel type and returns subject and body.
func (r *Renderer) Render(channelType domain.ChannelType, payload Payload) (subject, body string, err error) {
	tmpl, ok := r.templates[channelType]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", channelType)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", channelType, err)
	}

	return renderSubject(payload), strings.TrimSpace(buf.String()), nil
}

func renderSubject(payload Payload) string {
	return fmt.Sprintf("[Insiden %s] %s", payload.Incident.Severity, payload.Incident.Title)
}

var titleCaser = cases.Title(language.Indonesian)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("02 Jan 2006 15:04 UTC")
}

func severityEmoji(severity string) string {
	switch domain.Priority(severity) {
	case domain.PriorityKritis:
		return "🔴"
	case domain.PriorityTinggi:
		return "🟠"
	case domain.PrioritySedang:
		return "🟡"
	case domain.PriorityRendah:
		return "🟢"
	default:
		return "⚪"
	}
}
