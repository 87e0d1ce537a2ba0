package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/fs"
)

const emailTemplatesDir = "templates/email"

var (
	templates tmplCache
	tmplErr   error
	tmplInit  sync.Once
)

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]*tmplCacheEntry // {name: entry}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getTemplate() (*tmplCacheEntry, bool) {
	entry, ok := templates[m.TemplateName]
	return entry, ok
}

// Render fills TextContent and HTMLContent from BodyStr or from the message template.
func (m *EmailMessage) Render(frontendBaseURL string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	if err := ParseEmailTemplates(); err != nil {
		return err
	}
	entry, ok := m.getTemplate()
	if !ok {
		return errors.Errorf("email template %q not found", m.TemplateName)
	}
	data := ContextData{FrontendBaseURL: frontendBaseURL, Data: m.TemplateData}

	if entry.text != nil && m.BodyStr == "" {
		var buff bytes.Buffer
		if err := entry.text.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrap(err, "rendering text template")
		}
		m.TextContent = buff.String()
	}
	if entry.html != nil {
		var buff bytes.Buffer
		if err := entry.html.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrap(err, "rendering html template")
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates parses the embedded email templates once.
// Files starting with "_" are base layouts.
func ParseEmailTemplates() error {
	tmplInit.Do(func() {
		templates, tmplErr = parseTemplates(appfs.FS)
	})
	return tmplErr
}

func parseTemplates(fsys fs.FS) (tmplCache, error) {
	cache := make(tmplCache)

	entries, err := fs.ReadDir(fsys, emailTemplatesDir)
	if err != nil {
		return nil, errors.Wrap(err, "reading email templates")
	}

	for _, de := range entries {
		fname := de.Name()
		ext := path.Ext(fname)
		if de.IsDir() || strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := cache[name]
		if !ok {
			entry = new(tmplCacheEntry)
			cache[name] = entry
		}

		fp := path.Join(emailTemplatesDir, fname)
		base := path.Join(emailTemplatesDir, "_base"+ext)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fname)
			}
			entry.text = tmpl.Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fname)
			}
			entry.html = tmpl.Option("missingkey=error")
		}
	}
	return cache, nil
}
