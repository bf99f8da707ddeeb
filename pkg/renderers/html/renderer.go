// Package html renders a read-only HTML preview of descriptors so schema
// authors can see the form an entity editor will get.
package html

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-customfields/pkg/model"
	"github.com/goliatone/go-customfields/pkg/runtime"
)

//go:embed templates/*.tpl
var embedded embed.FS

const defaultTemplate = "preview.tpl"

// Page is the data shown by one preview.
type Page struct {
	Title       string
	SchemaID    string
	Version     int
	Descriptors []model.Descriptor
	Values      map[string]any
	Errors      map[string]string
	FormErrors  []string
}

// PageFromSnapshot builds a Page from the state of a runtime form. Server
// errors are shown next to validation errors.
func PageFromSnapshot(title string, snap runtime.Snapshot) Page {
	errs := make(map[string]string, len(snap.Errors)+len(snap.ServerErrors))
	for path, msg := range snap.Errors {
		errs[path] = msg
	}
	for path, messages := range snap.ServerErrors {
		if _, ok := errs[path]; !ok && len(messages) > 0 {
			errs[path] = strings.Join(messages, "; ")
		}
	}
	return Page{
		Title:       title,
		SchemaID:    snap.SchemaID,
		Version:     snap.Version,
		Descriptors: snap.Descriptors,
		Values:      snap.Value,
		Errors:      errs,
		FormErrors:  snap.FormErrors,
	}
}

// Option configures the Renderer.
type Option func(*config)

type config struct {
	files       fs.FS
	name        string
	lang        string
	stylesheet  string
	submitLabel string
}

// WithTemplateFS replaces the embedded template with name read from files.
func WithTemplateFS(files fs.FS, name string) Option {
	return func(cfg *config) {
		if files != nil && strings.TrimSpace(name) != "" {
			cfg.files = files
			cfg.name = name
		}
	}
}

// WithStylesheet links a stylesheet from the page head.
func WithStylesheet(href string) Option {
	return func(cfg *config) {
		cfg.stylesheet = strings.TrimSpace(href)
	}
}

// WithLanguage sets the html lang attribute.
func WithLanguage(lang string) Option {
	return func(cfg *config) {
		if lang = strings.TrimSpace(lang); lang != "" {
			cfg.lang = lang
		}
	}
}

// WithSubmitLabel sets the submit button text.
func WithSubmitLabel(label string) Option {
	return func(cfg *config) {
		if label = strings.TrimSpace(label); label != "" {
			cfg.submitLabel = label
		}
	}
}

// Renderer executes the preview template.
type Renderer struct {
	tpl  *pongo2.Template
	base pongo2.Context
}

// New parses the preview template.
func New(options ...Option) (*Renderer, error) {
	cfg := &config{files: embedded, name: "templates/" + defaultTemplate, lang: "en", submitLabel: "Save"}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	set := pongo2.NewSet("customfields-preview", pongo2.NewFSLoader(cfg.files))
	tpl, err := set.FromFile(cfg.name)
	if err != nil {
		return nil, fmt.Errorf("html: parse template %q: %w", cfg.name, err)
	}
	return &Renderer{
		tpl: tpl,
		base: pongo2.Context{
			"lang":         cfg.lang,
			"stylesheet":   cfg.stylesheet,
			"submit_label": cfg.submitLabel,
		},
	}, nil
}

// ContentType reports the media type written by Render.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render writes the preview of page to w.
func (r *Renderer) Render(w io.Writer, page Page) error {
	if r == nil || r.tpl == nil {
		return errors.New("html: renderer is nil")
	}
	if page.Title == "" {
		page.Title = "Custom fields"
	}
	ctx := pongo2.Context{}
	ctx.Update(r.base)
	ctx["page"] = page
	ctx["rows"] = flatten(page.Descriptors, "", page.Values, page.Errors)
	if err := r.tpl.ExecuteWriter(ctx, w); err != nil {
		return fmt.Errorf("html: render: %w", err)
	}
	return nil
}

// RenderString is Render into a string.
func (r *Renderer) RenderString(page Page) (string, error) {
	var b strings.Builder
	if err := r.Render(&b, page); err != nil {
		return "", err
	}
	return b.String(), nil
}

// TemplatesFS exposes the built-in templates so callers can copy or extend
// them and pass the result to WithTemplateFS.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return embedded
	}
	return sub
}
