package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	corefuncs "github.com/agentqa/qa-dashboard/internal/http/templates/core"
)

// Page template names under pages/.
const (
	PageLogin     = "login"
	PageDashboard = "dashboard"
	PageAgents    = "agents"
	PageRun       = "run"
	PageSettings  = "settings"
	PageError     = "error"
)

func pageNames() []string {
	return []string{PageLogin, PageDashboard, PageAgents, PageRun, PageSettings, PageError}
}

// TemplateRenderer renders HTML templates for UI responses.
// Each page is parsed together with the shared layout so every page can
// define its own "content" block.
type TemplateRenderer struct {
	fsys    fs.FS
	devMode bool
	pages   map[string]*template.Template
	logger  *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS // Required
	DevMode    bool  // Re-parse on every render
	Logger     *slog.Logger
}

// NewTemplateRenderer parses layout.tmpl plus every page under pages/.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &TemplateRenderer{fsys: cfg.TemplateFS, devMode: cfg.DevMode, logger: logger}
	pages, err := r.parse()
	if err != nil {
		logger.Error("template parsing failed", slog.Any("error", err), slog.String("phase", "initialization"))
		return nil, err
	}
	r.pages = pages
	return r, nil
}

func (r *TemplateRenderer) parse() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames()))
	for _, name := range pageNames() {
		t, err := template.New(name).Funcs(corefuncs.Funcs()).ParseFS(r.fsys,
			"layout.tmpl",
			"pages/"+name+".tmpl",
		)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// Render writes page wrapped in the layout with the given status.
func (r *TemplateRenderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	pages := r.pages
	if r.devMode {
		reloaded, err := r.parse()
		if err != nil {
			r.logger.Error("template reload failed", slog.Any("error", err))
			return err
		}
		pages = reloaded
	}
	t, ok := pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template execution failed",
			slog.String("template", page),
			slog.Any("error", err),
		)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Error("failed to write rendered template",
			slog.String("template", page),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}
