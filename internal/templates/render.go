// Package templates handles HTML template rendering for Datastar SSE responses.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
	"sync"
)

//go:embed fragments/*.html
var fragments embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	"coord": func(v float64) string {
		return fmt.Sprintf("%.5f", v)
	},
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New creates a renderer over the fragments compiled into the binary.
func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fragments, "fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing embedded fragments: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// NewFromDir creates a renderer from fragmentsDir on disk, for development.
func NewFromDir(fragmentsDir string) (*Renderer, error) {
	tmpl, err := parseDir(fragmentsDir)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

func parseDir(dir string) (*template.Template, error) {
	pattern := filepath.Join(dir, "*.html")
	tmpl, err := template.New("").Funcs(funcMap).ParseGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pattern, err)
	}
	return tmpl, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// MustRender renders a template and panics on error.
// Use only when you're certain the template exists.
func (r *Renderer) MustRender(name string, data any) string {
	s, err := r.Render(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

// Reload reloads templates from disk (useful for dev hot-reload).
func (r *Renderer) Reload(fragmentsDir string) error {
	tmpl, err := parseDir(fragmentsDir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
