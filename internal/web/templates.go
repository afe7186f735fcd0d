package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"

	"github.com/gorilla/csrf"

	"github.com/valpere/medassist/internal/markdown"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

// ParseFS parses the named templates. csrfField is bound per request in Execute.
func ParseFS(fsys fs.FS, patterns ...string) (Template, error) {
	tpl := template.New(path.Base(patterns[0]))
	tpl.Funcs(template.FuncMap{
		"csrfField": func() (template.HTML, error) {
			return "", fmt.Errorf("csrfField not bound")
		},
		"markdown": markdown.ToHTML,
	})

	tpl, err := tpl.ParseFS(fsys, patterns...)
	if err != nil {
		return Template{}, fmt.Errorf("parsing template: %w", err)
	}
	return Template{htmlTpl: tpl}, nil
}

type Template struct {
	htmlTpl *template.Template
}

// Execute renders data with the given status. Rendering happens into a buffer
// first so a template error never leaves a half-written page.
func (t Template) Execute(w http.ResponseWriter, r *http.Request, status int, data any, logger *slog.Logger) {
	tpl, err := t.htmlTpl.Clone()
	if err != nil {
		logger.Error("template_clone_failed", "err", err)
		http.Error(w, "There was an error rendering the page", http.StatusInternalServerError)
		return
	}

	tpl.Funcs(template.FuncMap{
		"csrfField": func() template.HTML {
			return csrf.TemplateField(r)
		},
	})

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		logger.Error("template_execute_failed", "err", err)
		http.Error(w, "There was an error rendering the page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	io.Copy(w, &buf)
}
