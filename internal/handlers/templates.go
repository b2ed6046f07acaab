package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/fapagri/console/internal/api"
)

//go:embed templates static
var assets embed.FS

// Raw HTML in notes is escaped: WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var funcMap = template.FuncMap{
	"markdown": func(content string) template.HTML {
		var buf strings.Builder
		if err := markdown.Convert([]byte(content), &buf); err != nil {
			return template.HTML(template.HTMLEscapeString(content))
		}
		return template.HTML(buf.String())
	},
	"tons": func(v float64) string {
		return fmt.Sprintf("%.2f tons", v)
	},
	"hectares": func(p *float64) string {
		if p == nil {
			return "-"
		}
		return humanize.Commaf(*p) + " ha"
	},
	"coord": func(p *float64) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprintf("%.6f", *p)
	},
	"deref": func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	},
	"date": func(t api.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2 Jan 2006")
	},
	"ago": func(t api.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t.Time)
	},
	"title": func(s string) string {
		s = strings.ReplaceAll(s, "_", " ")
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"dict": func(values ...any) map[string]any {
		d := make(map[string]any, len(values)/2)
		for i := 0; i < len(values)-1; i += 2 {
			d[fmt.Sprintf("%v", values[i])] = values[i+1]
		}
		return d
	},
}

var (
	pages     map[string]*template.Template
	fragments *template.Template
)

func init() {
	pages = map[string]*template.Template{}
	files, err := fs.Glob(assets, "templates/pages/*.html")
	if err != nil {
		panic(err)
	}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		pages[name] = template.Must(template.New(name).Funcs(funcMap).ParseFS(assets,
			"templates/layout.html", "templates/partials/*.html", file))
	}
	fragments = template.Must(template.New("fragments").Funcs(funcMap).ParseFS(assets,
		"templates/partials/*.html", "templates/fragments/*.html"))
}

// renderPage writes page name inside the layout.
func (s *Server) renderPage(w http.ResponseWriter, status int, name string, data Page) {
	t, ok := pages[name]
	if !ok {
		s.log.Sugar().Errorf("unknown page template %q", name)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	s.write(w, status, t, "layout", data)
}

// renderFragment writes a piece of a page requested by htmx.
func (s *Server) renderFragment(w http.ResponseWriter, status int, name string, data any) {
	s.write(w, status, fragments, name, data)
}

func (s *Server) write(w http.ResponseWriter, status int, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Sugar().Errorw("render template", "template", name, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
