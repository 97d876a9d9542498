package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/okian/vivaran/internal/domain/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Page names; each has a templates/<name>.html defining "content".
const (
	pageHome              = "home"
	pageServices          = "services"
	pagePortfolio         = "portfolio"
	pageContact           = "contact"
	pageCollaborations    = "collaborations"
	pageAssets            = "assets"
	pageAbout             = "about"
	pageSelection         = "selection"
	pageAuth              = "auth"
	pageAccessDenied      = "access_denied"
	pageStartupDashboard  = "startup_dashboard"
	pageInvestorDashboard = "investor_dashboard"
)

var pageNames = []string{
	pageHome, pageServices, pagePortfolio, pageContact, pageCollaborations,
	pageAssets, pageAbout, pageSelection, pageAuth, pageAccessDenied,
	pageStartupDashboard, pageInvestorDashboard,
}

var funcs = template.FuncMap{
	"usd": func(v float64) string {
		s := fmt.Sprintf("%.0f", v)
		var b strings.Builder
		for i, r := range s {
			if i > 0 && (len(s)-i)%3 == 0 {
				b.WriteByte(',')
			}
			b.WriteRune(r)
		}
		return "$" + b.String()
	},
	"join":    strings.Join,
	"domains": func() []model.Domain { return model.Domains },
	"stages":  func() []model.Stage { return model.Stages },
}

type viewer struct {
	SignedIn  bool
	Email     string
	Role      string
	Dashboard string
}

type pageData struct {
	Title   string
	Active  string
	Viewer  viewer
	Error   string
	Notice  string
	Content any
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// render buffers the page so a template error never leaves a half-written response.
func (r *renderer) render(w http.ResponseWriter, status int, name string, data pageData) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("%w: unknown page %q", ErrRender, name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

func staticFiles() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}
