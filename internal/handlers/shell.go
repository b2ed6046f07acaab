package handlers

import (
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/fapagri/console/internal/api"
)

type NavItem struct {
	Label  string
	Href   string
	Active bool
}

var navigation = []NavItem{
	{Label: "Dashboard", Href: "/dashboard"},
	{Label: "Plantations", Href: "/plantations"},
	{Label: "Employees", Href: "/employees"},
	{Label: "Harvests", Href: "/harvests"},
}

// Page is what every page template receives. User is nil on public pages,
// which then render without the navigation shell.
type Page struct {
	Title    string
	Path     string
	User     *api.User
	Nav      []NavItem
	MenuOpen bool
	MenuHref string
	CSRF     template.HTML
	Notice   string
	Data     any
}

func (s *Server) page(r *http.Request, title string, data any) Page {
	p := Page{
		Title: title,
		Path:  r.URL.Path,
		CSRF:  csrf.TemplateField(r),
		Data:  data,
	}
	if sess := sessionFrom(r); sess != nil {
		p.User = sess.Profile()
	}
	if p.User == nil {
		return p
	}

	p.Nav = make([]NavItem, len(navigation))
	for i, item := range navigation {
		item.Active = item.Href == r.URL.Path
		p.Nav[i] = item
	}

	p.MenuOpen = r.URL.Query().Get("menu") == "open"
	p.MenuHref = r.URL.Path + "?menu=open"
	if p.MenuOpen {
		p.MenuHref = r.URL.Path
	}
	return p
}
