// Package handlers serves the plantation console: server-rendered pages and
// htmx fragments backed by the plantation API.
package handlers

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/config"
	"github.com/fapagri/console/internal/db"
)

type Server struct {
	cfg     config.Config
	store   *db.Store
	api     *api.Client
	log     *zap.Logger
	started time.Time
}

// New builds the console. client must carry no credentials; each request's
// session attaches its own.
func New(cfg config.Config, store *db.Store, client *api.Client, log *zap.Logger) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		api:     client,
		log:     log,
		started: time.Now(),
	}
}

// Handler serves the console. Assets and the health check are answered
// before a browser id or session exists.
func (s *Server) Handler() http.Handler {
	app := http.NewServeMux()
	s.RegisterRoutes(app)

	var h http.Handler = app
	if key := s.cfg.Security.CSRFKey; key != "" {
		h = s.protect([]byte(key), h)
	}

	root := http.NewServeMux()
	static, _ := fs.Sub(assets, "static")
	root.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.Handle("/", s.withSession(h))
	return s.logRequests(root)
}

// RegisterRoutes adds the session-backed pages and fragments to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Public
	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /trace", s.handleTrace)

	// Signed in
	mux.Handle("GET /{$}", s.guard(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}))
	mux.Handle("GET /dashboard", s.guard(s.handleDashboard))
	mux.Handle("GET /dashboard/cards", s.guard(s.handleDashboardCards))

	mux.Handle("GET /plantations", s.guard(s.handlePlantations))
	mux.Handle("GET /plantations/list", s.guard(s.handlePlantationList))
	mux.Handle("POST /plantations", s.guard(s.handleCreatePlantation))
	mux.Handle("GET /plantations/{id}", s.guard(s.handlePlantationDetail))
	mux.Handle("POST /plantations/{id}", s.guard(s.handleUpdatePlantation))
	mux.Handle("GET /plantations/{id}/delete", s.guard(s.handleConfirmDelete))
	mux.Handle("POST /plantations/{id}/delete", s.guard(s.handleDeletePlantation))

	mux.Handle("GET /employees", s.guard(s.handleEmployees))
	mux.Handle("GET /employees/list", s.guard(s.handleEmployeeList))

	mux.Handle("GET /harvests", s.guard(s.handleHarvests))
	mux.Handle("GET /harvests/list", s.guard(s.handleHarvestList))
	mux.Handle("POST /harvests", s.guard(s.handleCreateHarvest))
	mux.Handle("GET /harvests/export.xlsx", s.guard(s.handleExportHarvests))

	mux.HandleFunc("/", s.handleNotFound)
}

// protect rejects state-changing requests without a valid CSRF token.
func (s *Server) protect(key []byte, next http.Handler) http.Handler {
	secure := s.cfg.Security.SecureCookies
	mw := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.log.Warn("csrf rejected",
				zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
			http.Error(w, "Forbidden", http.StatusForbidden)
		})),
	)
	protected := mw(next)
	if secure {
		return protected
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}
