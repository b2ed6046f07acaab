package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/session"
)

type loginView struct {
	Username string
	Error    string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Restore(r.Context())
	if sess.State() == session.Authenticated {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet {
		s.renderPage(w, http.StatusOK, "login", s.page(r, "Sign in", loginView{}))
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		s.renderPage(w, http.StatusUnprocessableEntity, "login", s.page(r, "Sign in", loginView{
			Username: username,
			Error:    "Username and password are required.",
		}))
		return
	}

	if err := sess.SignIn(r.Context(), username, password); err != nil {
		s.log.Info("sign in failed", zap.String("username", username), zap.Error(err))
		status, msg := http.StatusBadGateway, unreachable
		if api.IsUnauthorized(err) {
			status, msg = http.StatusUnauthorized, describe(err)
		} else if api.StatusOf(err) != 0 {
			msg = describe(err)
		}
		s.renderPage(w, status, "login", s.page(r, "Sign in", loginView{Username: username, Error: msg}))
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).SignOut(r.Context()); err != nil {
		s.log.Warn("sign out", zap.Error(err))
	}
	s.toLogin(w, r)
}
