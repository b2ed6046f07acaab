package apitest

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/fapagri/console/internal/api"
	"github.com/google/uuid"
)

type ctxKey struct{}

func currentUser(r *http.Request) *api.User {
	u, _ := r.Context().Value(ctxKey{}).(*api.User)
	return u
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tok == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		s.mu.Lock()
		uid, known := s.tokens[tok]
		var u *api.User
		if known {
			u = s.users[uid]
		}
		s.mu.Unlock()

		if u == nil {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	s.mu.Lock()
	defer s.mu.Unlock()

	want, exists := s.passwords[username]
	if !exists || want != password {
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	for id, u := range s.users {
		if u.Username == username {
			tok := "tok-" + uuid.NewString()
			s.tokens[tok] = id
			writeJSON(w, http.StatusOK, api.Token{AccessToken: tok, TokenType: "bearer"})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Incorrect username or password")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := make([]api.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	writeJSON(w, http.StatusOK, users)
}
