package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fapagri/console/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

func sessionFrom(r *http.Request) *session.Session {
	if sess, ok := r.Context().Value(sessionKey).(*session.Session); ok {
		return sess
	}
	return nil
}

// withSession gives every request a session over its browser's storage.
// Nothing is read until a handler calls Restore.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := s.browserID(w, r)
		sess := session.New(s.store.Scope(id), s.api, s.log.With(zap.String("browser", id[:8])))
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// guard serves next only to a signed-in browser and sends everyone else to
// the sign-in page.
func (s *Server) guard(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		sess.Restore(r.Context())
		if sess.State() != session.Authenticated {
			s.toLogin(w, r)
			return
		}
		next(w, r)
	})
}

func (s *Server) toLogin(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
			zap.Bool("htmx", isHTMX(r)))
	})
}
