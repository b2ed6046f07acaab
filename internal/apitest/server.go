// Package apitest is an in-memory stand-in for the plantation REST API,
// used by tests across the module.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fapagri/console/internal/api"
)

const Prefix = "/api/v1"

// Request is one call the server received.
type Request struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

type failure struct {
	status int
	detail string
}

type Server struct {
	mu          sync.Mutex
	users       map[string]*api.User
	passwords   map[string]string // username -> password
	tokens      map[string]string // token -> user id
	plantations []api.Plantation
	blocks      []api.Block
	harvests    []api.HarvestRecord
	stats       *api.DashboardStats
	failures    map[string]failure // "METHOD /path" -> forced answer
	requests    []Request
	seq         int

	srv *httptest.Server
}

func New() *Server {
	return &Server{
		users:     map[string]*api.User{},
		passwords: map[string]string{},
		tokens:    map[string]string{},
		failures:  map[string]failure{},
	}
}

// Start serves s on a local listener until the test ends.
func Start(t testing.TB) *Server {
	t.Helper()
	s := New()
	s.srv = httptest.NewServer(s.Handler())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base address, prefix included.
func (s *Server) URL() string { return s.srv.URL + Prefix }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+Prefix+"/auth/login", s.handleLogin)
	mux.HandleFunc("GET "+Prefix+"/auth/me", s.authed(s.handleMe))
	mux.HandleFunc("GET "+Prefix+"/auth/users", s.authed(s.handleUsers))

	mux.HandleFunc("GET "+Prefix+"/plantations/{$}", s.authed(s.handleGetPlantations))
	mux.HandleFunc("POST "+Prefix+"/plantations/{$}", s.authed(s.handleCreatePlantation))
	mux.HandleFunc("GET "+Prefix+"/plantations/{id}", s.authed(s.handleGetPlantation))
	mux.HandleFunc("PUT "+Prefix+"/plantations/{id}", s.authed(s.handleUpdatePlantation))
	mux.HandleFunc("DELETE "+Prefix+"/plantations/{id}", s.authed(s.handleDeletePlantation))

	mux.HandleFunc("GET "+Prefix+"/harvests/{$}", s.authed(s.handleGetHarvests))
	mux.HandleFunc("POST "+Prefix+"/harvests/{$}", s.authed(s.handleCreateHarvest))
	mux.HandleFunc("GET "+Prefix+"/harvests/{id}", s.authed(s.handleGetHarvest))
	mux.HandleFunc("GET "+Prefix+"/harvests/block/{id}", s.authed(s.handleHarvestsByBlock))
	mux.HandleFunc("GET "+Prefix+"/harvests/trace/{code}", s.handleTrace)

	mux.HandleFunc("GET "+Prefix+"/dashboard/stats", s.authed(s.handleStats))
	mux.HandleFunc("GET "+Prefix+"/dashboard/plantation/{id}", s.authed(s.handlePlantationDashboard))

	return s.record(mux)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		path := strings.TrimPrefix(r.URL.Path, Prefix)

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   path,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		f, forced := s.failures[r.Method+" "+path]
		s.mu.Unlock()

		if forced {
			writeError(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{
			"loc":  []string{"body", field},
			"msg":  msg,
			"type": "value_error",
		}},
	})
}

// Test controls

// Fail makes every METHOD path request answer status with detail.
func (s *Server) Fail(method, path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, detail: detail}
}

func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count reports how many METHOD path requests were received.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent METHOD path request.
func (s *Server) Last(method, path string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

func (s *Server) nextID(kind string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", kind, s.seq)
}

func now() api.Time { return api.Time{Time: time.Now().UTC().Truncate(time.Second)} }

// AddUser registers a user that can sign in with password.
func (s *Server) AddUser(u api.User, password string) api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.nextID("user")
	}
	if u.Role == "" {
		u.Role = "field_worker"
	}
	u.CreatedAt, u.UpdatedAt = now(), now()
	s.users[u.ID] = &u
	s.passwords[u.Username] = password
	return u
}

// IssueToken hands out a token for username without a login round-trip.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Username == username {
			tok := "tok-" + uuid.NewString()
			s.tokens[tok] = id
			return tok
		}
	}
	panic("apitest: unknown user " + username)
}

// RevokeTokens invalidates every issued token, as an expiry would.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

func (s *Server) AddPlantation(p api.Plantation) api.Plantation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.nextID("plantation")
	}
	p.CreatedAt, p.UpdatedAt = now(), now()
	s.plantations = append(s.plantations, p)
	return p
}

func (s *Server) AddBlock(b api.Block) api.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = s.nextID("block")
	}
	b.CreatedAt, b.UpdatedAt = now(), now()
	s.blocks = append(s.blocks, b)
	return b
}

func (s *Server) AddHarvest(h api.HarvestRecord) api.HarvestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == "" {
		h.ID = s.nextID("harvest")
	}
	if h.BatchCode == "" {
		h.BatchCode = batchCode(h.Date.Time)
	}
	h.CreatedAt, h.UpdatedAt = now(), now()
	s.harvests = append(s.harvests, h)
	return h
}

// SetStats pins the dashboard answer instead of computing it.
func (s *Server) SetStats(st api.DashboardStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &st
}

func (s *Server) Plantations() []api.Plantation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Plantation(nil), s.plantations...)
}

func (s *Server) Harvests() []api.HarvestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.HarvestRecord(nil), s.harvests...)
}

func batchCode(d time.Time) string {
	return fmt.Sprintf("LOT-%s-%s", d.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}
