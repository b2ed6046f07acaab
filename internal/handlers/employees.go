package handlers

import (
	"net/http"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/remote"
)

type employeesView struct {
	Adding bool
}

// Employees are accounts in the plantation service and cannot be created
// from the console; the add control only explains that.
func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	v := employeesView{Adding: r.URL.Query().Get("add") == "1"}
	s.renderPage(w, http.StatusOK, "employees", s.page(r, "Employees", v))
}

func (s *Server) handleEmployeeList(w http.ResponseWriter, r *http.Request) {
	client := sessionFrom(r).Client()

	var users remote.Collection[api.User]
	if err := remote.Load(r.Context(), users.Fetch(client.Users)); err != nil {
		s.loadFailed(w, r, "employees", err)
		return
	}
	s.renderFragment(w, http.StatusOK, "employee-list", &users)
}
