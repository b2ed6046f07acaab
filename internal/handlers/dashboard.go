package handlers

import (
	"context"
	"net/http"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/remote"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, "dashboard", s.page(r, "Dashboard", nil))
}

func (s *Server) handleDashboardCards(w http.ResponseWriter, r *http.Request) {
	client := sessionFrom(r).Client()

	var stats remote.Resource[*api.DashboardStats]
	if err := remote.Load(r.Context(), stats.Fetch(client.DashboardStats)); err != nil {
		s.loadFailed(w, r, "dashboard statistics", err)
		return
	}
	s.renderFragment(w, http.StatusOK, "dashboard-cards", stats.Data)
}

type plantationDetail struct {
	*api.PlantationDashboard
}

// Area is the plantation's own area when recorded, the sum of its blocks
// otherwise.
func (d plantationDetail) Area() float64 {
	if d.Plantation.AreaHa != nil {
		return *d.Plantation.AreaHa
	}
	return d.TotalAreaHa
}

func (s *Server) handlePlantationDetail(w http.ResponseWriter, r *http.Request) {
	client := sessionFrom(r).Client()

	var summary remote.Resource[*api.PlantationDashboard]
	err := remote.Load(r.Context(), summary.Fetch(func(ctx context.Context) (*api.PlantationDashboard, error) {
		return client.PlantationDashboard(ctx, r.PathValue("id"))
	}))
	switch {
	case err == nil:
	case api.IsNotFound(err):
		s.renderPage(w, http.StatusNotFound, "not_found", s.page(r, "Plantation not found", nil))
		return
	case api.IsUnauthorized(err):
		s.toLogin(w, r)
		return
	default:
		s.log.Sugar().Warnw("load plantation summary", "id", r.PathValue("id"), "error", err)
		p := s.page(r, "Plantation", nil)
		p.Notice = "Could not load the plantation. " + describe(err)
		s.renderPage(w, http.StatusBadGateway, "plantation_detail", p)
		return
	}

	s.renderPage(w, http.StatusOK, "plantation_detail",
		s.page(r, summary.Data.Plantation.Name, plantationDetail{summary.Data}))
}
