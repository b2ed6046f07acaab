package apitest

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fapagri/console/internal/api"
)

// Plantations

func (s *Server) handleGetPlantations(w http.ResponseWriter, r *http.Request) {
	ps := s.Plantations()
	if ps == nil {
		ps = []api.Plantation{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) findPlantation(id string) int {
	for i, p := range s.plantations {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleGetPlantation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findPlantation(r.PathValue("id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Plantation not found")
		return
	}
	writeJSON(w, http.StatusOK, s.plantations[i])
}

func decodePlantation(w http.ResponseWriter, r *http.Request) (api.PlantationInput, bool) {
	var in api.PlantationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return in, false
	}
	if strings.TrimSpace(in.Name) == "" {
		writeValidation(w, "name", "field required")
		return in, false
	}
	return in, true
}

func (s *Server) handleCreatePlantation(w http.ResponseWriter, r *http.Request) {
	in, ok := decodePlantation(w, r)
	if !ok {
		return
	}
	p := s.AddPlantation(api.Plantation{
		Name:        in.Name,
		LocationLat: in.LocationLat,
		LocationLng: in.LocationLng,
		AreaHa:      in.AreaHa,
		Address:     in.Address,
	})
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePlantation(w http.ResponseWriter, r *http.Request) {
	in, ok := decodePlantation(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findPlantation(r.PathValue("id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Plantation not found")
		return
	}
	p := &s.plantations[i]
	p.Name = in.Name
	p.LocationLat = in.LocationLat
	p.LocationLng = in.LocationLng
	p.AreaHa = in.AreaHa
	p.Address = in.Address
	p.UpdatedAt = now()
	writeJSON(w, http.StatusOK, *p)
}

func (s *Server) handleDeletePlantation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findPlantation(r.PathValue("id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Plantation not found")
		return
	}
	s.plantations = append(s.plantations[:i], s.plantations[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Plantation deleted successfully"})
}

// Harvests

func (s *Server) handleGetHarvests(w http.ResponseWriter, r *http.Request) {
	hs := s.Harvests()
	if hs == nil {
		hs = []api.HarvestRecord{}
	}
	writeJSON(w, http.StatusOK, hs)
}

func (s *Server) handleGetHarvest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, h := range s.Harvests() {
		if h.ID == id {
			writeJSON(w, http.StatusOK, h)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Harvest record not found")
}

func (s *Server) handleHarvestsByBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	out := []api.HarvestRecord{}
	for _, h := range s.Harvests() {
		if h.BlockID == id {
			out = append(out, h)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	for _, h := range s.Harvests() {
		if h.BatchCode == code {
			writeJSON(w, http.StatusOK, h)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Batch not found")
}

func (s *Server) handleCreateHarvest(w http.ResponseWriter, r *http.Request) {
	var in api.HarvestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if in.TonnesFreshFruitBunches <= 0 {
		writeValidation(w, "tonnes_fresh_fruit_bunches", "ensure this value is greater than 0")
		return
	}

	s.mu.Lock()
	blockKnown := false
	for _, b := range s.blocks {
		if b.ID == in.BlockID {
			blockKnown = true
			break
		}
	}
	_, harvesterKnown := s.users[in.HarvesterID]
	s.mu.Unlock()

	if !blockKnown {
		writeError(w, http.StatusNotFound, "Block not found")
		return
	}
	if !harvesterKnown {
		writeError(w, http.StatusNotFound, "Harvester not found")
		return
	}

	h := s.AddHarvest(api.HarvestRecord{
		BlockID:                 in.BlockID,
		HarvesterID:             in.HarvesterID,
		Date:                    in.Date,
		TonnesFreshFruitBunches: in.TonnesFreshFruitBunches,
		GeoLat:                  in.GeoLat,
		GeoLng:                  in.GeoLng,
		Notes:                   in.Notes,
	})
	writeJSON(w, http.StatusOK, h)
}

// Dashboard

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats != nil {
		writeJSON(w, http.StatusOK, s.stats)
		return
	}

	today := time.Now().UTC()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	st := api.DashboardStats{
		TotalPlantations: len(s.plantations),
		TotalBlocks:      len(s.blocks),
	}
	for _, h := range s.harvests {
		d := h.Date.UTC()
		if d.Format(time.DateOnly) == today.Format(time.DateOnly) {
			st.TotalHarvestToday += h.TonnesFreshFruitBunches
		}
		if !d.Before(monthStart) {
			st.TotalHarvestThisMonth += h.TonnesFreshFruitBunches
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePlantationDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findPlantation(r.PathValue("id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Plantation not found")
		return
	}
	p := s.plantations[i]

	d := api.PlantationDashboard{Plantation: p, RecentHarvests: []api.HarvestRecord{}}
	blockIDs := map[string]bool{}
	for _, b := range s.blocks {
		if b.PlantationID != p.ID {
			continue
		}
		blockIDs[b.ID] = true
		d.TotalBlocks++
		if b.AreaHa != nil {
			d.TotalAreaHa += *b.AreaHa
		}
	}

	today := time.Now().UTC()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	for _, h := range s.harvests {
		if !blockIDs[h.BlockID] {
			continue
		}
		if !h.Date.Before(monthStart) {
			d.HarvestThisMonth += h.TonnesFreshFruitBunches
		}
		if len(d.RecentHarvests) < 10 {
			d.RecentHarvests = append(d.RecentHarvests, h)
		}
	}
	writeJSON(w, http.StatusOK, d)
}
