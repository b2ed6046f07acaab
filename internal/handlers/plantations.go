package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/form"
	"github.com/fapagri/console/internal/remote"
)

var plantationForm = form.Form[api.Plantation]{Fields: []form.Field[api.Plantation]{
	{
		Name: "name", Label: "Name", Kind: form.Text, Required: true,
		Placeholder: "Kebun Sawit Utara",
		Get:         func(p api.Plantation) string { return p.Name },
	},
	{
		Name: "location_lat", Label: "Latitude", Kind: form.Number, Step: "any",
		Get: func(p api.Plantation) string { return form.Float(p.LocationLat) },
	},
	{
		Name: "location_lng", Label: "Longitude", Kind: form.Number, Step: "any",
		Get: func(p api.Plantation) string { return form.Float(p.LocationLng) },
	},
	{
		Name: "area_ha", Label: "Area (ha)", Kind: form.Number, Step: "0.01",
		Get: func(p api.Plantation) string { return form.Float(p.AreaHa) },
	},
	{
		Name: "address", Label: "Address", Kind: form.TextArea, Rows: 2,
		Get: func(p api.Plantation) string { return form.String(p.Address) },
	},
}}

type plantationsView struct {
	EditID string
	Action string
	Inputs []form.Input
}

func (s *Server) renderPlantations(w http.ResponseWriter, r *http.Request, status int, editID string, values form.Values, notice string) {
	v := plantationsView{EditID: editID, Action: "/plantations", Inputs: plantationForm.Inputs(values, nil)}
	if editID != "" {
		v.Action = "/plantations/" + editID
	}
	p := s.page(r, "Plantations", v)
	p.Notice = notice
	s.renderPage(w, status, "plantations", p)
}

func (s *Server) handlePlantations(w http.ResponseWriter, r *http.Request) {
	editID := r.URL.Query().Get("edit")
	if editID == "" {
		s.renderPlantations(w, r, http.StatusOK, "", plantationForm.Blank(), "")
		return
	}

	existing, err := sessionFrom(r).Client().Plantation(r.Context(), editID)
	switch {
	case err == nil:
		s.renderPlantations(w, r, http.StatusOK, editID, plantationForm.From(*existing), "")
	case api.IsUnauthorized(err):
		s.toLogin(w, r)
	case api.IsNotFound(err):
		s.renderPage(w, http.StatusNotFound, "not_found", s.page(r, "Plantation not found", nil))
	default:
		s.log.Warn("load plantation for edit", zap.String("id", editID), zap.Error(err))
		s.renderPlantations(w, r, http.StatusOK, "", plantationForm.Blank(),
			"Could not load the plantation for editing. "+describe(err))
	}
}

func (s *Server) handlePlantationList(w http.ResponseWriter, r *http.Request) {
	client := sessionFrom(r).Client()

	var plantations remote.Collection[api.Plantation]
	if err := remote.Load(r.Context(), plantations.Fetch(client.Plantations)); err != nil {
		s.loadFailed(w, r, "plantations", err)
		return
	}
	s.renderFragment(w, http.StatusOK, "plantation-list", &plantations)
}

func (s *Server) handleCreatePlantation(w http.ResponseWriter, r *http.Request) {
	values := plantationForm.Read(r)

	var in api.PlantationInput
	err := plantationForm.Decode(values, &in)
	if err == nil {
		_, err = sessionFrom(r).Client().CreatePlantation(r.Context(), in)
	}
	if err != nil {
		if s.submitFailed(w, r, "create plantation", err) {
			s.renderPlantations(w, r, mutationStatus(err), "", values,
				"Could not create the plantation. "+describe(err))
		}
		return
	}
	http.Redirect(w, r, "/plantations", http.StatusSeeOther)
}

func (s *Server) handleUpdatePlantation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	values := plantationForm.Read(r)

	var in api.PlantationInput
	err := plantationForm.Decode(values, &in)
	if err == nil {
		_, err = sessionFrom(r).Client().UpdatePlantation(r.Context(), id, in)
	}
	if err != nil {
		if s.submitFailed(w, r, "update plantation", err) {
			s.renderPlantations(w, r, mutationStatus(err), id, values,
				"Could not update the plantation. "+describe(err))
		}
		return
	}
	http.Redirect(w, r, "/plantations", http.StatusSeeOther)
}

type deleteView struct {
	ID   string
	Name string
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v := deleteView{ID: id}

	p, err := sessionFrom(r).Client().Plantation(r.Context(), id)
	switch {
	case err == nil:
		v.Name = p.Name
	case api.IsUnauthorized(err):
		s.toLogin(w, r)
		return
	case api.IsNotFound(err):
		s.renderPage(w, http.StatusNotFound, "not_found", s.page(r, "Plantation not found", nil))
		return
	default:
		s.log.Warn("load plantation for delete", zap.String("id", id), zap.Error(err))
	}
	s.renderPage(w, http.StatusOK, "plantation_delete", s.page(r, "Delete plantation", v))
}

// handleDeletePlantation deletes only with an explicit confirm=yes. Anything
// else returns to the list without calling the API.
func (s *Server) handleDeletePlantation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if r.PostFormValue("confirm") != "yes" {
		http.Redirect(w, r, "/plantations", http.StatusSeeOther)
		return
	}

	if err := sessionFrom(r).Client().DeletePlantation(r.Context(), id); err != nil {
		if s.submitFailed(w, r, "delete plantation", err) {
			p := s.page(r, "Delete plantation", deleteView{ID: id})
			p.Notice = "Could not delete the plantation. " + describe(err)
			s.renderPage(w, mutationStatus(err), "plantation_delete", p)
		}
		return
	}
	s.log.Info("plantation deleted", zap.String("id", id))
	http.Redirect(w, r, "/plantations", http.StatusSeeOther)
}
