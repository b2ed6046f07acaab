package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/form"
	"github.com/fapagri/console/internal/remote"
)

// Harvest records are create-only here, so no field has a getter.
var harvestForm = form.Form[api.HarvestRecord]{Fields: []form.Field[api.HarvestRecord]{
	{Name: "block_id", Label: "Block ID", Kind: form.Text, Required: true, Placeholder: "Block identifier"},
	{Name: "harvester_id", Label: "Harvester", Kind: form.Select, Required: true},
	{Name: "date", Label: "Date", Kind: form.Date, Required: true},
	{Name: "tonnes_fresh_fruit_bunches", Label: "Tonnes FFB", Kind: form.Number, Required: true, Step: "0.01"},
	{Name: "geo_lat", Label: "Latitude", Kind: form.Number, Step: "any"},
	{Name: "geo_lng", Label: "Longitude", Kind: form.Number, Step: "any"},
	{Name: "notes", Label: "Notes", Kind: form.TextArea, Rows: 3, Placeholder: "Markdown is supported"},
}}

const unknownHarvester = "Unknown"

type harvestRow struct {
	api.HarvestRecord
	Harvester string
}

// harvestRows joins each record with its harvester's display name.
func harvestRows(records []api.HarvestRecord, users []api.User) []harvestRow {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	rows := make([]harvestRow, len(records))
	for i, h := range records {
		name, ok := names[h.HarvesterID]
		if !ok {
			name = unknownHarvester
		}
		rows[i] = harvestRow{HarvestRecord: h, Harvester: name}
	}
	return rows
}

func harvesterOptions(users []api.User) []form.Option {
	opts := make([]form.Option, 0, len(users))
	for _, u := range users {
		opts = append(opts, form.Option{Value: u.ID, Label: u.DisplayName()})
	}
	return opts
}

type harvestsView struct {
	Inputs []form.Input
}

// renderHarvests writes the harvests page. The harvester choices are loaded
// here; when they cannot be, the form still renders with a notice.
func (s *Server) renderHarvests(w http.ResponseWriter, r *http.Request, status int, values form.Values, notice string) {
	client := sessionFrom(r).Client()

	var users remote.Collection[api.User]
	if err := remote.Load(r.Context(), users.Fetch(client.Users)); err != nil {
		if api.IsUnauthorized(err) {
			s.toLogin(w, r)
			return
		}
		s.log.Warn("load harvesters", zap.Error(err))
		if notice == "" {
			notice = "Could not load harvesters. " + describe(err)
		}
	}

	v := harvestsView{Inputs: harvestForm.Inputs(values, map[string][]form.Option{
		"harvester_id": harvesterOptions(users.Items()),
	})}
	p := s.page(r, "Harvests", v)
	p.Notice = notice
	s.renderPage(w, status, "harvests", p)
}

func (s *Server) handleHarvests(w http.ResponseWriter, r *http.Request) {
	values := harvestForm.Blank()
	values["date"] = time.Now().UTC().Format(form.DateLayout)
	s.renderHarvests(w, r, http.StatusOK, values, "")
}

func (s *Server) handleHarvestList(w http.ResponseWriter, r *http.Request) {
	client := sessionFrom(r).Client()

	var harvests remote.Collection[api.HarvestRecord]
	var users remote.Collection[api.User]
	if err := remote.Load(r.Context(), harvests.Fetch(client.Harvests), users.Fetch(client.Users)); err != nil {
		s.loadFailed(w, r, "harvest records", err)
		return
	}
	s.renderFragment(w, http.StatusOK, "harvest-list", harvestRows(harvests.Items(), users.Items()))
}

func (s *Server) handleCreateHarvest(w http.ResponseWriter, r *http.Request) {
	values := harvestForm.Read(r)

	var in api.HarvestInput
	err := harvestForm.Decode(values, &in)
	if err == nil {
		_, err = sessionFrom(r).Client().CreateHarvest(r.Context(), in)
	}
	if err != nil {
		if s.submitFailed(w, r, "create harvest", err) {
			s.renderHarvests(w, r, mutationStatus(err), values,
				"Could not record the harvest. "+describe(err))
		}
		return
	}
	http.Redirect(w, r, "/harvests", http.StatusSeeOther)
}
