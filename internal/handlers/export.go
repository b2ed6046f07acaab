package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/remote"
)

const harvestSheet = "Harvests"

var harvestColumns = []any{
	"Date", "Batch Code", "Block ID", "Harvester", "Tonnes FFB", "Latitude", "Longitude", "Notes",
}

func optional(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// HarvestWorkbook builds the spreadsheet served at /harvests/export.xlsx,
// naming each record's harvester from users.
func HarvestWorkbook(records []api.HarvestRecord, users []api.User) (*excelize.File, error) {
	return harvestWorkbook(harvestRows(records, users))
}

// harvestWorkbook lays rows out one record per line under a header row.
func harvestWorkbook(rows []harvestRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", harvestSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	if err := f.SetSheetRow(harvestSheet, "A1", &harvestColumns); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		err = f.SetCellStyle(harvestSheet, "A1", "H1", bold)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, h := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		notes := ""
		if h.Notes != nil {
			notes = *h.Notes
		}
		row := []any{
			h.Date.Format(time.DateOnly),
			h.BatchCode,
			h.BlockID,
			h.Harvester,
			h.TonnesFreshFruitBunches,
			optional(h.GeoLat),
			optional(h.GeoLng),
			notes,
		}
		if err := f.SetSheetRow(harvestSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(harvestSheet, "A", "G", 16); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(harvestSheet, "H", "H", 40); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (s *Server) handleExportHarvests(w http.ResponseWriter, r *http.Request) {
	client := sessionFrom(r).Client()

	var harvests remote.Collection[api.HarvestRecord]
	var users remote.Collection[api.User]
	if err := remote.Load(r.Context(), harvests.Fetch(client.Harvests), users.Fetch(client.Users)); err != nil {
		if api.IsUnauthorized(err) {
			s.toLogin(w, r)
			return
		}
		s.log.Warn("export harvests", zap.Error(err))
		http.Error(w, "Could not load harvest records. "+describe(err), http.StatusBadGateway)
		return
	}

	f, err := harvestWorkbook(harvestRows(harvests.Items(), users.Items()))
	if err != nil {
		s.log.Error("build harvest workbook", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	name := fmt.Sprintf("harvests-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	if _, err := f.WriteTo(w); err != nil {
		s.log.Warn("write harvest workbook", zap.Error(err))
	}
}
