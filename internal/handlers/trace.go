package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fapagri/console/internal/api"
)

type traceView struct {
	Batch  string
	Record *api.HarvestRecord
	Error  string
}

// handleTrace looks a harvest batch up without requiring sign-in, so a batch
// code printed on a delivery can be checked by anyone.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Restore(r.Context())

	v := traceView{Batch: strings.TrimSpace(r.URL.Query().Get("batch"))}
	status := http.StatusOK
	if v.Batch != "" {
		rec, err := s.api.TraceBatch(r.Context(), v.Batch)
		switch {
		case err == nil:
			v.Record = rec
		case api.IsNotFound(err):
			status = http.StatusNotFound
			v.Error = "No harvest carries batch code " + v.Batch + "."
		default:
			s.log.Warn("trace batch", zap.String("batch", v.Batch), zap.Error(err))
			status = http.StatusBadGateway
			v.Error = describe(err)
		}
	}
	s.renderPage(w, status, "trace", s.page(r, "Trace a batch", v))
}
